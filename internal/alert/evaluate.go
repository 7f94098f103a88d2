package alert

import (
	"math"

	"marketwatch-backend/internal/types"
)

// Evaluate decides whether the current price fires the alert. prev is the
// price from the previous poll cycle, or nil when no snapshot exists for the
// symbol; crossing detection degrades gracefully without it.
func Evaluate(a types.Alert, price float64, prev *float64) bool {
	target := a.Target
	buffer := bufferFor(a.Symbol, a.PipBuffer)

	switch a.Kind {
	case types.KindTouch:
		switch a.Direction {
		case types.DirectionAbove:
			// Reach/pass, or the level was skipped between polls in the
			// alert's direction.
			return price >= target || (prev != nil && *prev < target && price > target)
		case types.DirectionBelow:
			return price <= target || (prev != nil && *prev > target && price < target)
		default:
			return math.Abs(price-target) < buffer || jumpedOver(prev, price, target)
		}

	case types.KindCross:
		switch a.Direction {
		case types.DirectionAbove:
			if prev == nil {
				// First observable cycle: fall back to a reach test so the
				// firing is not silently missed.
				return price >= target
			}
			return *prev < target && price >= target
		case types.DirectionBelow:
			if prev == nil {
				return price <= target
			}
			return *prev > target && price <= target
		default:
			// A cross with no reference direction is ambiguous and never fires.
			return false
		}

	case types.KindNear:
		return math.Abs(price-target) <= buffer

	case types.KindZone:
		if a.ZoneHigh == nil {
			return false
		}
		return inZone(target, *a.ZoneHigh, price, prev)
	}

	return false
}

// EvaluateCorrelation checks both legs of a correlation alert against its
// zone, in (symbol1, symbol2) order. The first qualifying leg is returned as
// the triggering symbol; ok is false when neither leg qualifies this cycle.
func EvaluateCorrelation(c types.CorrelationAlert, quotes map[string]types.Quote, prev map[string]float64) (symbol string, price float64, ok bool) {
	for _, leg := range []string{c.Symbol1, c.Symbol2} {
		q, exists := quotes[leg]
		if !exists || q.Price <= 0 {
			continue
		}
		if inZone(c.ZoneLow, c.ZoneHigh, q.Price, prevFor(prev, leg)) {
			return leg, q.Price, true
		}
	}
	return "", 0, false
}

// inZone reports whether price sits inside [low, high], or whether the move
// from prev crossed either boundary. The in-range test runs first: a price
// currently in the zone fires regardless of history.
func inZone(low, high, price float64, prev *float64) bool {
	if price >= low && price <= high {
		return true
	}
	return jumpedOver(prev, price, low) || jumpedOver(prev, price, high)
}

// jumpedOver reports a strict straddle: prev and price on opposite sides of
// level, meaning the level was crossed between polls even if never observed.
func jumpedOver(prev *float64, price, level float64) bool {
	if prev == nil {
		return false
	}
	return (*prev < level && price > level) || (*prev > level && price < level)
}

func prevFor(prev map[string]float64, symbol string) *float64 {
	if prev == nil {
		return nil
	}
	if p, ok := prev[symbol]; ok {
		return &p
	}
	return nil
}
