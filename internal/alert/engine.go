package alert

import (
	"context"
	"time"

	"marketwatch-backend/internal/metrics"
	"marketwatch-backend/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Store is the durable alert record collaborator.
type Store interface {
	ActiveSymbols() ([]string, error)
	ActiveAlerts(symbols []string) ([]types.Alert, error)
	ActiveCorrelationAlerts() ([]types.CorrelationAlert, error)
	ClaimAlerts(ids []int64, triggeredAt time.Time) ([]int64, error)
	ClaimCorrelationAlert(id int64, triggeredBy string, triggeredAt time.Time) (bool, error)
}

// QuoteFetcher returns a best-effort symbol -> quote mapping; symbols it
// cannot price are omitted.
type QuoteFetcher interface {
	BatchQuotes(ctx context.Context, symbols []string) map[string]types.Quote
}

// Dispatcher delivers claimed firings to the subscriber's channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, firings []types.Firing, correlations []types.CorrelationFiring)
}

// Engine drives the evaluation cycle and owns the previous-price snapshot.
// The snapshot is replaced wholesale each cycle and is never shared; nothing
// outside the engine reads or writes it.
type Engine struct {
	store      Store
	quotes     QuoteFetcher
	dispatcher Dispatcher
	interval   time.Duration

	snapshot map[string]float64
}

func NewEngine(store Store, quotes QuoteFetcher, dispatcher Dispatcher, interval time.Duration) *Engine {
	return &Engine{
		store:      store,
		quotes:     quotes,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

// Run polls until ctx is cancelled. A cycle always runs to completion before
// the next sleep begins, and a failed cycle never stops the loop.
func (e *Engine) Run(ctx context.Context) {
	log.Infof("alert engine started (interval=%s)", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := e.RunCycle(ctx); err != nil {
			metrics.CycleErrors.Inc()
			log.Errorf("alert cycle failed: %v", err)
		}
		metrics.CyclesTotal.Inc()

		select {
		case <-ctx.Done():
			log.Info("alert engine stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one full evaluate-claim-notify pass.
func (e *Engine) RunCycle(ctx context.Context) error {
	symbols, err := e.store.ActiveSymbols()
	if err != nil {
		return errors.Wrap(err, "could not load active symbols")
	}

	if len(symbols) == 0 {
		// A gap in interest resets crossing memory; stale prices must not
		// produce straddle firings after alerts reappear.
		e.snapshot = nil
		log.Debug("no active alert symbols, skipping quote fetch")
		return nil
	}

	quotes := e.quotes.BatchQuotes(ctx, symbols)
	prev := e.snapshot

	firings, err := e.evaluateAlerts(quotes, prev)
	if err != nil {
		return err
	}
	corrFirings, err := e.evaluateCorrelations(quotes, prev)
	if err != nil {
		return err
	}

	// Advance to exactly the symbols priced this cycle; symbols that failed
	// to price drop out of crossing memory.
	next := make(map[string]float64, len(quotes))
	for symbol, q := range quotes {
		next[symbol] = q.Price
	}
	e.snapshot = next

	if len(firings) == 0 && len(corrFirings) == 0 {
		return nil
	}

	claimedFirings, err := e.claimAlerts(firings)
	if err != nil {
		// Favor a missed notification over a duplicate blast: if the claim
		// cannot be recorded, nothing is sent this cycle.
		return errors.Wrap(err, "claim failed, aborting notification batch")
	}
	claimedCorrs := e.claimCorrelations(corrFirings)

	if len(claimedFirings) == 0 && len(claimedCorrs) == 0 {
		return nil
	}

	// Fire-and-forget relative to the poll loop; the dispatcher joins its
	// own channel sends per firing.
	go e.dispatcher.Dispatch(ctx, claimedFirings, claimedCorrs)

	return nil
}

func (e *Engine) evaluateAlerts(quotes map[string]types.Quote, prev map[string]float64) ([]types.Firing, error) {
	quoted := make([]string, 0, len(quotes))
	for symbol := range quotes {
		quoted = append(quoted, symbol)
	}
	if len(quoted) == 0 {
		return nil, nil
	}

	alerts, err := e.store.ActiveAlerts(quoted)
	if err != nil {
		return nil, errors.Wrap(err, "could not load active alerts")
	}

	var firings []types.Firing
	for _, a := range alerts {
		q, exists := quotes[a.Symbol]
		if !exists || q.Price <= 0 {
			continue
		}

		metrics.AlertsEvaluated.Inc()

		if Evaluate(a, q.Price, prevFor(prev, a.Symbol)) {
			firings = append(firings, types.Firing{Alert: a, Price: q.Price})
			metrics.AlertsTriggered.WithLabelValues(string(a.Kind)).Inc()
			log.Infof("alert triggered: %s %s @ %.5f (target %.5f, id=%d)",
				a.Kind, a.Symbol, q.Price, a.Target, a.ID)
		}
	}

	return firings, nil
}

func (e *Engine) evaluateCorrelations(quotes map[string]types.Quote, prev map[string]float64) ([]types.CorrelationFiring, error) {
	alerts, err := e.store.ActiveCorrelationAlerts()
	if err != nil {
		return nil, errors.Wrap(err, "could not load correlation alerts")
	}

	var firings []types.CorrelationFiring
	for _, c := range alerts {
		symbol, price, ok := EvaluateCorrelation(c, quotes, prev)
		if !ok {
			continue
		}
		firings = append(firings, types.CorrelationFiring{Alert: c, TriggeredBy: symbol, Price: price})
		metrics.AlertsTriggered.WithLabelValues("correlation").Inc()
		log.Infof("correlation alert triggered: %s/%s via %s @ %.5f (id=%d)",
			c.Symbol1, c.Symbol2, symbol, price, c.ID)
	}

	return firings, nil
}

// claimAlerts flips the fired rows before anything is sent, and keeps only
// the firings the store confirmed. A row another process already claimed is
// dropped silently.
func (e *Engine) claimAlerts(firings []types.Firing) ([]types.Firing, error) {
	if len(firings) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(firings))
	for i, f := range firings {
		ids[i] = f.Alert.ID
	}

	claimed, err := e.store.ClaimAlerts(ids, time.Now())
	if err != nil {
		return nil, err
	}

	claimedSet := make(map[int64]bool, len(claimed))
	for _, id := range claimed {
		claimedSet[id] = true
	}

	var confirmed []types.Firing
	for _, f := range firings {
		if claimedSet[f.Alert.ID] {
			confirmed = append(confirmed, f)
		} else {
			log.Warnf("alert %d was already claimed, skipping notification", f.Alert.ID)
		}
	}

	return confirmed, nil
}

func (e *Engine) claimCorrelations(firings []types.CorrelationFiring) []types.CorrelationFiring {
	var confirmed []types.CorrelationFiring
	for _, f := range firings {
		ok, err := e.store.ClaimCorrelationAlert(f.Alert.ID, f.TriggeredBy, time.Now())
		if err != nil {
			log.Errorf("failed to claim correlation alert %d: %v", f.Alert.ID, err)
			continue
		}
		if !ok {
			log.Warnf("correlation alert %d was already claimed, skipping notification", f.Alert.ID)
			continue
		}
		confirmed = append(confirmed, f)
	}
	return confirmed
}
