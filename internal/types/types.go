package types

import "time"

// AlertKind is the closed set of single-symbol alert conditions.
type AlertKind string

const (
	KindTouch AlertKind = "touch"
	KindCross AlertKind = "cross"
	KindNear  AlertKind = "near"
	KindZone  AlertKind = "zone"
)

// Direction qualifies touch and cross alerts. Empty means no direction.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
	DirectionNone  Direction = ""
)

// Tier is the subscription level gating channel eligibility.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

// Paid reports whether the tier unlocks WhatsApp delivery.
func (t Tier) Paid() bool {
	return t == TierPro || t == TierElite
}

// Profile carries the subscriber fields the notifier routes on.
// Empty strings mean the channel is not linked.
type Profile struct {
	Tier       Tier   `json:"tier"`
	TelegramID string `json:"telegram_id"`
	WhatsApp   string `json:"whatsapp"`
	Email      string `json:"email"`
}

// Alert is a single-symbol price alert.
type Alert struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Symbol      string     `json:"symbol"`
	Kind        AlertKind  `json:"alert_type"`
	Target      float64    `json:"price"`
	Direction   Direction  `json:"direction"`
	PipBuffer   float64    `json:"pip_buffer"`
	ZoneHigh    *float64   `json:"zone_high,omitempty"` // only for KindZone, > Target
	IsActive    bool       `json:"is_active"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	Profile     Profile    `json:"profiles"`
}

// CorrelationAlert fires when either leg enters or crosses into the zone.
type CorrelationAlert struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Symbol1     string     `json:"symbol1"`
	Symbol2     string     `json:"symbol2"`
	ZoneLow     float64    `json:"zone_low"`
	ZoneHigh    float64    `json:"zone_high"`
	IsActive    bool       `json:"is_active"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	TriggeredBy string     `json:"triggered_by"`
	CreatedAt   string     `json:"created_at"`
	Profile     Profile    `json:"profiles"`
}

// Quote is one symbol's latest price snapshot from the quote source.
type Quote struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"changePercentage"`
	Name      string  `json:"name"`
}
