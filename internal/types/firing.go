package types

// Firing is a single-symbol alert whose condition was satisfied and whose
// claim was confirmed by the store.
type Firing struct {
	Alert Alert
	Price float64
}

// CorrelationFiring is a claimed correlation alert firing, recording which
// leg entered the zone.
type CorrelationFiring struct {
	Alert       CorrelationAlert
	TriggeredBy string
	Price       float64
}
