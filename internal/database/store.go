package database

import (
	"time"

	"marketwatch-backend/internal/types"
)

// AlertStore adapts the package-level queries to the engine's Store interface.
type AlertStore struct{}

func (AlertStore) ActiveSymbols() ([]string, error) {
	return GetActiveSymbols()
}

func (AlertStore) ActiveAlerts(symbols []string) ([]types.Alert, error) {
	return GetActiveAlerts(symbols)
}

func (AlertStore) ActiveCorrelationAlerts() ([]types.CorrelationAlert, error) {
	return GetActiveCorrelationAlerts()
}

func (AlertStore) ClaimAlerts(ids []int64, triggeredAt time.Time) ([]int64, error) {
	return ClaimAlerts(ids, triggeredAt)
}

func (AlertStore) ClaimCorrelationAlert(id int64, triggeredBy string, triggeredAt time.Time) (bool, error) {
	return ClaimCorrelationAlert(id, triggeredBy, triggeredAt)
}
