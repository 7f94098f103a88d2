package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketwatch-backend/internal/types"

	_ "modernc.org/sqlite"
)

// GetActiveSymbols returns every unique symbol referenced by an active,
// untriggered alert, including both legs of correlation alerts.
func GetActiveSymbols() ([]string, error) {
	query := `
	SELECT symbol FROM alerts WHERE is_active = 1 AND triggered_at IS NULL
	UNION
	SELECT symbol1 FROM correlation_alerts WHERE is_active = 1 AND triggered_at IS NULL
	UNION
	SELECT symbol2 FROM correlation_alerts WHERE is_active = 1 AND triggered_at IS NULL;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetActiveAlerts fetches active, untriggered alerts for the given symbols,
// joined with the owner's channel and tier fields.
func GetActiveAlerts(symbols []string) ([]types.Alert, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(symbols))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
	SELECT a.id, a.user_id, a.symbol, a.alert_type, a.price, a.direction,
	       a.pip_buffer, a.zone_high, a.created_at,
	       p.tier, p.telegram_id, p.whatsapp, p.email
	FROM alerts a
	LEFT JOIN profiles p ON p.user_id = a.user_id
	WHERE a.is_active = 1 AND a.triggered_at IS NULL AND a.symbol IN (%s);`, placeholders)

	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = s
	}

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		var direction, tier, telegramID, whatsapp, email sql.NullString
		var zoneHigh sql.NullFloat64

		if err := rows.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Kind, &a.Target, &direction,
			&a.PipBuffer, &zoneHigh, &a.CreatedAt,
			&tier, &telegramID, &whatsapp, &email); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.Direction = types.Direction(direction.String)
		if zoneHigh.Valid {
			v := zoneHigh.Float64
			a.ZoneHigh = &v
		}
		a.IsActive = true
		a.Profile = scanProfile(tier, telegramID, whatsapp, email)
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// GetActiveCorrelationAlerts fetches every active, untriggered correlation
// alert with the owner's profile. Leg filtering happens against the quote map.
func GetActiveCorrelationAlerts() ([]types.CorrelationAlert, error) {
	query := `
	SELECT c.id, c.user_id, c.symbol1, c.symbol2, c.zone_low, c.zone_high, c.created_at,
	       p.tier, p.telegram_id, p.whatsapp, p.email
	FROM correlation_alerts c
	LEFT JOIN profiles p ON p.user_id = c.user_id
	WHERE c.is_active = 1 AND c.triggered_at IS NULL;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.CorrelationAlert
	for rows.Next() {
		var c types.CorrelationAlert
		var tier, telegramID, whatsapp, email sql.NullString

		if err := rows.Scan(&c.ID, &c.UserID, &c.Symbol1, &c.Symbol2, &c.ZoneLow, &c.ZoneHigh,
			&c.CreatedAt, &tier, &telegramID, &whatsapp, &email); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		c.IsActive = true
		c.Profile = scanProfile(tier, telegramID, whatsapp, email)
		alerts = append(alerts, c)
	}

	return alerts, rows.Err()
}

// ClaimAlerts marks the given alerts inactive and stamps the trigger time in
// one transaction. Each row is flipped conditionally, so an alert that was
// already claimed elsewhere is skipped. Returns the ids actually claimed.
func ClaimAlerts(ids []int64, triggeredAt time.Time) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}

	query := `
	UPDATE alerts SET is_active = 0, triggered_at = ?
	WHERE id = ? AND is_active = 1 AND triggered_at IS NULL;`

	var claimed []int64
	for _, id := range ids {
		res, err := tx.Exec(query, triggeredAt.UTC().Format(time.RFC3339), id)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to claim alert %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to read rows affected for alert %d: %w", id, err)
		}
		if affected > 0 {
			claimed = append(claimed, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return claimed, nil
}

// ClaimCorrelationAlert conditionally marks a correlation alert triggered,
// recording which leg fired. Returns false if the row was already claimed.
func ClaimCorrelationAlert(id int64, triggeredBy string, triggeredAt time.Time) (bool, error) {
	query := `
	UPDATE correlation_alerts SET is_active = 0, triggered_at = ?, triggered_by = ?
	WHERE id = ? AND is_active = 1 AND triggered_at IS NULL;`

	res, err := DB.Exec(query, triggeredAt.UTC().Format(time.RFC3339), triggeredBy, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim correlation alert %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for correlation alert %d: %w", id, err)
	}
	return affected > 0, nil
}

func scanProfile(tier, telegramID, whatsapp, email sql.NullString) types.Profile {
	p := types.Profile{
		Tier:       types.Tier(tier.String),
		TelegramID: telegramID.String,
		WhatsApp:   whatsapp.String,
		Email:      email.String,
	}
	if p.Tier == "" {
		p.Tier = types.TierFree
	}
	return p
}
