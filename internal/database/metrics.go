package database

import (
	"database/sql"
	"fmt"
)

// SaveMetric persists an engine counter so it survives restarts.
func SaveMetric(metricName, labelKey, labelValue string, value float64) error {
	query := `
	INSERT OR REPLACE INTO metrics (metric_name, label_key, label_value, metric_value)
	VALUES (?, ?, ?, ?);`
	_, err := DB.Exec(query, metricName, labelKey, labelValue, value)
	if err != nil {
		return fmt.Errorf("failed to save metric: %w", err)
	}
	return nil
}

// GetMetric loads an unlabeled counter value, defaulting to 0 when absent.
func GetMetric(metricName string) (float64, error) {
	var value float64
	query := `
	SELECT metric_value
	FROM metrics
	WHERE metric_name = ? AND label_key = '' AND label_value = '';`
	err := DB.QueryRow(query, metricName).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get metric %s: %w", metricName, err)
	}
	return value, nil
}

// GetMetricsWithLabels fetches all labeled series for a given metric name,
// keyed label value -> counter value. The engine uses a single label per
// metric (alert kind, channel name).
func GetMetricsWithLabels(metricName string) (map[string]float64, error) {
	query := `
	SELECT label_value, metric_value
	FROM metrics
	WHERE metric_name = ? AND label_value != '';`

	rows, err := DB.Query(query, metricName)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics with labels: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var labelValue string
		var value float64
		if err := rows.Scan(&labelValue, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		metrics[labelValue] = value
	}
	return metrics, rows.Err()
}
