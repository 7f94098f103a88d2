package database

import (
	"database/sql"
	"fmt"
	"log"
)

var DB *sql.DB

func InitDB(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	createProfilesTable := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL DEFAULT 'free',
		telegram_id TEXT DEFAULT '',
		whatsapp TEXT DEFAULT '',
		email TEXT DEFAULT ''
	);`
	_, err = DB.Exec(createProfilesTable)
	if err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}

	createAlertsTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		price REAL NOT NULL,
		direction TEXT DEFAULT '',
		pip_buffer REAL DEFAULT 5,
		zone_high REAL,
		is_active INTEGER NOT NULL DEFAULT 1,
		triggered_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	_, err = DB.Exec(createAlertsTable)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	createCorrelationTable := `
	CREATE TABLE IF NOT EXISTS correlation_alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		symbol1 TEXT NOT NULL,
		symbol2 TEXT NOT NULL,
		zone_low REAL NOT NULL,
		zone_high REAL NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		triggered_at TIMESTAMP,
		triggered_by TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	_, err = DB.Exec(createCorrelationTable)
	if err != nil {
		return fmt.Errorf("failed to create correlation_alerts table: %w", err)
	}

	createMetricsTable := `
		CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT DEFAULT NULL,
		label_value TEXT DEFAULT NULL,
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	_, err = DB.Exec(createMetricsTable)
	if err != nil {
		return fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Println("Database initialized successfully.")
	return nil
}

func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
