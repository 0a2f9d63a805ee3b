// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package daemon

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite3 driver

	"github.com/we-are-mono/wledbridge/host"
)

// DefaultHistoryLimit is used when a query asks for no particular limit
const DefaultHistoryLimit = 100

// HistoryRecord is one stored driver value
type HistoryRecord struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address"`
	Driver    string    `json:"driver"`
	Value     int       `json:"value"`
	UOM       int       `json:"uom"`
}

// History records driver values reported by the plugin in SQLite
type History struct {
	path  string
	runID string
	db    *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
// Every row written through the returned store carries runID.
func OpenHistory(path, runID string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	h := &History{path: path, runID: runID, db: db}
	if err := h.initializeSchema(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS driver_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			address    TEXT NOT NULL,
			driver     TEXT NOT NULL,
			value      INTEGER NOT NULL,
			uom        INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_node ON driver_history(address, driver);
		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON driver_history(timestamp);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create driver_history table: %w", err)
	}
	return nil
}

// Path returns the database file path
func (h *History) Path() string {
	return h.path
}

// Record stores one driver value
func (h *History) Record(address string, driver host.Driver, at time.Time) error {
	_, err := h.db.Exec(
		`INSERT INTO driver_history (run_id, timestamp, address, driver, value, uom) VALUES (?, ?, ?, ?, ?, ?)`,
		h.runID, at.UTC().Format(time.RFC3339Nano), address, driver.Name, driver.Value, driver.UOM)
	if err != nil {
		return fmt.Errorf("failed to insert driver value: %w", err)
	}
	return nil
}

// Query returns the most recent values for a node, oldest first. An empty
// driver matches every driver; limit <= 0 uses DefaultHistoryLimit.
func (h *History) Query(address, driver string, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, run_id, timestamp, address, driver, value, uom FROM driver_history WHERE address = ?`
	args := []interface{}{address}
	if driver != "" {
		query += ` AND driver = ?`
		args = append(args, driver)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.RunID, &ts, &rec.Address, &rec.Driver, &rec.Value, &rec.UOM); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Count returns the number of stored rows
func (h *History) Count() (int, error) {
	var n int
	if err := h.db.QueryRow("SELECT COUNT(*) FROM driver_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}
