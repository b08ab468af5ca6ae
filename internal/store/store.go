// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package store is the durable persistence gateway for events and anomalies,
// backed by DuckDB. It is the single writer of record; window state is
// transient and reconstructible, this is not.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/signalguard/signalguard/internal/models"
)

// Config holds DuckDB settings.
type Config struct {
	// Path is the database file; ":memory:" runs fully in memory.
	Path      string
	MaxMemory string
	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int
}

// DB wraps the DuckDB connection and provides the persistence gateway
// contract: durable append of events and anomalies, anomaly queries, and a
// reachability probe.
type DB struct {
	conn *sql.DB
}

// New opens the database and initializes the schema.
func New(cfg Config) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = "1GB"
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		// Ensure the parent directory exists before DuckDB opens the file
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, numThreads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initialize(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// initialize creates the schema if it does not exist.
func (db *DB) initialize() error {
	schema := []string{
		`CREATE SEQUENCE IF NOT EXISTS events_id_seq`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY DEFAULT nextval('events_id_seq'),
			user_id VARCHAR NOT NULL,
			agent_id VARCHAR,
			signal_type VARCHAR NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			payload VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events (user_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			signal_type VARCHAR NOT NULL,
			detected_at TIMESTAMP NOT NULL,
			count INTEGER NOT NULL,
			window_start TIMESTAMP NOT NULL,
			severity VARCHAR NOT NULL,
			rule VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_user_detected ON anomalies (user_id, detected_at)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// AppendEvent durably appends one event.
func (db *DB) AppendEvent(ctx context.Context, event *models.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO events (user_id, agent_id, signal_type, timestamp, payload)
		 VALUES (?, ?, ?, ?, ?)`,
		event.UserID, event.AgentID, event.SignalType, event.Timestamp.UTC(), string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// AppendAnomaly durably appends one anomaly record. An empty ID gets a
// generated UUID.
func (db *DB) AppendAnomaly(ctx context.Context, anomaly *models.Anomaly) error {
	id := anomaly.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO anomalies (id, user_id, signal_type, detected_at, count, window_start, severity, rule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, anomaly.UserID, anomaly.SignalType, anomaly.DetectedAt.UTC(),
		anomaly.Count, anomaly.WindowStart.UTC(), string(anomaly.Severity), anomaly.Rule,
	)
	if err != nil {
		return fmt.Errorf("failed to append anomaly: %w", err)
	}
	return nil
}

// QueryAnomalies returns a user's anomalies most recent first. A limit of 0
// applies the default of 100.
func (db *DB) QueryAnomalies(ctx context.Context, userID string, limit int) ([]models.Anomaly, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, signal_type, detected_at, count, window_start, severity, rule
		 FROM anomalies
		 WHERE user_id = ?
		 ORDER BY detected_at DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	anomalies := make([]models.Anomaly, 0)
	for rows.Next() {
		var a models.Anomaly
		var severity string
		if err := rows.Scan(&a.ID, &a.UserID, &a.SignalType, &a.DetectedAt,
			&a.Count, &a.WindowStart, &severity, &a.Rule); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		a.Severity = models.Severity(severity)
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// CountEvents returns the number of stored events for a user.
func (db *DB) CountEvents(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
