package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens the local SQLite database and creates the schemas for
// matches, the immutable event log and the derived player stats.
func InitSQLite(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

// ConfigurePool applies connection pool limits from the optimization profile.
// SQLite serialises writers, so more than a handful of connections only helps readers.
func ConfigurePool(db *sql.DB, maxOpen, maxIdle int) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			tick INTEGER NOT NULL,
			FOREIGN KEY (match_id) REFERENCES matches(match_id)
		);`,
		`CREATE TABLE IF NOT EXISTS player_stats (
			player_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			joins INTEGER NOT NULL DEFAULT 0,
			respawns INTEGER NOT NULL DEFAULT 0,
			splits INTEGER NOT NULL DEFAULT 0,
			ejections INTEGER NOT NULL DEFAULT 0,
			virus_pops INTEGER NOT NULL DEFAULT 0,
			cells_eaten INTEGER NOT NULL DEFAULT 0,
			mass_eaten REAL NOT NULL DEFAULT 0.0,
			times_eaten INTEGER NOT NULL DEFAULT 0,
			anti_team_hits INTEGER NOT NULL DEFAULT 0,
			decay_mult REAL NOT NULL DEFAULT 1.0,
			last_updated DATETIME NOT NULL,
			PRIMARY KEY (match_id, player_id),
			FOREIGN KEY (match_id) REFERENCES matches(match_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_match_id ON events(match_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_actor_id ON events(actor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_tick ON events(match_id, tick);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// EnsureMatch registers a match row so events and stats can reference it.
// Registering an existing match is a no-op.
func EnsureMatch(ctx context.Context, db *sql.DB, matchID, mode string) error {
	query := `INSERT INTO matches (match_id, mode, started_at) VALUES (?, ?, ?) ON CONFLICT(match_id) DO NOTHING`
	if _, err := db.ExecContext(ctx, query, matchID, mode, time.Now()); err != nil {
		return fmt.Errorf("failed to register match %s: %w", matchID, err)
	}
	return nil
}
