package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS reviews (
					id TEXT PRIMARY KEY,
					category_1 TEXT NOT NULL,
					category_2 TEXT NOT NULL,
					text TEXT NOT NULL,
					rating INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_reviews_stratum ON reviews(category_1, category_2)`,

				`CREATE TABLE IF NOT EXISTS labels (
					cache_key TEXT PRIMARY KEY,
					review_id TEXT NOT NULL,
					status TEXT NOT NULL,
					sentiment TEXT,
					sentiment_score REAL,
					aspects TEXT,
					evidence TEXT,
					summary TEXT,
					error TEXT,
					tokens_in INTEGER DEFAULT 0,
					tokens_out INTEGER DEFAULT 0,
					cost REAL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (review_id) REFERENCES reviews(id)
				)`,
				`CREATE INDEX idx_labels_review_id ON labels(review_id)`,
				`CREATE INDEX idx_labels_status ON labels(status)`,

				`CREATE TABLE IF NOT EXISTS judge_results (
					review_id TEXT PRIMARY KEY,
					decision TEXT NOT NULL,
					fixed TEXT,
					changes TEXT,
					confidence REAL DEFAULT 0,
					issues TEXT,
					reason TEXT,
					tokens_in INTEGER DEFAULT 0,
					tokens_out INTEGER DEFAULT 0,
					cost REAL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (review_id) REFERENCES reviews(id)
				)`,

				`CREATE TABLE IF NOT EXISTS final_records (
					review_id TEXT PRIMARY KEY,
					category_1 TEXT NOT NULL,
					category_2 TEXT NOT NULL,
					text TEXT NOT NULL,
					rating INTEGER NOT NULL,
					sentiment TEXT,
					sentiment_score REAL,
					aspects TEXT,
					evidence TEXT,
					summary TEXT,
					status TEXT NOT NULL,
					weight REAL NOT NULL,
					needs_audit INTEGER DEFAULT 0,
					rule_codes TEXT,
					changes TEXT,
					original TEXT,
					merged_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_final_records_status ON final_records(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add run summaries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					sampled INTEGER DEFAULT 0,
					summary TEXT NOT NULL
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.Version <= int(current.Int64) {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
