package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

// SaveRunSummary stores the per-run report.
func (s *SQLiteStorage) SaveRunSummary(ctx context.Context, summary *service.RunSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("%w: summary", ErrNilParameter)
	}
	if err := validateString(summary.RunID, "summary.RunID"); err != nil {
		return err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, sampled, summary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			sampled = excluded.sampled,
			summary = excluded.summary
	`,
		summary.RunID,
		summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.FinishedAt.UTC().Format(time.RFC3339Nano),
		summary.Sampled,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// GetLatestRunSummary returns the most recently finished run report.
// Returns common.ErrNotFound when no run has completed.
func (s *SQLiteStorage) GetLatestRunSummary(ctx context.Context) (*service.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT summary FROM runs ORDER BY finished_at DESC LIMIT 1
	`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run summary: %w", err)
	}

	var summary service.RunSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}
