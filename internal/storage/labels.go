package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// GetLabelResult looks up the durable labeling entry for a cache key.
// Returns common.ErrNotFound when no entry exists.
func (s *SQLiteStorage) GetLabelResult(ctx context.Context, cacheKey string) (*model.LabelResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(cacheKey, "cacheKey"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT cache_key, review_id, status, sentiment, sentiment_score,
		       aspects, evidence, summary, error, tokens_in, tokens_out, cost
		FROM labels
		WHERE cache_key = ?
	`, cacheKey)

	result, err := scanLabelResult(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label result: %w", err)
	}
	return result, nil
}

// SaveLabelResult appends one terminal labeling entry. The insert ignores
// duplicates on the cache key, so a retried save after a crash never
// double-counts a billed call.
func (s *SQLiteStorage) SaveLabelResult(ctx context.Context, result *model.LabelResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if err := validateString(result.CacheKey, "result.CacheKey"); err != nil {
		return err
	}

	aspects, err := json.Marshal(result.Label.Aspects)
	if err != nil {
		return fmt.Errorf("failed to marshal aspects: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO labels (
			cache_key, review_id, status, sentiment, sentiment_score,
			aspects, evidence, summary, error, tokens_in, tokens_out, cost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.CacheKey, result.ReviewID, string(result.Status),
		string(result.Label.Sentiment), result.Label.SentimentScore,
		string(aspects), result.Label.Evidence, result.Label.Summary,
		result.ErrorMessage, result.TokensIn, result.TokensOut, result.Cost,
	)
	if err != nil {
		return fmt.Errorf("failed to save label result: %w", err)
	}
	return nil
}

// GetLabelResults returns all labeling entries keyed by cache key.
func (s *SQLiteStorage) GetLabelResults(ctx context.Context) (map[string]model.LabelResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, review_id, status, sentiment, sentiment_score,
		       aspects, evidence, summary, error, tokens_in, tokens_out, cost
		FROM labels
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query label results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make(map[string]model.LabelResult)
	for rows.Next() {
		result, err := scanLabelResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan label result: %w", err)
		}
		results[result.CacheKey] = *result
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate label results: %w", err)
	}

	return results, nil
}

// DeleteErroredLabels removes entries with error status so the next labeling
// pass retries only those reviews. Returns the number of entries cleared.
func (s *SQLiteStorage) DeleteErroredLabels(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE status = ?`, string(model.LabelStatusError))
	if err != nil {
		return 0, fmt.Errorf("failed to delete errored labels: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabelResult(row rowScanner) (*model.LabelResult, error) {
	var (
		result    model.LabelResult
		status    string
		sentiment string
		aspects   sql.NullString
	)
	err := row.Scan(
		&result.CacheKey, &result.ReviewID, &status, &sentiment,
		&result.Label.SentimentScore, &aspects, &result.Label.Evidence,
		&result.Label.Summary, &result.ErrorMessage,
		&result.TokensIn, &result.TokensOut, &result.Cost,
	)
	if err != nil {
		return nil, err
	}

	result.Status = model.LabelStatus(status)
	result.Label.Sentiment = model.Sentiment(sentiment)
	if aspects.Valid && aspects.String != "" {
		if err := json.Unmarshal([]byte(aspects.String), &result.Label.Aspects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal aspects: %w", err)
		}
	}
	return &result, nil
}
