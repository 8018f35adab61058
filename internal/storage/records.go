package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// SaveFinalRecords publishes the finalized corpus atomically: either the full
// set replaces the previous one or nothing changes.
func (s *SQLiteStorage) SaveFinalRecords(ctx context.Context, records []model.FinalRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM final_records`); err != nil {
			return fmt.Errorf("failed to clear final records: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO final_records (
				review_id, category_1, category_2, text, rating,
				sentiment, sentiment_score, aspects, evidence, summary,
				status, weight, needs_audit, rule_codes, changes, original, merged_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range records {
			rec := &records[i]

			aspects, err := json.Marshal(rec.Label.Aspects)
			if err != nil {
				return fmt.Errorf("failed to marshal aspects: %w", err)
			}
			ruleCodes, err := json.Marshal(rec.RuleCodes)
			if err != nil {
				return fmt.Errorf("failed to marshal rule codes: %w", err)
			}
			changes, err := json.Marshal(rec.Changes)
			if err != nil {
				return fmt.Errorf("failed to marshal changes: %w", err)
			}
			var original []byte
			if rec.Original != nil {
				original, err = json.Marshal(rec.Original)
				if err != nil {
					return fmt.Errorf("failed to marshal original label: %w", err)
				}
			}

			_, err = stmt.Exec(
				rec.Review.ID, rec.Review.Category1, rec.Review.Category2,
				rec.Review.Text, rec.Review.Rating,
				string(rec.Label.Sentiment), rec.Label.SentimentScore,
				string(aspects), rec.Label.Evidence, rec.Label.Summary,
				string(rec.Status), rec.Weight, rec.NeedsAudit,
				string(ruleCodes), string(changes), nullableJSON(original),
				rec.MergedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				return fmt.Errorf("failed to insert final record %s: %w", rec.Review.ID, err)
			}
		}
		return nil
	})
}

// GetFinalRecords returns the finalized corpus in stored order.
func (s *SQLiteStorage) GetFinalRecords(ctx context.Context) ([]model.FinalRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, category_1, category_2, text, rating,
		       sentiment, sentiment_score, aspects, evidence, summary,
		       status, weight, needs_audit, rule_codes, changes, original, merged_at
		FROM final_records
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query final records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FinalRecord
	for rows.Next() {
		var (
			rec       model.FinalRecord
			sentiment string
			status    string
			aspects   sql.NullString
			ruleCodes sql.NullString
			changes   sql.NullString
			original  sql.NullString
			mergedAt  string
		)
		err := rows.Scan(
			&rec.Review.ID, &rec.Review.Category1, &rec.Review.Category2,
			&rec.Review.Text, &rec.Review.Rating,
			&sentiment, &rec.Label.SentimentScore,
			&aspects, &rec.Label.Evidence, &rec.Label.Summary,
			&status, &rec.Weight, &rec.NeedsAudit,
			&ruleCodes, &changes, &original, &mergedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan final record: %w", err)
		}

		rec.Label.Sentiment = model.Sentiment(sentiment)
		rec.Status = model.RecordStatus(status)
		if err := unmarshalNullable(aspects, &rec.Label.Aspects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal aspects: %w", err)
		}
		if err := unmarshalNullable(ruleCodes, &rec.RuleCodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule codes: %w", err)
		}
		if err := unmarshalNullable(changes, &rec.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
		if original.Valid && original.String != "" {
			var label model.Label
			if err := json.Unmarshal([]byte(original.String), &label); err != nil {
				return nil, fmt.Errorf("failed to unmarshal original label: %w", err)
			}
			rec.Original = &label
		}
		if rec.MergedAt, err = time.Parse(time.RFC3339Nano, mergedAt); err != nil {
			return nil, fmt.Errorf("failed to parse merged_at: %w", err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate final records: %w", err)
	}

	return records, nil
}

// ClearFinalRecords drops the finalized corpus ahead of a fresh merge.
func (s *SQLiteStorage) ClearFinalRecords(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM final_records`); err != nil {
		return fmt.Errorf("failed to clear final records: %w", err)
	}
	return nil
}
