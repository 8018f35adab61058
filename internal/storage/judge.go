package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// SaveJudgeVerdict upserts the arbitration outcome for one review.
func (s *SQLiteStorage) SaveJudgeVerdict(ctx context.Context, verdict *model.JudgeVerdict) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if verdict == nil {
		return fmt.Errorf("%w: verdict", ErrNilParameter)
	}
	if err := validateString(verdict.ReviewID, "verdict.ReviewID"); err != nil {
		return err
	}

	var fixed []byte
	if verdict.Fixed != nil {
		var err error
		fixed, err = json.Marshal(verdict.Fixed)
		if err != nil {
			return fmt.Errorf("failed to marshal fixed label: %w", err)
		}
	}
	changes, err := json.Marshal(verdict.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}
	issues, err := json.Marshal(verdict.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO judge_results (
			review_id, decision, fixed, changes, confidence, issues, reason,
			tokens_in, tokens_out, cost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(review_id) DO UPDATE SET
			decision = excluded.decision,
			fixed = excluded.fixed,
			changes = excluded.changes,
			confidence = excluded.confidence,
			issues = excluded.issues,
			reason = excluded.reason,
			tokens_in = excluded.tokens_in,
			tokens_out = excluded.tokens_out,
			cost = excluded.cost
	`,
		verdict.ReviewID, string(verdict.Decision), nullableJSON(fixed),
		string(changes), verdict.Confidence, string(issues), verdict.Reason,
		verdict.TokensIn, verdict.TokensOut, verdict.Cost,
	)
	if err != nil {
		return fmt.Errorf("failed to save judge verdict: %w", err)
	}
	return nil
}

// GetJudgeVerdicts returns all stored verdicts keyed by review ID.
func (s *SQLiteStorage) GetJudgeVerdicts(ctx context.Context) (map[string]model.JudgeVerdict, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, decision, fixed, changes, confidence, issues, reason,
		       tokens_in, tokens_out, cost
		FROM judge_results
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query judge verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	verdicts := make(map[string]model.JudgeVerdict)
	for rows.Next() {
		var (
			v        model.JudgeVerdict
			decision string
			fixed    sql.NullString
			changes  sql.NullString
			issues   sql.NullString
		)
		err := rows.Scan(
			&v.ReviewID, &decision, &fixed, &changes, &v.Confidence,
			&issues, &v.Reason, &v.TokensIn, &v.TokensOut, &v.Cost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan judge verdict: %w", err)
		}

		v.Decision = model.JudgeDecision(decision)
		if fixed.Valid && fixed.String != "" {
			var label model.Label
			if err := json.Unmarshal([]byte(fixed.String), &label); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fixed label: %w", err)
			}
			v.Fixed = &label
		}
		if err := unmarshalNullable(changes, &v.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
		if err := unmarshalNullable(issues, &v.Issues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
		}

		verdicts[v.ReviewID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate judge verdicts: %w", err)
	}

	return verdicts, nil
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func unmarshalNullable(col sql.NullString, dest any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}
