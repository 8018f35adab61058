package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// SaveReviews stores the sampled review set atomically, replacing any
// previous sample.
func (s *SQLiteStorage) SaveReviews(ctx context.Context, reviews []model.Review) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM reviews`); err != nil {
			return fmt.Errorf("failed to clear reviews: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO reviews (id, category_1, category_2, text, rating)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range reviews {
			r := &reviews[i]
			if _, err := stmt.Exec(r.ID, r.Category1, r.Category2, r.Text, r.Rating); err != nil {
				return fmt.Errorf("failed to insert review %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// GetReviews returns the sampled review set in stored order.
func (s *SQLiteStorage) GetReviews(ctx context.Context) ([]model.Review, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_1, category_2, text, rating
		FROM reviews
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.Category1, &r.Category2, &r.Text, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}
