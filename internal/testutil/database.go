// Package testutil provides shared fixtures for tests that need a migrated
// database or canned review data.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/storage"
)

// SetupTestDB creates a migrated in-memory database with automatic cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// Reviews builds n reviews in one stratum with sequential IDs and a fixed
// rating.
func Reviews(prefix, cat1, cat2 string, rating, n int) []model.Review {
	reviews := make([]model.Review, 0, n)
	for i := 0; i < n; i++ {
		reviews = append(reviews, model.Review{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Category1: cat1,
			Category2: cat2,
			Text:      fmt.Sprintf("%s 리뷰 본문 %d", cat2, i),
			Rating:    rating,
		})
	}
	return reviews
}
