package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestDB(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveAndGetReviews(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	reviews := []model.Review{
		{ID: "r1", Category1: "스킨케어", Category2: "크림", Text: "촉촉해요", Rating: 5},
		{ID: "r2", Category1: "스킨케어", Category2: "토너", Text: "자극적이에요", Rating: 2},
	}
	require.NoError(t, store.SaveReviews(ctx, reviews))

	got, err := store.GetReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, reviews, got)

	// A second save replaces the previous sample.
	require.NoError(t, store.SaveReviews(ctx, reviews[:1]))
	got, err = store.GetReviews(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLabelResultAtMostOnce(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first := &model.LabelResult{
		ReviewID: "r1",
		CacheKey: "key-1",
		Status:   model.LabelStatusOK,
		Label: model.Label{
			Sentiment:      model.SentimentPositive,
			SentimentScore: 0.9,
			Aspects:        []string{"품질/불량"},
			Evidence:       "촉촉해요",
			Summary:        "보습력 만족",
		},
		TokensIn:  120,
		TokensOut: 40,
		Cost:      0.0001,
	}
	require.NoError(t, store.SaveLabelResult(ctx, first))

	// A duplicate save for the same cache key is ignored.
	second := &model.LabelResult{
		ReviewID: "r1",
		CacheKey: "key-1",
		Status:   model.LabelStatusError,
		Cost:     99,
	}
	require.NoError(t, store.SaveLabelResult(ctx, second))

	got, err := store.GetLabelResult(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, model.LabelStatusOK, got.Status)
	assert.Equal(t, first.Label, got.Label)
	assert.Equal(t, first.Cost, got.Cost)
}

func TestGetLabelResultNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetLabelResult(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteErroredLabels(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLabelResult(ctx, &model.LabelResult{
		ReviewID: "r1", CacheKey: "ok-key", Status: model.LabelStatusOK,
	}))
	require.NoError(t, store.SaveLabelResult(ctx, &model.LabelResult{
		ReviewID: "r2", CacheKey: "err-key", Status: model.LabelStatusError, ErrorMessage: "timeout",
	}))

	deleted, err := store.DeleteErroredLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	results, err := store.GetLabelResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results, "ok-key")
}

func TestSaveJudgeVerdictUpsert(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	fixed := &model.Label{
		Sentiment:      model.SentimentNegative,
		SentimentScore: 0.2,
		Aspects:        []string{"배송/포장"},
		Evidence:       "포장이 찢어져 왔어요",
		Summary:        "포장 파손",
	}
	verdict := &model.JudgeVerdict{
		ReviewID:   "r1",
		Decision:   model.JudgeFix,
		Fixed:      fixed,
		Changes:    []string{"sentiment", "sentiment_score"},
		Confidence: 0.85,
		Issues:     []string{"rating contradicts sentiment"},
		Reason:     "별점 1점인데 긍정으로 라벨링됨",
		TokensIn:   200,
		TokensOut:  80,
		Cost:       0.0002,
	}
	require.NoError(t, store.SaveJudgeVerdict(ctx, verdict))

	// Re-judging the same review replaces the verdict.
	verdict.Decision = model.JudgeOK
	verdict.Fixed = nil
	verdict.Changes = nil
	require.NoError(t, store.SaveJudgeVerdict(ctx, verdict))

	verdicts, err := store.GetJudgeVerdicts(ctx)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)

	got := verdicts["r1"]
	assert.Equal(t, model.JudgeOK, got.Decision)
	assert.Nil(t, got.Fixed)
	assert.Equal(t, 0.85, got.Confidence)
	assert.Equal(t, []string{"rating contradicts sentiment"}, got.Issues)
}

func TestJudgeVerdictFixedRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	fixed := &model.Label{
		Sentiment:      model.SentimentNeutral,
		SentimentScore: 0.5,
		Aspects:        []string{"가격/가성비", "디자인"},
		Evidence:       "가격 대비 무난",
		Summary:        "가성비 보통",
	}
	require.NoError(t, store.SaveJudgeVerdict(ctx, &model.JudgeVerdict{
		ReviewID: "r2",
		Decision: model.JudgeFix,
		Fixed:    fixed,
		Changes:  []string{"aspect_labels"},
	}))

	verdicts, err := store.GetJudgeVerdicts(ctx)
	require.NoError(t, err)
	require.NotNil(t, verdicts["r2"].Fixed)
	assert.Equal(t, *fixed, *verdicts["r2"].Fixed)
	assert.Equal(t, []string{"aspect_labels"}, verdicts["r2"].Changes)
}

func TestFinalRecordsRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	mergedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	original := &model.Label{Sentiment: model.SentimentPositive, SentimentScore: 0.9}
	records := []model.FinalRecord{
		{
			Review: model.Review{ID: "r1", Category1: "스킨케어", Category2: "크림", Text: "좋아요", Rating: 5},
			Label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.9,
				Aspects:        []string{"사용감/성능"},
				Evidence:       "좋아요",
				Summary:        "사용감 만족",
			},
			Status:   model.StatusVerified,
			Weight:   model.WeightDefault,
			MergedAt: mergedAt,
		},
		{
			Review: model.Review{ID: "r2", Category1: "네일", Category2: "젤", Text: "별로예요", Rating: 1},
			Label: model.Label{
				Sentiment:      model.SentimentNegative,
				SentimentScore: 0.1,
				Aspects:        []string{"품질/불량"},
			},
			Status:    model.StatusFixed,
			Weight:    model.WeightFixed,
			Changes:   []string{"sentiment"},
			Original:  original,
			RuleCodes: []string{model.RiskRatingSentimentMismatch},
			MergedAt:  mergedAt,
		},
	}
	require.NoError(t, store.SaveFinalRecords(ctx, records))

	got, err := store.GetFinalRecords(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0].Review, got[0].Review)
	assert.Equal(t, records[0].Label, got[0].Label)
	assert.Equal(t, model.StatusVerified, got[0].Status)
	assert.True(t, got[0].MergedAt.Equal(mergedAt))

	require.NotNil(t, got[1].Original)
	assert.Equal(t, *original, *got[1].Original)
	assert.Equal(t, model.WeightFixed, got[1].Weight)
	assert.Equal(t, []string{"sentiment"}, got[1].Changes)

	require.NoError(t, store.ClearFinalRecords(ctx))
	got, err = store.GetFinalRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunSummaryLatest(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.GetLatestRunSummary(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	older := service.NewRunSummary("run-1")
	older.StartedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	older.FinishedAt = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	older.Sampled = 100
	older.StatusCounts[model.StatusVerified] = 80

	newer := service.NewRunSummary("run-2")
	newer.StartedAt = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	newer.FinishedAt = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	newer.Sampled = 200
	newer.Shortfalls = []service.Shortfall{
		{Stage: "rebalance", Key: "negative", Target: 60, Actual: 40},
	}

	require.NoError(t, store.SaveRunSummary(ctx, older))
	require.NoError(t, store.SaveRunSummary(ctx, newer))

	got, err := store.GetLatestRunSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 200, got.Sampled)
	require.Len(t, got.Shortfalls, 1)
	assert.Equal(t, 20, got.Shortfalls[0].Deficit())
}
