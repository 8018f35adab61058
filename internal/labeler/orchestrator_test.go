package labeler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/llm"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/testutil"
)

type fakeClient struct {
	mu     sync.Mutex
	calls  int
	labelF func(req llm.LabelRequest) (llm.LabelResponse, error)
}

func (f *fakeClient) Label(_ context.Context, req llm.LabelRequest) (llm.LabelResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.labelF(req)
}

func (f *fakeClient) Judge(context.Context, llm.JudgeRequest) (llm.JudgeResponse, error) {
	return llm.JudgeResponse{}, errors.New("not implemented")
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func happyClient() *fakeClient {
	return &fakeClient{
		labelF: func(req llm.LabelRequest) (llm.LabelResponse, error) {
			return llm.LabelResponse{
				Label: model.Label{
					Sentiment:      req.Review.RatingSentiment(),
					SentimentScore: 0.8,
					Aspects:        []string{"품질/불량"},
					Evidence:       req.Review.Text,
				},
				TokensIn:  100,
				TokensOut: 30,
				Cost:      0.0001,
			}, nil
		},
	}
}

func setupStage(t *testing.T, client llm.Client) (*Orchestrator, service.Storage) {
	t.Helper()

	store := testutil.SetupTestDB(t)

	budget := llm.NewBudget(6000, 10_000_000)
	t.Cleanup(budget.Close)

	fastRetry := service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return New(client, store, budget, Config{Workers: 2, Retry: fastRetry}), store
}

func someReviews(n int) []model.Review {
	return testutil.Reviews("r", "스킨케어", "크림", 5, n)
}

func TestRunLabelsEverything(t *testing.T) {
	client := happyClient()
	o, store := setupStage(t, client)
	ctx := context.Background()

	reviews := someReviews(5)
	usage, err := o.Run(ctx, reviews)
	require.NoError(t, err)

	assert.Equal(t, 5, usage.Requests)
	assert.Equal(t, 0, usage.CacheHits)
	assert.Equal(t, 0, usage.Errors)
	assert.Equal(t, 500, usage.TokensIn)
	assert.Equal(t, 5, client.callCount())

	results, err := store.GetLabelResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range reviews {
		got, ok := results[CacheKey(r.Text)]
		require.True(t, ok, "missing result for %s", r.ID)
		assert.Equal(t, model.LabelStatusOK, got.Status)
		assert.Equal(t, r.ID, got.ReviewID)
	}
}

func TestRunWarmCacheMakesNoCalls(t *testing.T) {
	client := happyClient()
	o, _ := setupStage(t, client)
	ctx := context.Background()

	reviews := someReviews(3)
	_, err := o.Run(ctx, reviews)
	require.NoError(t, err)
	require.Equal(t, 3, client.callCount())

	usage, err := o.Run(ctx, reviews)
	require.NoError(t, err)
	assert.Equal(t, 3, usage.CacheHits)
	assert.Equal(t, 0, usage.Requests)
	assert.Equal(t, 3, client.callCount(), "warm cache must not issue billed calls")
}

func TestRunRetryExhaustionIsTerminalPerRun(t *testing.T) {
	client := &fakeClient{
		labelF: func(llm.LabelRequest) (llm.LabelResponse, error) {
			return llm.LabelResponse{}, common.ErrServiceUnavailable
		},
	}
	o, store := setupStage(t, client)
	ctx := context.Background()

	reviews := someReviews(2)
	usage, err := o.Run(ctx, reviews)
	require.NoError(t, err, "per-item failures must not abort the batch")
	assert.Equal(t, 2, usage.Errors)
	assert.Equal(t, 0, usage.Requests)

	results, err := store.GetLabelResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.LabelStatusError, r.Status)
		assert.NotEmpty(t, r.ErrorMessage)
	}
}

func TestRunRetriesErroredEntriesNextRun(t *testing.T) {
	var failing bool = true
	var mu sync.Mutex
	client := &fakeClient{}
	client.labelF = func(req llm.LabelRequest) (llm.LabelResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return llm.LabelResponse{}, common.ErrServiceUnavailable
		}
		return llm.LabelResponse{
			Label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.9,
				Aspects:        []string{"품질/불량"},
				Evidence:       req.Review.Text,
			},
			TokensIn:  100,
			TokensOut: 30,
		}, nil
	}
	o, store := setupStage(t, client)
	ctx := context.Background()

	reviews := someReviews(1)
	usage, err := o.Run(ctx, reviews)
	require.NoError(t, err)
	require.Equal(t, 1, usage.Errors)

	mu.Lock()
	failing = false
	mu.Unlock()

	usage, err = o.Run(ctx, reviews)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Requests)
	assert.Equal(t, 0, usage.CacheHits)

	results, err := store.GetLabelResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, r := range results {
		assert.Equal(t, model.LabelStatusOK, r.Status)
	}
}

func TestRunDuplicateTextsBilledOnce(t *testing.T) {
	client := happyClient()
	o, store := setupStage(t, client)
	ctx := context.Background()

	// Short texts like this recur verbatim across reviews; they collapse to
	// one cache key and must collapse to one billed call.
	reviews := []model.Review{
		{ID: "dup-1", Category1: "스킨케어", Category2: "크림", Text: "좋아요", Rating: 5},
		{ID: "dup-2", Category1: "네일", Category2: "젤", Text: "좋아요", Rating: 4},
		{ID: "solo", Category1: "네일", Category2: "젤", Text: "발색이 예뻐요", Rating: 5},
	}

	usage, err := o.Run(ctx, reviews)
	require.NoError(t, err)

	assert.Equal(t, 2, client.callCount(), "identical texts must share one billed call")
	assert.Equal(t, 2, usage.Requests)
	assert.Equal(t, 1, usage.CacheHits)

	results, err := store.GetLabelResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range reviews {
		got, ok := results[CacheKey(r.Text)]
		require.True(t, ok, "review %s must resolve from the shared entry", r.ID)
		assert.Equal(t, model.LabelStatusOK, got.Status)
	}
}

func TestRunCancellation(t *testing.T) {
	client := happyClient()
	o, _ := setupStage(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, someReviews(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheKeyStability(t *testing.T) {
	assert.Equal(t, CacheKey("같은 텍스트"), CacheKey("같은 텍스트"))
	assert.NotEqual(t, CacheKey("텍스트 a"), CacheKey("텍스트 b"))
}
