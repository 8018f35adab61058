// Package labeler drives the labeling stage: for every sampled review it
// obtains exactly one durable labeling outcome from the external service,
// with caching, shared rate limiting, bounded retry and resume.
package labeler

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/llm"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

// promptTokenEstimate approximates the fixed prompt overhead per request for
// budget admission. The budget clamps oversized estimates, so a rough number
// is enough.
const promptTokenEstimate = 400

// Config configures the labeling stage.
type Config struct {
	// Workers bounds concurrent in-flight requests. Defaults to 4.
	Workers int
	// Aspects is the taxonomy offered to the labeling service. Defaults to
	// model.DefaultAspects.
	Aspects []string
	// Retry bounds per-item retries against transient failures.
	Retry service.RetryOptions
	// ShowProgress renders a terminal progress bar.
	ShowProgress bool
}

// DefaultRetryOptions is the shipped retry policy for external calls.
var DefaultRetryOptions = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
}

// Orchestrator runs the labeling stage against a client, a shared rate
// budget, and durable storage.
type Orchestrator struct {
	client llm.Client
	store  service.Storage
	budget *llm.Budget
	cfg    Config
}

// New creates an orchestrator. budget may be shared with the judge stage.
func New(client llm.Client, store service.Storage, budget *llm.Budget, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if len(cfg.Aspects) == 0 {
		cfg.Aspects = model.DefaultAspects
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryOptions
	}
	return &Orchestrator{client: client, store: store, budget: budget, cfg: cfg}
}

// CacheKey derives the deterministic request key for one review text. The
// prompt version is part of the key so a prompt change invalidates the cache.
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + llm.LabelPromptVersion))
	return fmt.Sprintf("%x", sum)
}

// Run labels every review lacking a durable terminal entry. Errored entries
// from previous runs are cleared first so only they are retried; cached
// entries short-circuit without a billed call. Completion order does not
// matter: results key on the review, never on arrival.
func (o *Orchestrator) Run(ctx context.Context, reviews []model.Review) (service.Usage, error) {
	var usage service.Usage

	cleared, err := o.store.DeleteErroredLabels(ctx)
	if err != nil {
		return usage, fmt.Errorf("failed to clear errored labels: %w", err)
	}
	if cleared > 0 {
		slog.Info("retrying previously errored reviews", "count", cleared)
	}

	cached, err := o.store.GetLabelResults(ctx)
	if err != nil {
		return usage, fmt.Errorf("failed to load label cache: %w", err)
	}

	// Reviews sharing a text share one cache key; dispatch each key once and
	// let the rest resolve from the single durable entry.
	var pending []model.Review
	dispatched := make(map[string]struct{})
	for _, r := range reviews {
		key := CacheKey(r.Text)
		if _, ok := cached[key]; ok {
			usage.CacheHits++
			continue
		}
		if _, ok := dispatched[key]; ok {
			usage.CacheHits++
			continue
		}
		dispatched[key] = struct{}{}
		pending = append(pending, r)
	}

	slog.Info("labeling stage starting",
		"total", len(reviews),
		"cached", usage.CacheHits,
		"pending", len(pending))

	if len(pending) == 0 {
		return usage, nil
	}

	var bar *progressbar.ProgressBar
	if o.cfg.ShowProgress {
		bar = progressbar.Default(int64(len(pending)), "labeling")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, review := range pending {
		review := review
		g.Go(func() error {
			result, callUsage, err := o.labelOne(gctx, review)
			if err != nil {
				return err
			}

			if err := o.store.SaveLabelResult(gctx, result); err != nil {
				return fmt.Errorf("failed to persist label for %s: %w", review.ID, err)
			}

			mu.Lock()
			usage.Add(callUsage)
			mu.Unlock()

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	return usage, err
}

// labelOne issues one labeling call under the rate budget and retry policy.
// Retry exhaustion on a transient failure becomes a terminal errored entry
// for this run; only context cancellation propagates as a hard error.
func (o *Orchestrator) labelOne(ctx context.Context, review model.Review) (*model.LabelResult, service.Usage, error) {
	var callUsage service.Usage

	estimate := promptTokenEstimate + utf8.RuneCountInString(review.Text)
	if err := o.budget.Wait(ctx, estimate); err != nil {
		return nil, callUsage, err
	}

	var resp llm.LabelResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = o.client.Label(ctx, llm.LabelRequest{Review: review, Aspects: o.cfg.Aspects})
		callUsage.TokensIn += resp.TokensIn
		callUsage.TokensOut += resp.TokensOut
		callUsage.Cost += resp.Cost
		return callErr
	}, o.cfg.Retry)

	result := &model.LabelResult{
		ReviewID: review.ID,
		CacheKey: CacheKey(review.Text),
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, callUsage, ctx.Err()
		}
		common.LogError(err, "labeling failed after retries", common.Fields{"review_id": review.ID})
		callUsage.Errors++
		result.Status = model.LabelStatusError
		result.ErrorMessage = err.Error()
		return result, callUsage, nil
	}

	callUsage.Requests++
	result.Status = model.LabelStatusOK
	result.Label = resp.Label
	result.TokensIn = resp.TokensIn
	result.TokensOut = resp.TokensOut
	result.Cost = resp.Cost
	return result, callUsage, nil
}
