// Package judge routes risk-flagged labels to the stronger arbitration
// service under the same caching, rate-limiting and resume contract as the
// labeling stage.
package judge

import (
	"context"
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

// The judge prompt carries the candidate label alongside the text, so the
// fixed overhead is larger than the labeling stage's.
const promptTokenEstimate = 600

// Item is one judge-stage work unit: a review, its label candidate, and the
// risk annotation that flagged it.
type Item struct {
	Review     model.Review
	Candidate  model.Label
	Annotation model.RiskAnnotation
}

// Config configures the judge stage.
type Config struct {
	// Tiers selects which risk tiers are routed. Defaults to HIGH and MEDIUM.
	Tiers []model.RiskTier
	// Workers bounds concurrent in-flight requests. Defaults to 4.
	Workers int
	// Aspects is the taxonomy quoted in the judge prompt. Defaults to
	// model.DefaultAspects.
	Aspects []string
	// Retry bounds per-item retries against transient failures.
	Retry service.RetryOptions
	// ShowProgress renders a terminal progress bar.
	ShowProgress bool
}

// DefaultRetryOptions is the shipped retry policy for judge calls.
var DefaultRetryOptions = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
}

// Reviewer runs the judge stage.
type Reviewer struct {
	client llm.Client
	store  service.Storage
	budget *llm.Budget
	cfg    Config
	routed map[model.RiskTier]struct{}
}

// New creates a reviewer. budget may be shared with the labeling stage.
func New(client llm.Client, store service.Storage, budget *llm.Budget, cfg Config) *Reviewer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if len(cfg.Aspects) == 0 {
		cfg.Aspects = model.DefaultAspects
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = []model.RiskTier{model.RiskHigh, model.RiskMedium}
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryOptions
	}

	routed := make(map[model.RiskTier]struct{}, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		routed[t] = struct{}{}
	}
	return &Reviewer{client: client, store: store, budget: budget, cfg: cfg, routed: routed}
}

// Routed reports whether tier is sent to the judge under this configuration.
func (r *Reviewer) Routed(tier model.RiskTier) bool {
	_, ok := r.routed[tier]
	return ok
}

// Run judges every routed item lacking a durable verdict. Verdicts with an
// error decision are treated as pending so they are retried on the next
// invocation; all other verdicts are final and skipped.
func (r *Reviewer) Run(ctx context.Context, items []Item) (service.Usage, error) {
	var usage service.Usage

	existing, err := r.store.GetJudgeVerdicts(ctx)
	if err != nil {
		return usage, fmt.Errorf("failed to load judge verdicts: %w", err)
	}

	var pending []Item
	for _, item := range items {
		if !r.Routed(item.Annotation.Tier) {
			continue
		}
		if v, ok := existing[item.Review.ID]; ok && v.Decision != model.JudgeError {
			usage.CacheHits++
			continue
		}
		pending = append(pending, item)
	}

	slog.Info("judge stage starting",
		"flagged", len(items),
		"already_judged", usage.CacheHits,
		"pending", len(pending))

	if len(pending) == 0 {
		return usage, nil
	}

	var bar *progressbar.ProgressBar
	if r.cfg.ShowProgress {
		bar = progressbar.Default(int64(len(pending)), "judging")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, item := range pending {
		item := item
		g.Go(func() error {
			verdict, callUsage, err := r.judgeOne(gctx, item)
			if err != nil {
				return err
			}

			if err := r.store.SaveJudgeVerdict(gctx, verdict); err != nil {
				return fmt.Errorf("failed to persist verdict for %s: %w", item.Review.ID, err)
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

func (r *Reviewer) judgeOne(ctx context.Context, item Item) (*model.JudgeVerdict, service.Usage, error) {
	var callUsage service.Usage

	estimate := promptTokenEstimate + utf8.RuneCountInString(item.Review.Text)
	if err := r.budget.Wait(ctx, estimate); err != nil {
		return nil, callUsage, err
	}

	var resp llm.JudgeResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = r.client.Judge(ctx, llm.JudgeRequest{
			Review:    item.Review,
			Candidate: item.Candidate,
			Aspects:   r.cfg.Aspects,
			RiskRules: item.Annotation.Rules,
		})
		callUsage.TokensIn += resp.TokensIn
		callUsage.TokensOut += resp.TokensOut
		callUsage.Cost += resp.Cost
		return callErr
	}, r.cfg.Retry)

	verdict := &model.JudgeVerdict{ReviewID: item.Review.ID}

	if err != nil {
		if ctx.Err() != nil {
			return nil, callUsage, ctx.Err()
		}
		common.LogError(err, "judge failed after retries", common.Fields{"review_id": item.Review.ID})
		callUsage.Errors++
		verdict.Decision = model.JudgeError
		verdict.Reason = err.Error()
		return verdict, callUsage, nil
	}

	callUsage.Requests++
	verdict.Decision = resp.Decision
	verdict.Fixed = resp.Fixed
	verdict.Changes = resp.Changes
	verdict.Confidence = resp.Confidence
	verdict.Issues = resp.Issues
	verdict.Reason = resp.Reason
	verdict.TokensIn = resp.TokensIn
	verdict.TokensOut = resp.TokensOut
	verdict.Cost = resp.Cost
	return verdict, callUsage, nil
}
