// Package engine wires the pipeline stages together: sampling, labeling,
// validation, risk triage, judging, and the final merge.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/judge"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/labeler"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/risk"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/sampling"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/validate"
)

// Config holds the sampling parameters shared by the pipeline stages.
type Config struct {
	Allocator sampling.AllocatorConfig
	Targets   map[model.Sentiment]float64
	Seed      int64
}

// Pipeline orchestrates the dataset construction stages against durable
// storage. Every stage is idempotent: rerunning a stage after a crash resumes
// from the durable state instead of repeating billed work.
type Pipeline struct {
	store      service.Storage
	labeler    *labeler.Orchestrator
	judge      *judge.Reviewer
	validator  *validate.Validator
	classifier *risk.Classifier
	cfg        Config
}

// New creates a pipeline from its stage implementations.
func New(store service.Storage, lab *labeler.Orchestrator, jud *judge.Reviewer, val *validate.Validator, cls *risk.Classifier, cfg Config) *Pipeline {
	return &Pipeline{
		store:      store,
		labeler:    lab,
		judge:      jud,
		validator:  val,
		classifier: cls,
		cfg:        cfg,
	}
}

// Sample allocates quotas over the snapshot, draws the stratified sample,
// rebalances sentiment proportions, and persists the final sample set.
// Deterministic for a fixed seed and snapshot. Returns the persisted sample
// and every recorded shortfall.
func (p *Pipeline) Sample(ctx context.Context, snapshot []model.Review) ([]model.Review, []service.Shortfall, error) {
	population := sampling.PopulationFromReviews(snapshot)
	alloc := sampling.Allocate(population, p.cfg.Allocator)

	pool, err := sampling.Draw(snapshot, alloc, p.cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("draw failed: %w", err)
	}

	sample, rebalanceShortfalls := sampling.Rebalance(pool, sampling.RebalancerConfig{
		TargetSize: alloc.Total,
		Targets:    p.cfg.Targets,
		Seed:       p.cfg.Seed,
	})

	shortfalls := append(alloc.Shortfalls, rebalanceShortfalls...)
	for _, s := range shortfalls {
		slog.Warn("sampling shortfall", "stage", s.Stage, "key", s.Key,
			"target", s.Target, "actual", s.Actual)
	}

	if err := p.store.SaveReviews(ctx, sample); err != nil {
		return nil, nil, fmt.Errorf("failed to persist sample: %w", err)
	}

	slog.Info("sample persisted", "size", len(sample), "shortfalls", len(shortfalls))
	return sample, shortfalls, nil
}

// Label runs the labeling stage over the persisted sample.
func (p *Pipeline) Label(ctx context.Context) (service.Usage, error) {
	reviews, err := p.store.GetReviews(ctx)
	if err != nil {
		return service.Usage{}, fmt.Errorf("failed to load sample: %w", err)
	}
	if len(reviews) == 0 {
		return service.Usage{}, fmt.Errorf("no sampled reviews: run the sample stage first")
	}
	return p.labeler.Run(ctx, reviews)
}

// Assessment is the pure per-review evaluation: validation verdict and risk
// annotation, computed from durable labels without external calls.
type Assessment struct {
	Review     model.Review
	Result     model.LabelResult
	Validation model.ValidationVerdict
	Annotation model.RiskAnnotation
}

// Assess validates every labeled review and triages the valid ones. Reviews
// without a durable label entry are reported as missing rather than silently
// skipped.
func (p *Pipeline) Assess(ctx context.Context) ([]Assessment, error) {
	reviews, err := p.store.GetReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample: %w", err)
	}
	results, err := p.store.GetLabelResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	assessments := make([]Assessment, 0, len(reviews))
	for _, review := range reviews {
		result, ok := results[labeler.CacheKey(review.Text)]
		if !ok {
			return nil, fmt.Errorf("review %s has no label entry: run the label stage first", review.ID)
		}

		a := Assessment{
			Review:     review,
			Result:     result,
			Validation: p.validator.Validate(review, result),
		}
		if a.Validation.Valid {
			a.Annotation = p.classifier.Classify(review, result.Label)
		} else {
			a.Annotation = model.RiskAnnotation{ReviewID: review.ID, Tier: model.RiskNone}
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

// Judge routes risk-flagged assessments to the arbitration service.
func (p *Pipeline) Judge(ctx context.Context) (service.Usage, error) {
	assessments, err := p.Assess(ctx)
	if err != nil {
		return service.Usage{}, err
	}

	var items []judge.Item
	for _, a := range assessments {
		if !a.Validation.Valid {
			continue
		}
		items = append(items, judge.Item{
			Review:     a.Review,
			Candidate:  a.Result.Label,
			Annotation: a.Annotation,
		})
	}
	return p.judge.Run(ctx, items)
}

// Merge assigns every sampled review its terminal status and publishes the
// final corpus atomically. Keyed strictly on review identifiers, never on
// stage completion order.
func (p *Pipeline) Merge(ctx context.Context) ([]model.FinalRecord, *service.RunSummary, error) {
	assessments, err := p.Assess(ctx)
	if err != nil {
		return nil, nil, err
	}
	verdicts, err := p.store.GetJudgeVerdicts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load judge verdicts: %w", err)
	}

	summary := service.NewRunSummary(uuid.NewString())
	summary.Sampled = len(assessments)

	now := time.Now().UTC()
	records := make([]model.FinalRecord, 0, len(assessments))
	for _, a := range assessments {
		in := mergeInput{
			review:     a.Review,
			result:     a.Result,
			validation: a.Validation,
			annotation: a.Annotation,
			routed:     a.Validation.Valid && p.judge.Routed(a.Annotation.Tier),
		}
		if v, ok := verdicts[a.Review.ID]; ok {
			in.verdict = &v
		}

		rec := mergeOne(in, now)
		records = append(records, rec)

		summary.StatusCounts[rec.Status]++
		summary.TierCounts[a.Annotation.Tier]++
		for _, code := range a.Validation.Codes {
			summary.RuleCodes[code]++
		}
		if in.verdict != nil {
			summary.JudgeCounts[in.verdict.Decision]++
		}
		summary.Usage.TokensIn += a.Result.TokensIn
		summary.Usage.TokensOut += a.Result.TokensOut
		summary.Usage.Cost += a.Result.Cost
		if in.verdict != nil {
			summary.Usage.TokensIn += in.verdict.TokensIn
			summary.Usage.TokensOut += in.verdict.TokensOut
			summary.Usage.Cost += in.verdict.Cost
		}
	}

	if err := p.store.SaveFinalRecords(ctx, records); err != nil {
		return nil, nil, fmt.Errorf("failed to publish final corpus: %w", err)
	}

	summary.FinishedAt = time.Now()
	if err := p.store.SaveRunSummary(ctx, summary); err != nil {
		return nil, nil, fmt.Errorf("failed to save run summary: %w", err)
	}

	slog.Info("merge complete",
		"records", len(records),
		"verified", summary.StatusCounts[model.StatusVerified],
		"fixed", summary.StatusCounts[model.StatusFixed],
		"unchecked", summary.StatusCounts[model.StatusUnchecked],
		"needs_human_review", summary.StatusCounts[model.StatusNeedsHumanReview],
		"removed", summary.StatusCounts[model.StatusRemoved])
	return records, summary, nil
}

// Run executes the full pipeline over a snapshot: sample, label, judge, merge.
func (p *Pipeline) Run(ctx context.Context, snapshot []model.Review) (*service.RunSummary, error) {
	_, shortfalls, err := p.Sample(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	var usage service.Usage
	labelUsage, err := p.Label(ctx)
	if err != nil {
		return nil, err
	}
	usage.Add(labelUsage)

	judgeUsage, err := p.Judge(ctx)
	if err != nil {
		return nil, err
	}
	usage.Add(judgeUsage)

	_, summary, err := p.Merge(ctx)
	if err != nil {
		return nil, err
	}

	// Merge rebuilds token totals from durable entries; the live counters
	// carry the request, cache-hit and error tallies of this invocation.
	summary.Usage.Requests = usage.Requests
	summary.Usage.CacheHits = usage.CacheHits
	summary.Usage.Errors = usage.Errors
	summary.Shortfalls = shortfalls
	if err := p.store.SaveRunSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save run summary: %w", err)
	}
	return summary, nil
}
