// Package service defines the interfaces and shared contracts for all
// application services.
package service

import (
	"context"
	"time"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// Storage defines the contract for the persistence layer: the sampled review
// set, the durable label cache/progress log, judge verdicts, and the final
// corpus.
type Storage interface {
	// Review operations
	SaveReviews(ctx context.Context, reviews []model.Review) error
	GetReviews(ctx context.Context) ([]model.Review, error)

	// Label cache and progress log. A label result is the durable terminal
	// entry for one review; reviews without one are the pending work set.
	GetLabelResult(ctx context.Context, cacheKey string) (*model.LabelResult, error)
	SaveLabelResult(ctx context.Context, result *model.LabelResult) error
	GetLabelResults(ctx context.Context) (map[string]model.LabelResult, error)
	DeleteErroredLabels(ctx context.Context) (int64, error)

	// Judge operations
	SaveJudgeVerdict(ctx context.Context, verdict *model.JudgeVerdict) error
	GetJudgeVerdicts(ctx context.Context) (map[string]model.JudgeVerdict, error)

	// Final corpus
	SaveFinalRecords(ctx context.Context, records []model.FinalRecord) error
	GetFinalRecords(ctx context.Context) ([]model.FinalRecord, error)
	ClearFinalRecords(ctx context.Context) error

	// Run bookkeeping
	SaveRunSummary(ctx context.Context, summary *RunSummary) error
	GetLatestRunSummary(ctx context.Context) (*RunSummary, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Usage aggregates billed call counters across a pipeline stage.
type Usage struct {
	Requests  int
	CacheHits int
	Errors    int
	TokensIn  int
	TokensOut int
	Cost      float64
}

// Add accumulates another usage total into u.
func (u *Usage) Add(other Usage) {
	u.Requests += other.Requests
	u.CacheHits += other.CacheHits
	u.Errors += other.Errors
	u.TokensIn += other.TokensIn
	u.TokensOut += other.TokensOut
	u.Cost += other.Cost
}

// Shortfall records an unmet quota or rebalancing target. Shortfalls are
// always reported, never silently absorbed.
type Shortfall struct {
	Stage  string `json:"stage"`
	Key    string `json:"key"`
	Target int    `json:"target"`
	Actual int    `json:"actual"`
}

// Deficit returns the unmet portion of the target.
func (s Shortfall) Deficit() int {
	return s.Target - s.Actual
}

// RunSummary is the per-run report: counts by terminal status and error code
// plus explicit shortfall magnitudes.
type RunSummary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Sampled      int
	StatusCounts map[model.RecordStatus]int
	RuleCodes    map[string]int
	TierCounts   map[model.RiskTier]int
	JudgeCounts  map[model.JudgeDecision]int
	Shortfalls   []Shortfall
	Usage        Usage
}

// NewRunSummary creates an empty summary with allocated count maps.
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:        runID,
		StartedAt:    time.Now(),
		StatusCounts: make(map[model.RecordStatus]int),
		RuleCodes:    make(map[string]int),
		TierCounts:   make(map[model.RiskTier]int),
		JudgeCounts:  make(map[model.JudgeDecision]int),
	}
}
