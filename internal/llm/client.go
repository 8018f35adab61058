// Package llm provides clients for the external labeling and judging
// services, with shared rate limiting and response parsing.
package llm

import (
	"context"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// LabelPromptVersion identifies the labeling prompt template. It is part of
// the cache key: bumping it invalidates previously cached labels.
const LabelPromptVersion = "absa-v2"

// JudgePromptVersion identifies the judge prompt template.
const JudgePromptVersion = "judge-v1"

// LabelRequest asks the labeling service for a structured label on one review.
type LabelRequest struct {
	Review  model.Review
	Aspects []string
}

// LabelResponse is a parsed labeling result with usage accounting.
type LabelResponse struct {
	Label     model.Label
	TokensIn  int
	TokensOut int
	Cost      float64
}

// JudgeRequest asks the arbitration service to review a risk-flagged label.
type JudgeRequest struct {
	Review    model.Review
	Candidate model.Label
	Aspects   []string
	RiskRules []string
}

// JudgeResponse is a parsed arbitration verdict with usage accounting. For a
// fix decision, Fixed is the complete corrected label and Changes names the
// fields the judge altered.
type JudgeResponse struct {
	Decision   model.JudgeDecision
	Fixed      *model.Label
	Changes    []string
	Confidence float64
	Issues     []string
	Reason     string
	TokensIn   int
	TokensOut  int
	Cost       float64
}

// Client defines the interface for the external annotation services.
type Client interface {
	Label(ctx context.Context, req LabelRequest) (LabelResponse, error)
	Judge(ctx context.Context, req JudgeRequest) (JudgeResponse, error)
}
