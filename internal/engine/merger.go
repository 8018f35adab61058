package engine

import (
	"time"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// mergeInput gathers everything known about one sampled review at merge time.
type mergeInput struct {
	review     model.Review
	result     model.LabelResult
	validation model.ValidationVerdict
	annotation model.RiskAnnotation
	routed     bool
	verdict    *model.JudgeVerdict
}

// mergeOne assigns the terminal status for one review. First matching clause
// wins; every review gets exactly one status.
func mergeOne(in mergeInput, now time.Time) model.FinalRecord {
	rec := model.FinalRecord{
		Review:   in.review,
		Label:    in.result.Label,
		Weight:   model.WeightDefault,
		MergedAt: now,
	}

	switch {
	case !in.validation.Valid:
		// Kept only as an audit trail, never trainable.
		rec.Status = model.StatusRemoved
		rec.RuleCodes = in.validation.Codes

	case !in.routed:
		rec.Status = model.StatusUnchecked
		rec.RuleCodes = in.annotation.Rules

	case in.verdict != nil && in.verdict.Decision == model.JudgeOK:
		rec.Status = model.StatusVerified
		rec.RuleCodes = in.annotation.Rules

	case in.verdict != nil && in.verdict.Decision == model.JudgeFix && in.verdict.Fixed != nil:
		rec.Status = model.StatusFixed
		rec.Weight = model.WeightFixed
		original := in.result.Label.Clone()
		rec.Original = &original
		rec.Label = in.verdict.Fixed.Clone()
		rec.Changes = in.verdict.Changes
		rec.RuleCodes = in.annotation.Rules

	default:
		// Uncertain, errored after retries, or a missing verdict for a
		// routed item: keep it, flag it for a human.
		rec.Status = model.StatusNeedsHumanReview
		rec.NeedsAudit = true
		rec.RuleCodes = in.annotation.Rules
	}

	return rec
}
