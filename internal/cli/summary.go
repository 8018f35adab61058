package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

// statusOrder fixes the rendering order of terminal statuses.
var statusOrder = []model.RecordStatus{
	model.StatusVerified,
	model.StatusFixed,
	model.StatusUnchecked,
	model.StatusNeedsHumanReview,
	model.StatusRemoved,
}

var tierOrder = []model.RiskTier{model.RiskHigh, model.RiskMedium, model.RiskNone}

var decisionOrder = []model.JudgeDecision{
	model.JudgeOK, model.JudgeFix, model.JudgeUncertain, model.JudgeError,
}

// RenderRunSummary formats a per-run report for the terminal.
func RenderRunSummary(s *service.RunSummary) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Run %s", s.RunID)))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("Started %s, finished %s",
		s.StartedAt.Format("2006-01-02 15:04:05"),
		s.FinishedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")

	b.WriteString(BoldStyle.Render(fmt.Sprintf("Sampled reviews: %d", s.Sampled)))
	b.WriteString("\n\n")

	b.WriteString(BoldStyle.Render("Final statuses"))
	b.WriteString("\n")
	for _, status := range statusOrder {
		if n := s.StatusCounts[status]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s %d\n", styleForStatus(status)(string(status)+":"), n))
		}
	}

	if len(s.TierCounts) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render("Risk tiers"))
		b.WriteString("\n")
		for _, tier := range tierOrder {
			if n := s.TierCounts[tier]; n > 0 {
				b.WriteString(fmt.Sprintf("  %s: %d\n", tier, n))
			}
		}
	}

	if len(s.JudgeCounts) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render("Judge verdicts"))
		b.WriteString("\n")
		for _, d := range decisionOrder {
			if n := s.JudgeCounts[d]; n > 0 {
				b.WriteString(fmt.Sprintf("  %s: %d\n", d, n))
			}
		}
	}

	if len(s.RuleCodes) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render("Validation failures"))
		b.WriteString("\n")
		codes := make([]string, 0, len(s.RuleCodes))
		for code := range s.RuleCodes {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			b.WriteString(fmt.Sprintf("  %s: %d\n", code, s.RuleCodes[code]))
		}
	}

	if len(s.Shortfalls) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("Shortfalls"))
		b.WriteString("\n")
		for _, sf := range s.Shortfalls {
			b.WriteString(WarningStyle.Render(fmt.Sprintf("  %s %s: wanted %d, got %d (deficit %d)",
				sf.Stage, sf.Key, sf.Target, sf.Actual, sf.Deficit())))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(BoldStyle.Render("Usage"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  requests: %d  cache hits: %d  errors: %d\n",
		s.Usage.Requests, s.Usage.CacheHits, s.Usage.Errors))
	b.WriteString(fmt.Sprintf("  tokens in: %d  tokens out: %d  cost: $%.4f\n",
		s.Usage.TokensIn, s.Usage.TokensOut, s.Usage.Cost))

	return b.String()
}

func styleForStatus(status model.RecordStatus) func(...string) string {
	switch status {
	case model.StatusVerified, model.StatusFixed:
		return SuccessStyle.Render
	case model.StatusNeedsHumanReview:
		return WarningStyle.Render
	case model.StatusRemoved:
		return ErrorStyle.Render
	default:
		return InfoStyle.Render
	}
}
