// Package validate implements the rule-based label checks: a closed, ordered
// checklist of pure structural and domain validations applied to every label
// candidate before risk triage.
package validate

import (
	"strings"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// MatchMode controls how evidence spans are matched against the source text.
type MatchMode string

// Evidence match modes.
const (
	MatchExact      MatchMode = "exact"
	MatchNormalized MatchMode = "normalized"
)

// Valid reports whether m is a recognized match mode.
func (m MatchMode) Valid() bool {
	return m == MatchExact || m == MatchNormalized
}

// Config configures the validator.
type Config struct {
	// Aspects is the closed aspect taxonomy. Defaults to model.DefaultAspects.
	Aspects []string
	// EvidenceMatch selects the evidence matching policy. Defaults to
	// normalized (whitespace-collapsed substring).
	EvidenceMatch MatchMode
}

// Validator checks label candidates against the rule checklist. Stateless
// after construction and safe for concurrent use.
type Validator struct {
	aspects map[string]struct{}
	mode    MatchMode
}

// New creates a validator from cfg, applying defaults for unset fields.
func New(cfg Config) *Validator {
	aspects := cfg.Aspects
	if len(aspects) == 0 {
		aspects = model.DefaultAspects
	}
	set := make(map[string]struct{}, len(aspects))
	for _, a := range aspects {
		set[a] = struct{}{}
	}

	mode := cfg.EvidenceMatch
	if !mode.Valid() {
		mode = MatchNormalized
	}

	return &Validator{aspects: set, mode: mode}
}

// Validate runs every check against one labeling outcome. Each failed check
// appends its code; any code makes the verdict invalid. A labeling attempt
// that never produced a parseable payload fails with invalid_json alone.
func (v *Validator) Validate(review model.Review, result model.LabelResult) model.ValidationVerdict {
	verdict := model.ValidationVerdict{ReviewID: review.ID}

	if result.Status != model.LabelStatusOK {
		verdict.Codes = []string{model.CodeInvalidJSON}
		return verdict
	}

	label := result.Label

	// Missing required fields make the remaining checks meaningless.
	if label.Sentiment == "" || label.Evidence == "" || label.Aspects == nil {
		verdict.Codes = []string{model.CodeMissingField}
		return verdict
	}

	if !label.Sentiment.Valid() {
		verdict.Codes = append(verdict.Codes, model.CodeInvalidSentiment)
	}

	if label.SentimentScore < -1.0 || label.SentimentScore > 1.0 {
		verdict.Codes = append(verdict.Codes, model.CodeInvalidScore)
	}

	seen := make(map[string]int, len(label.Aspects))
	unknown := false
	duplicate := false
	for _, a := range label.Aspects {
		if _, ok := v.aspects[a]; !ok {
			unknown = true
		}
		seen[a]++
		if seen[a] > 1 {
			duplicate = true
		}
	}
	if unknown {
		verdict.Codes = append(verdict.Codes, model.CodeInvalidAspect)
	}
	if duplicate {
		verdict.Codes = append(verdict.Codes, model.CodeDuplicateAspect)
	}

	if !v.evidenceMatches(review.Text, label.Evidence) {
		verdict.Codes = append(verdict.Codes, model.CodeEvidenceMismatch)
	}

	verdict.Valid = len(verdict.Codes) == 0
	return verdict
}

// evidenceMatches reports whether the evidence span occurs in the source
// text under the configured policy. "N/A" marks no usable span and is
// accepted as-is.
func (v *Validator) evidenceMatches(text, evidence string) bool {
	if evidence == "N/A" {
		return true
	}

	if v.mode == MatchExact {
		return strings.Contains(text, evidence)
	}

	normText := normalize(text)
	normEvidence := normalize(evidence)
	if strings.Contains(normText, normEvidence) {
		return true
	}

	// Lightly paraphrased spans still count when either end of the span
	// survives verbatim.
	words := strings.Fields(normEvidence)
	if len(words) > 3 {
		head := strings.Join(words[:3], " ")
		tail := strings.Join(words[len(words)-3:], " ")
		return strings.Contains(normText, head) || strings.Contains(normText, tail)
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
