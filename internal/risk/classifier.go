// Package risk triages validated labels into risk tiers using cheap text
// heuristics, bounding how many records reach the judge stage.
package risk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// DefaultNegativeKeywords are tokens whose presence contradicts a positive
// sentiment label.
var DefaultNegativeKeywords = []string{
	"별로", "최악", "다시는", "환불", "불친절", "늦", "안좋", "안 좋",
	"실망", "후회", "짜증", "불량", "파손", "망", "싫", "아쉽", "거짓",
	"속았", "사기", "엉망", "쓰레기", "버림", "못씀", "안됨", "고장",
}

// DefaultContrastMarkers are conjunctions suggesting a second opinion in the
// text that a single-aspect label may have missed.
var DefaultContrastMarkers = []string{
	"지만", "는데", "으나", "나", "만", "그러나", "하지만", "근데",
}

// Default heuristic thresholds.
const (
	DefaultLongTextThreshold = 50
	DefaultLowConfidenceMin  = 0.3
	DefaultLowConfidenceMax  = 0.5
)

// Config configures the classifier vocabularies and thresholds. Zero values
// select the defaults.
type Config struct {
	NegativeKeywords  []string
	ContrastMarkers   []string
	LongTextThreshold int
	LowConfidenceMin  float64
	LowConfidenceMax  float64
}

// Classifier assigns a risk tier to each validated label. Stateless after
// construction and safe for concurrent use.
type Classifier struct {
	negativeKeywords  []string
	contrastMarkers   []string
	longTextThreshold int
	lowConfidenceMin  float64
	lowConfidenceMax  float64
}

// New creates a classifier from cfg, applying defaults for unset fields.
func New(cfg Config) *Classifier {
	c := &Classifier{
		negativeKeywords:  cfg.NegativeKeywords,
		contrastMarkers:   cfg.ContrastMarkers,
		longTextThreshold: cfg.LongTextThreshold,
		lowConfidenceMin:  cfg.LowConfidenceMin,
		lowConfidenceMax:  cfg.LowConfidenceMax,
	}
	if c.negativeKeywords == nil {
		c.negativeKeywords = DefaultNegativeKeywords
	}
	if c.contrastMarkers == nil {
		c.contrastMarkers = DefaultContrastMarkers
	}
	if c.longTextThreshold <= 0 {
		c.longTextThreshold = DefaultLongTextThreshold
	}
	if c.lowConfidenceMax <= 0 {
		c.lowConfidenceMin = DefaultLowConfidenceMin
		c.lowConfidenceMax = DefaultLowConfidenceMax
	}
	return c
}

// Classify evaluates every rule against one review and its label, returning
// the triggered rules and the resulting tier. A low_confidence hit alone maps
// to tier NONE so it never routes to the judge on its own.
func (c *Classifier) Classify(review model.Review, label model.Label) model.RiskAnnotation {
	ann := model.RiskAnnotation{ReviewID: review.ID, Tier: model.RiskNone}

	noAspect := len(label.Aspects) == 0

	if noAspect {
		ann.Rules = append(ann.Rules, model.RiskNoAspect)
	}
	if label.Sentiment == model.SentimentNeutral && noAspect {
		ann.Rules = append(ann.Rules, model.RiskAllNeutral)
	}
	if label.Sentiment == model.SentimentPositive {
		if matched := c.matchKeywords(review.Text); len(matched) > 0 {
			ann.Rules = append(ann.Rules, model.RiskNegKeywordPositive)
			ann.Matched = append(ann.Matched, matched...)
		}
	}

	if utf8.RuneCountInString(review.Text) >= c.longTextThreshold && len(label.Aspects) == 1 {
		ann.Rules = append(ann.Rules, model.RiskLongSingleAspect)
	}
	if len(label.Aspects) == 1 {
		if matched := c.matchMarkers(review.Text); len(matched) > 0 {
			ann.Rules = append(ann.Rules, model.RiskContrastSingle)
			ann.Matched = append(ann.Matched, matched...)
		}
	}
	if mismatch := ratingMismatch(review.Rating, label.Sentiment); mismatch {
		ann.Rules = append(ann.Rules, model.RiskRatingSentimentMismatch)
		ann.Matched = append(ann.Matched, fmt.Sprintf("rating=%d, sentiment=%s", review.Rating, label.Sentiment))
	}

	abs := label.SentimentScore
	if abs < 0 {
		abs = -abs
	}
	if abs >= c.lowConfidenceMin && abs <= c.lowConfidenceMax {
		ann.Rules = append(ann.Rules, model.RiskLowConfidence)
		ann.Matched = append(ann.Matched, fmt.Sprintf("score=%.2f", label.SentimentScore))
	}

	ann.Tier = tierFor(ann.Rules)
	return ann
}

func (c *Classifier) matchKeywords(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range c.negativeKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func (c *Classifier) matchMarkers(text string) []string {
	var matched []string
	for _, m := range c.contrastMarkers {
		if strings.Contains(text, m) {
			matched = append(matched, m)
		}
	}
	return matched
}

// Strong contradictions only: a 1-2 star positive or a 4-5 star negative.
// A neutral label never mismatches.
func ratingMismatch(rating int, sentiment model.Sentiment) bool {
	switch {
	case rating >= 1 && rating <= 2:
		return sentiment == model.SentimentPositive
	case rating >= 4 && rating <= 5:
		return sentiment == model.SentimentNegative
	}
	return false
}

var (
	highRules = map[string]struct{}{
		model.RiskNoAspect:           {},
		model.RiskAllNeutral:         {},
		model.RiskNegKeywordPositive: {},
	}
	mediumRules = map[string]struct{}{
		model.RiskLongSingleAspect:        {},
		model.RiskContrastSingle:          {},
		model.RiskRatingSentimentMismatch: {},
	}
)

func tierFor(rules []string) model.RiskTier {
	tier := model.RiskNone
	for _, r := range rules {
		if _, ok := highRules[r]; ok {
			return model.RiskHigh
		}
		if _, ok := mediumRules[r]; ok {
			tier = model.RiskMedium
		}
	}
	return tier
}
