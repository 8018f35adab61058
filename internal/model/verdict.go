package model

// Rule validation error codes, in the order checks run.
const (
	CodeInvalidJSON      = "invalid_json"
	CodeMissingField     = "missing_field"
	CodeInvalidSentiment = "invalid_sentiment"
	CodeInvalidScore     = "invalid_score"
	CodeInvalidAspect    = "invalid_aspect"
	CodeDuplicateAspect  = "duplicate_aspect"
	CodeEvidenceMismatch = "evidence_mismatch"
)

// ValidationVerdict is the outcome of the rule-based checks for one label.
type ValidationVerdict struct {
	ReviewID string
	Valid    bool
	Codes    []string
}

// RiskTier estimates how likely a generated label is wrong.
type RiskTier string

// Risk tiers, ordered by severity.
const (
	RiskNone   RiskTier = "NONE"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Risk rule names.
const (
	RiskNoAspect                = "no_aspect"
	RiskAllNeutral              = "all_neutral"
	RiskNegKeywordPositive      = "neg_keyword_positive"
	RiskLongSingleAspect        = "long_single_aspect"
	RiskContrastSingle          = "contrast_single"
	RiskRatingSentimentMismatch = "rating_sentiment_mismatch"
	RiskLowConfidence           = "low_confidence"
)

// RiskAnnotation records the triage outcome for one validated label.
type RiskAnnotation struct {
	ReviewID string
	Tier     RiskTier
	Rules    []string
	Matched  []string
}

// JudgeDecision is the arbitration outcome for one risk-flagged label.
type JudgeDecision string

// Judge decisions.
const (
	JudgeOK        JudgeDecision = "ok"
	JudgeFix       JudgeDecision = "fix"
	JudgeUncertain JudgeDecision = "uncertain"
	JudgeError     JudgeDecision = "error"
)

// JudgeVerdict is the durable result of one judge review. For a fix decision
// Fixed holds the complete corrected label and Changes names the altered
// fields.
type JudgeVerdict struct {
	ReviewID   string
	Decision   JudgeDecision
	Fixed      *Label
	Changes    []string
	Confidence float64
	Issues     []string
	Reason     string
	TokensIn   int
	TokensOut  int
	Cost       float64
}
