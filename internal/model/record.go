package model

import "time"

// RecordStatus is the terminal status assigned to each sampled review exactly
// once at pipeline completion.
type RecordStatus string

// Terminal record statuses.
const (
	StatusVerified         RecordStatus = "VERIFIED"
	StatusFixed            RecordStatus = "FIXED"
	StatusUnchecked        RecordStatus = "UNCHECKED"
	StatusNeedsHumanReview RecordStatus = "NEEDS_HUMAN_REVIEW"
	StatusRemoved          RecordStatus = "REMOVED"
)

// Confidence weights by status.
const (
	WeightDefault = 1.0
	WeightFixed   = 0.8
)

// Trainable reports whether records with this status may feed downstream
// training. Removed records are kept only as an audit trail.
func (s RecordStatus) Trainable() bool {
	return s != StatusRemoved
}

// FinalRecord is one entry of the finalized corpus: the original review, the
// effective label fields, and the merge outcome. Immutable once created.
type FinalRecord struct {
	Review     Review
	Label      Label
	Status     RecordStatus
	Weight     float64
	NeedsAudit bool
	RuleCodes  []string
	Changes    []string
	Original   *Label
	MergedAt   time.Time
}
