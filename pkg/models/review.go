package models

// Assessment is a reviewer's overall verdict on a plan or implementation.
type Assessment string

const (
	// AssessmentApprove indicates the reviewer accepts the work.
	AssessmentApprove Assessment = "approve"
	// AssessmentNeedsChanges indicates the work must be revised.
	AssessmentNeedsChanges Assessment = "needs_changes"
	// AssessmentReject indicates the work is fundamentally wrong.
	AssessmentReject Assessment = "reject"
)

// Valid returns true if the assessment is a known value.
func (a Assessment) Valid() bool {
	switch a {
	case AssessmentApprove, AssessmentNeedsChanges, AssessmentReject:
		return true
	default:
		return false
	}
}

// Severity classifies a review concern.
type Severity string

const (
	// SeverityHigh blocks approval regardless of score.
	SeverityHigh Severity = "high"
	// SeverityMedium should be addressed but does not block on its own.
	SeverityMedium Severity = "medium"
	// SeverityLow is advisory.
	SeverityLow Severity = "low"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Concern is a single finding raised by a reviewer.
type Concern struct {
	// Severity is how serious the finding is.
	Severity Severity `json:"severity"`
	// Description explains the finding.
	Description string `json:"description"`
	// Suggestion proposes a fix, if the reviewer offered one.
	Suggestion string `json:"suggestion,omitempty"`
}

// ReviewVerdict is the normalized result of one reviewer call.
type ReviewVerdict struct {
	// Reviewer identifies which reviewer produced the verdict (a or b).
	Reviewer string `json:"reviewer"`
	// OverallAssessment is the reviewer's verdict.
	OverallAssessment Assessment `json:"overall_assessment"`
	// Score is the 0-10 quality score.
	Score float64 `json:"score"`
	// Concerns lists the reviewer's findings.
	Concerns []Concern `json:"concerns,omitempty"`
	// Summary is the reviewer's one-paragraph summary.
	Summary string `json:"summary,omitempty"`
}

// HasHighSeverity reports whether any concern is high severity.
func (v *ReviewVerdict) HasHighSeverity() bool {
	for _, c := range v.Concerns {
		if c.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
