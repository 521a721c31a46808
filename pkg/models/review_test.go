package models

import "testing"

func TestAssessmentValid(t *testing.T) {
	tests := []struct {
		name       string
		assessment Assessment
		want       bool
	}{
		{"approve", AssessmentApprove, true},
		{"needs_changes", AssessmentNeedsChanges, true},
		{"reject", AssessmentReject, true},
		{"empty", Assessment(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.assessment.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasHighSeverity(t *testing.T) {
	verdict := &ReviewVerdict{
		OverallAssessment: AssessmentApprove,
		Score:             8.5,
		Concerns: []Concern{
			{Severity: SeverityLow, Description: "naming nit"},
			{Severity: SeverityMedium, Description: "missing test"},
		},
	}
	if verdict.HasHighSeverity() {
		t.Error("expected no high severity concern")
	}

	verdict.Concerns = append(verdict.Concerns, Concern{
		Severity:    SeverityHigh,
		Description: "data race in commit path",
	})
	if !verdict.HasHighSeverity() {
		t.Error("expected high severity concern to be detected")
	}
}
