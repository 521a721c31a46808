package review

import (
	"testing"

	"github.com/praxisworks/conductor/pkg/models"
)

func verdict(reviewer string, assessment models.Assessment, score float64, concerns ...models.Concern) *models.ReviewVerdict {
	return &models.ReviewVerdict{
		Reviewer:          reviewer,
		OverallAssessment: assessment,
		Score:             score,
		Concerns:          concerns,
	}
}

func TestGateEvaluate(t *testing.T) {
	tests := []struct {
		name string
		gate Gate
		a, b *models.ReviewVerdict
		want bool
	}{
		{
			name: "both approve above floor",
			gate: PlanGate(),
			a:    verdict("a", models.AssessmentApprove, 8.0),
			b:    verdict("b", models.AssessmentApprove, 6.5),
			want: true,
		},
		{
			name: "one needs changes",
			gate: PlanGate(),
			a:    verdict("a", models.AssessmentApprove, 8.0),
			b:    verdict("b", models.AssessmentNeedsChanges, 5.5),
			want: false,
		},
		{
			name: "approve but below floor",
			gate: PlanGate(),
			a:    verdict("a", models.AssessmentApprove, 5.9),
			b:    verdict("b", models.AssessmentApprove, 9.0),
			want: false,
		},
		{
			name: "score at floor passes",
			gate: PlanGate(),
			a:    verdict("a", models.AssessmentApprove, 6.0),
			b:    verdict("b", models.AssessmentApprove, 6.0),
			want: true,
		},
		{
			name: "high severity concern blocks despite scores",
			gate: CodeGate(),
			a: verdict("a", models.AssessmentApprove, 9.0,
				models.Concern{Severity: models.SeverityHigh, Description: "auth bypass"}),
			b:    verdict("b", models.AssessmentApprove, 9.5),
			want: false,
		},
		{
			name: "medium and low concerns do not block",
			gate: CodeGate(),
			a: verdict("a", models.AssessmentApprove, 8.0,
				models.Concern{Severity: models.SeverityMedium, Description: "naming"},
				models.Concern{Severity: models.SeverityLow, Description: "typo"}),
			b:    verdict("b", models.AssessmentApprove, 7.5),
			want: true,
		},
		{
			name: "reject blocks",
			gate: CodeGate(),
			a:    verdict("a", models.AssessmentReject, 2.0),
			b:    verdict("b", models.AssessmentApprove, 8.0),
			want: false,
		},
		{
			name: "code gate is stricter than plan gate",
			gate: CodeGate(),
			a:    verdict("a", models.AssessmentApprove, 6.5),
			b:    verdict("b", models.AssessmentApprove, 8.0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.gate.Evaluate(tt.a, tt.b)
			if got.Approved != tt.want {
				t.Errorf("Evaluate() approved = %v, want %v (reasons: %s)",
					got.Approved, tt.want, got.Reason())
			}
			if !got.Approved && len(got.Reasons) == 0 {
				t.Error("rejected result must carry reasons")
			}
			if got.Approved && len(got.Reasons) != 0 {
				t.Errorf("approved result must not carry reasons, got %v", got.Reasons)
			}
		})
	}
}

func TestGateReportsAllFailures(t *testing.T) {
	a := verdict("a", models.AssessmentNeedsChanges, 4.0,
		models.Concern{Severity: models.SeverityHigh, Description: "race condition"})
	b := verdict("b", models.AssessmentApprove, 8.0)

	got := PlanGate().Evaluate(a, b)
	if len(got.Reasons) != 3 {
		t.Errorf("expected 3 reasons (assessment, score, severity), got %d: %v",
			len(got.Reasons), got.Reasons)
	}
}
