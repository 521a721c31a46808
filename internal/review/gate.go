// Package review decides whether dual-reviewer verdicts pass a quality
// gate. Both plan validation and final code verification use the same
// gate with different minimum scores.
package review

import (
	"fmt"
	"strings"

	"github.com/praxisworks/conductor/pkg/models"
)

const (
	// DefaultPlanMinScore is the minimum score both reviewers must
	// give a plan.
	DefaultPlanMinScore = 6.0
	// DefaultCodeMinScore is the minimum score both reviewers must
	// give the implementation.
	DefaultCodeMinScore = 7.0
)

// Gate evaluates a pair of reviewer verdicts against a score floor.
type Gate struct {
	// MinScore is the lowest acceptable score from either reviewer.
	MinScore float64
}

// PlanGate returns the gate used for plan validation.
func PlanGate() Gate { return Gate{MinScore: DefaultPlanMinScore} }

// CodeGate returns the gate used for final code verification.
func CodeGate() Gate { return Gate{MinScore: DefaultCodeMinScore} }

// Result explains a gate decision.
type Result struct {
	// Approved is true only when every condition passed.
	Approved bool
	// Reasons lists every failed condition, empty when approved.
	Reasons []string
}

// Reason joins the failure reasons for display.
func (r Result) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// Evaluate applies the gate: both reviewers must approve, both scores
// must meet the floor, and no concern from either may be high
// severity. Every failed condition is reported, not just the first.
func (g Gate) Evaluate(a, b *models.ReviewVerdict) Result {
	var reasons []string

	for _, v := range []*models.ReviewVerdict{a, b} {
		if v.OverallAssessment != models.AssessmentApprove {
			reasons = append(reasons, fmt.Sprintf(
				"reviewer %s assessment is %s", v.Reviewer, v.OverallAssessment))
		}
		if v.Score < g.MinScore {
			reasons = append(reasons, fmt.Sprintf(
				"reviewer %s score %.1f below minimum %.1f", v.Reviewer, v.Score, g.MinScore))
		}
		if v.HasHighSeverity() {
			reasons = append(reasons, fmt.Sprintf(
				"reviewer %s raised a high severity concern", v.Reviewer))
		}
	}

	return Result{Approved: len(reasons) == 0, Reasons: reasons}
}
