package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/praxisworks/conductor/pkg/models"
)

// ReviewCall produces one reviewer's verdict.
type ReviewCall func(ctx context.Context) (*models.ReviewVerdict, error)

// FanOut runs both reviewer calls concurrently and joins them. Both
// calls always complete before it returns. An error from one reviewer
// is that reviewer's failure, never a fatal run failure: the failed
// side joins as a needs_changes verdict carrying the error, so the
// gate fails closed and the normal retry path applies.
func FanOut(ctx context.Context, reviewerA, reviewerB ReviewCall) (*models.ReviewVerdict, *models.ReviewVerdict) {
	var wg sync.WaitGroup
	var a, b *models.ReviewVerdict
	var errA, errB error

	wg.Add(2)
	go func() {
		defer wg.Done()
		a, errA = reviewerA(ctx)
	}()
	go func() {
		defer wg.Done()
		b, errB = reviewerB(ctx)
	}()
	wg.Wait()

	if errA != nil || a == nil {
		a = failedVerdict("a", errA)
	}
	if errB != nil || b == nil {
		b = failedVerdict("b", errB)
	}
	return a, b
}

// failedVerdict stands in for a reviewer that errored.
func failedVerdict(reviewer string, err error) *models.ReviewVerdict {
	msg := "reviewer returned no verdict"
	if err != nil {
		msg = err.Error()
	}
	return &models.ReviewVerdict{
		Reviewer:          reviewer,
		OverallAssessment: models.AssessmentNeedsChanges,
		Score:             0,
		Concerns: []models.Concern{{
			Severity:    models.SeverityMedium,
			Description: fmt.Sprintf("reviewer %s failed: %s", reviewer, msg),
		}},
		Summary: "reviewer call failed; verdict synthesized",
	}
}
