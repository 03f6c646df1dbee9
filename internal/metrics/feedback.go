package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// FeedbackSource looks up the HR feedback score of an employee for one day.
// found is false when no record exists.
type FeedbackSource interface {
	FeedbackScore(ctx context.Context, employeeID string, day time.Time) (score float64, found bool, err error)
}

// FeedbackFunc adapts a function to FeedbackSource.
type FeedbackFunc func(ctx context.Context, employeeID string, day time.Time) (float64, bool, error)

func (f FeedbackFunc) FeedbackScore(ctx context.Context, employeeID string, day time.Time) (float64, bool, error) {
	return f(ctx, employeeID, day)
}

// HRFeedbackScore returns the day's score, or 0 when there is no record or the
// lookup fails. Failures are logged and never returned.
func HRFeedbackScore(ctx context.Context, src FeedbackSource, employeeID string, day time.Time) float64 {
	if src == nil {
		return 0
	}
	score, found, err := src.FeedbackScore(ctx, employeeID, day)
	if err != nil {
		logger.ErrorLogger.Error("HR feedback lookup failed",
			zap.String("employee_id", employeeID),
			zap.String("date", day.UTC().Format("2006-01-02")),
			zap.Error(err))
		return 0
	}
	if !found {
		return 0
	}
	return score
}

// Evaluate looks up today's HR feedback and computes the employee's metrics.
func Evaluate(ctx context.Context, src FeedbackSource, employeeID string, tasks []models.Task, now time.Time) EmployeeMetrics {
	return Compute(employeeID, tasks, HRFeedbackScore(ctx, src, employeeID, now), now)
}
