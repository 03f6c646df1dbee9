// Package metrics derives performance scores and chart aggregates from task
// records. Everything here is pure: the same tasks and the same now always
// give the same result. The only outside input, the daily HR feedback score,
// is looked up by the caller through a FeedbackSource.
package metrics

import (
	"math"
	"time"

	"taskboard/internal/models"
)

// Weights of the weighted_performance composite.
const (
	weightProductivity = 0.20
	weightCompletion   = 0.25
	weightOnTime       = 0.25
	weightReview       = 0.20
	weightHRFeedback   = 0.10
)

// Weights of the delivery_performance composite.
const (
	deliveryOnTime     = 0.40
	deliveryCompletion = 0.35
	deliveryOverdue    = 0.25
	deliveryLate       = 0.15
)

// Names under which the two composites are reported.
const (
	WeightedPerformanceMetric = "weighted_performance"
	DeliveryPerformanceMetric = "delivery_performance"
)

// rate returns part/whole as a percentage, 0 when whole is 0.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func completed(t models.Task) bool {
	return t.Status == models.StatusCompleted
}

// onTime reports whether a completed task was finished on or before its due
// date. Tasks without both timestamps are never on time.
func onTime(t models.Task) bool {
	return completed(t) && t.DueDate.Valid() && t.ProgressUpdatedAt.Valid() &&
		!t.ProgressUpdatedAt.After(t.DueDate.Time)
}

// late reports whether a completed task was finished after its due date.
func late(t models.Task) bool {
	return completed(t) && t.DueDate.Valid() && t.ProgressUpdatedAt.Valid() &&
		t.ProgressUpdatedAt.After(t.DueDate.Time)
}

// CompletionRate is completed / total × 100.
func CompletionRate(tasks []models.Task) float64 {
	done := 0
	for _, t := range tasks {
		if completed(t) {
			done++
		}
	}
	return rate(done, len(tasks))
}

// OnTimeRate is the share of completed tasks finished by their due date.
func OnTimeRate(tasks []models.Task) float64 {
	done, ok := 0, 0
	for _, t := range tasks {
		if !completed(t) {
			continue
		}
		done++
		if onTime(t) {
			ok++
		}
	}
	return rate(ok, done)
}

// LateRate is the share of completed tasks finished after their due date.
func LateRate(tasks []models.Task) float64 {
	done, n := 0, 0
	for _, t := range tasks {
		if !completed(t) {
			continue
		}
		done++
		if late(t) {
			n++
		}
	}
	return rate(n, done)
}

// OverdueRate is the share of all tasks that are still open past their due date.
func OverdueRate(tasks []models.Task, now time.Time) float64 {
	n := 0
	for _, t := range tasks {
		if t.Overdue(now) {
			n++
		}
	}
	return rate(n, len(tasks))
}

// AvgDelayDays is the mean delay, in whole days rounded up, of the tasks
// completed late.
func AvgDelayDays(tasks []models.Task) float64 {
	var delays []float64
	for _, t := range tasks {
		if !late(t) {
			continue
		}
		delay := t.ProgressUpdatedAt.Sub(t.DueDate.Time)
		delays = append(delays, math.Ceil(delay.Hours()/24))
	}
	return mean(delays)
}

// TaskProductivityScore scores one completed task by how much of its planned
// window (created_at to due_date) was left, or overrun, at completion.
//
//	on time: fraction >= 0.5 -> 100, 0 < fraction < 0.1 -> 70, otherwise 60
//	late:    fraction <= 0.1 -> 50, fraction <= 0.5 -> 30, otherwise 10
//
// ok is false for tasks that are not completed or lack one of the three
// timestamps; such tasks do not take part in the average.
func TaskProductivityScore(t models.Task) (score float64, ok bool) {
	if !completed(t) || !t.CreatedAt.Valid() || !t.DueDate.Valid() || !t.ProgressUpdatedAt.Valid() {
		return 0, false
	}
	due := t.DueDate.Time
	done := t.ProgressUpdatedAt.Time
	window := due.Sub(t.CreatedAt.Time)

	if !done.After(due) {
		var fraction float64
		if window > 0 {
			fraction = float64(due.Sub(done)) / float64(window)
		}
		switch {
		case fraction >= 0.5:
			return 100, true
		case fraction > 0 && fraction < 0.1:
			return 70, true
		default:
			return 60, true
		}
	}

	if window <= 0 {
		return 10, true
	}
	fraction := float64(done.Sub(due)) / float64(window)
	switch {
	case fraction <= 0.1:
		return 50, true
	case fraction <= 0.5:
		return 30, true
	default:
		return 10, true
	}
}

// ProductivityScore averages TaskProductivityScore over the scorable tasks.
func ProductivityScore(tasks []models.Task) float64 {
	var scores []float64
	for _, t := range tasks {
		if s, ok := TaskProductivityScore(t); ok {
			scores = append(scores, s)
		}
	}
	return mean(scores)
}

// ReviewScore averages reviewpoints over the tasks that carry one.
func ReviewScore(tasks []models.Task) float64 {
	var points []float64
	for _, t := range tasks {
		if t.ReviewPoints != nil {
			points = append(points, *t.ReviewPoints)
		}
	}
	return mean(points)
}

// Inputs are the five components of the weighted composite, each nominally
// on a 0-100 scale.
type Inputs struct {
	Productivity   float64 `json:"productivity_score"`
	CompletionRate float64 `json:"completion_rate"`
	OnTimeRate     float64 `json:"on_time_rate"`
	Review         float64 `json:"review_score"`
	HRFeedback     float64 `json:"hr_feedback_score"`
}

// TotalPerformanceScore is the weighted_performance composite. It is bounded
// below by 0 only; inputs above 100 carry through.
func TotalPerformanceScore(in Inputs) float64 {
	total := in.Productivity*weightProductivity +
		in.CompletionRate*weightCompletion +
		in.OnTimeRate*weightOnTime +
		in.Review*weightReview +
		in.HRFeedback*weightHRFeedback
	return math.Max(0, total)
}

// DeliveryPerformance is the delivery_performance composite used by the
// analytics dashboard, clamped to [0, 100].
func DeliveryPerformance(onTimeRate, completionRate, overdueRate, lateRate float64) float64 {
	score := onTimeRate*deliveryOnTime +
		completionRate*deliveryCompletion -
		overdueRate*deliveryOverdue -
		lateRate*deliveryLate
	return math.Min(100, math.Max(0, score))
}

// EmployeeMetrics is everything derived for one employee's tasks.
type EmployeeMetrics struct {
	EmployeeID          string  `json:"employee_id"`
	Name                string  `json:"name"`
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	PendingTasks        int     `json:"pending_tasks"`
	OverdueTasks        int     `json:"overdue_tasks"`
	LateTasks           int     `json:"late_tasks"`
	CompletionRate      float64 `json:"completion_rate"`
	OnTimeRate          float64 `json:"on_time_rate"`
	OverdueRate         float64 `json:"overdue_rate"`
	LateRate            float64 `json:"late_rate"`
	AvgDelayDays        float64 `json:"avg_delay_days"`
	ProductivityScore   float64 `json:"productivity_score"`
	ReviewScore         float64 `json:"review_score"`
	HRFeedbackScore     float64 `json:"hr_feedback_score"`
	WeightedPerformance float64 `json:"weighted_performance"`
	DeliveryPerformance float64 `json:"delivery_performance"`
}

// Compute derives the metrics of one employee from the tasks assigned to them
// and that day's HR feedback score.
func Compute(employeeID string, tasks []models.Task, hrFeedback float64, now time.Time) EmployeeMetrics {
	m := EmployeeMetrics{EmployeeID: employeeID, TotalTasks: len(tasks), HRFeedbackScore: hrFeedback}
	for _, t := range tasks {
		switch {
		case completed(t):
			m.CompletedTasks++
			if late(t) {
				m.LateTasks++
			}
		case t.Overdue(now):
			m.OverdueTasks++
			m.PendingTasks++
		default:
			m.PendingTasks++
		}
	}

	m.CompletionRate = CompletionRate(tasks)
	m.OnTimeRate = OnTimeRate(tasks)
	m.OverdueRate = OverdueRate(tasks, now)
	m.LateRate = LateRate(tasks)
	m.AvgDelayDays = AvgDelayDays(tasks)
	m.ProductivityScore = ProductivityScore(tasks)
	m.ReviewScore = ReviewScore(tasks)
	m.WeightedPerformance = TotalPerformanceScore(Inputs{
		Productivity:   m.ProductivityScore,
		CompletionRate: m.CompletionRate,
		OnTimeRate:     m.OnTimeRate,
		Review:         m.ReviewScore,
		HRFeedback:     m.HRFeedbackScore,
	})
	m.DeliveryPerformance = DeliveryPerformance(m.OnTimeRate, m.CompletionRate, m.OverdueRate, m.LateRate)
	return m
}

// AssignedTo returns the tasks assigned to employeeID, in input order.
func AssignedTo(tasks []models.Task, employeeID string) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.AssignedTo == employeeID {
			out = append(out, t)
		}
	}
	return out
}
