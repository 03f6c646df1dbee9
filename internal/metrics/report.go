package metrics

import (
	"encoding/json"
	"fmt"
	"time"

	"taskboard/internal/models"
)

// Report is the exportable summary of a period.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	From        models.Date       `json:"from"`
	To          models.Date       `json:"to"`
	Summary     Summary           `json:"summary"`
	ByStatus    []Bucket          `json:"by_status"`
	ByPriority  []Bucket          `json:"by_priority"`
	Employees   []EmployeeMetrics `json:"employees"`
	Projects    []ProjectProgress `json:"projects"`
	Teams       []TeamRow         `json:"teams"`
	Trend       []TrendPoint      `json:"trend"`
}

type Summary struct {
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	OverdueTasks        int     `json:"overdue_tasks"`
	CompletionRate      float64 `json:"completion_rate"`
	OnTimeRate          float64 `json:"on_time_rate"`
	AvgDelayDays        float64 `json:"avg_delay_days"`
	ProductivityScore   float64 `json:"productivity_score"`
	DeliveryPerformance float64 `json:"delivery_performance"`
}

// DefaultReportDays is the period of a report when no range is given.
const DefaultReportDays = 30

// InRange returns the tasks created within from..to, both days inclusive.
// Tasks with no created_at fall outside every range.
func InRange(tasks []models.Task, from, to time.Time) []models.Task {
	start := models.NewDate(from).Time
	end := models.NewDate(to).AddDate(0, 0, 1)
	var out []models.Task
	for _, t := range tasks {
		if !t.CreatedAt.Valid() {
			continue
		}
		if !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// BuildReport summarises the tasks created between from and to.
func BuildReport(data Data, from, to, now time.Time) Report {
	tasks := InRange(data.Tasks, from, to)
	r := Report{
		GeneratedAt: now,
		From:        models.NewDate(from),
		To:          models.NewDate(to),
		ByStatus:    ByStatus(tasks),
		ByPriority:  ByPriority(tasks),
		Employees:   EmployeeRows(data.Employees, tasks, data.HRScores, now),
		Projects:    ProjectsProgress(data.Projects, tasks, now),
		Teams:       TeamMatrix(data.Teams, data.Employees, tasks, data.HRScores, now),
		Trend:       DailyTrend(tasks, from, to),
	}

	s := Summary{
		TotalTasks:        len(tasks),
		CompletionRate:    CompletionRate(tasks),
		OnTimeRate:        OnTimeRate(tasks),
		AvgDelayDays:      AvgDelayDays(tasks),
		ProductivityScore: ProductivityScore(tasks),
	}
	for _, t := range tasks {
		if completed(t) {
			s.CompletedTasks++
		}
		if t.Overdue(now) {
			s.OverdueTasks++
		}
	}
	s.DeliveryPerformance = DeliveryPerformance(s.OnTimeRate, s.CompletionRate, OverdueRate(tasks, now), LateRate(tasks))
	r.Summary = s
	return r
}

// ExportFilename names an export file after the day it was made.
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.json", prefix, now.UTC().Format("2006-01-02"))
}

// Export serializes v as indented JSON, unchanged.
func Export(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
