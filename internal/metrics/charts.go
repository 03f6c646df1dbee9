package metrics

import (
	"sort"
	"time"

	"taskboard/internal/models"
)

// Bucket is one bar or slice of a chart.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

var statusOrder = []models.Status{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusUnderReview,
	models.StatusCompleted,
	models.StatusBacklog,
}

var priorityOrder = []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

// ByStatus counts tasks per status, in board order, zero counts included.
func ByStatus(tasks []models.Task) []Bucket {
	counts := map[models.Status]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]Bucket, 0, len(statusOrder))
	for _, s := range statusOrder {
		out = append(out, Bucket{Label: string(s), Count: counts[s]})
	}
	return out
}

// ByPriority counts tasks per priority, high first.
func ByPriority(tasks []models.Task) []Bucket {
	counts := map[models.Priority]int{}
	for _, t := range tasks {
		counts[t.Priority]++
	}
	out := make([]Bucket, 0, len(priorityOrder))
	for _, p := range priorityOrder {
		out = append(out, Bucket{Label: string(p), Count: counts[p]})
	}
	return out
}

// EmployeeRows computes metrics for every employee, ordered by weighted
// performance, best first. hrScores holds the day's HR feedback per employee
// id; missing entries count as 0. Tasks assigned to ids that are not in
// employees appear under the "Unknown" fallback name.
func EmployeeRows(employees []models.Employee, tasks []models.Task, hrScores map[string]float64, now time.Time) []EmployeeMetrics {
	byID := make(map[string]models.Employee, len(employees))
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}
	for _, t := range tasks {
		if _, ok := byID[t.AssignedTo]; !ok && t.AssignedTo != "" {
			byID[t.AssignedTo] = models.Employee{ID: t.AssignedTo}
			ids = append(ids, t.AssignedTo)
		}
	}

	rows := make([]EmployeeMetrics, 0, len(ids))
	for _, id := range ids {
		m := Compute(id, AssignedTo(tasks, id), hrScores[id], now)
		m.Name = models.EmployeeName(byID, id)
		rows = append(rows, m)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].WeightedPerformance > rows[j].WeightedPerformance
	})
	return rows
}

// ProjectProgress is the completion state of one project.
type ProjectProgress struct {
	ProjectID      string  `json:"project_id"`
	Name           string  `json:"name"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	Progress       float64 `json:"progress"`
}

// ProjectsProgress reports every project, plus one row per dangling project
// id referenced by a task. Tasks without a project are left out.
func ProjectsProgress(projects []models.Project, tasks []models.Task, now time.Time) []ProjectProgress {
	byID := make(map[string]models.Project, len(projects))
	rows := make([]ProjectProgress, 0, len(projects))
	index := map[string]int{}
	for _, p := range projects {
		byID[p.ID] = p
		index[p.ID] = len(rows)
		rows = append(rows, ProjectProgress{ProjectID: p.ID})
	}
	for _, t := range tasks {
		if t.ProjectID == "" {
			continue
		}
		i, ok := index[t.ProjectID]
		if !ok {
			i = len(rows)
			index[t.ProjectID] = i
			rows = append(rows, ProjectProgress{ProjectID: t.ProjectID})
		}
		rows[i].TotalTasks++
		if completed(t) {
			rows[i].CompletedTasks++
		}
		if t.Overdue(now) {
			rows[i].OverdueTasks++
		}
	}
	for i := range rows {
		rows[i].Name = models.ProjectName(byID, rows[i].ProjectID)
		rows[i].Progress = rate(rows[i].CompletedTasks, rows[i].TotalTasks)
	}
	return rows
}

// TrendPoint is one day of the completion trend.
type TrendPoint struct {
	Date      models.Date `json:"date"`
	Created   int         `json:"created"`
	Completed int         `json:"completed"`
}

// DailyTrend counts tasks created and completed on each day from..to,
// both inclusive. Completion is dated by progress_updated_at.
func DailyTrend(tasks []models.Task, from, to time.Time) []TrendPoint {
	start, end := models.NewDate(from), models.NewDate(to)
	if end.Before(start.Time) {
		return []TrendPoint{}
	}
	var points []TrendPoint
	index := map[string]int{}
	for d := start.Time; !d.After(end.Time); d = d.AddDate(0, 0, 1) {
		day := models.NewDate(d)
		index[day.String()] = len(points)
		points = append(points, TrendPoint{Date: day})
	}
	for _, t := range tasks {
		if t.CreatedAt.Valid() {
			if i, ok := index[models.NewDate(t.CreatedAt.Time).String()]; ok {
				points[i].Created++
			}
		}
		if completed(t) && t.ProgressUpdatedAt.Valid() {
			if i, ok := index[models.NewDate(t.ProgressUpdatedAt.Time).String()]; ok {
				points[i].Completed++
			}
		}
	}
	return points
}

// TeamRow is one line of the team performance matrix.
type TeamRow struct {
	TeamID              string  `json:"team_id"`
	TeamName            string  `json:"team_name"`
	Lead                string  `json:"lead"`
	Members             int     `json:"members"`
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	CompletionRate      float64 `json:"completion_rate"`
	OnTimeRate          float64 `json:"on_time_rate"`
	WeightedPerformance float64 `json:"weighted_performance"`
}

// TeamMatrix aggregates the tasks of each team's members. A team's
// weighted_performance is the mean of its members' scores.
func TeamMatrix(teams []models.Team, employees []models.Employee, tasks []models.Task, hrScores map[string]float64, now time.Time) []TeamRow {
	byID := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	rows := make([]TeamRow, 0, len(teams))
	for _, team := range teams {
		var teamTasks []models.Task
		var scores []float64
		for _, member := range team.Members {
			mine := AssignedTo(tasks, member)
			teamTasks = append(teamTasks, mine...)
			scores = append(scores, Compute(member, mine, hrScores[member], now).WeightedPerformance)
		}
		done := 0
		for _, t := range teamTasks {
			if completed(t) {
				done++
			}
		}
		lead := ""
		if team.TeamLead != "" {
			lead = models.EmployeeName(byID, team.TeamLead)
		}
		rows = append(rows, TeamRow{
			TeamID:              team.ID,
			TeamName:            team.TeamName,
			Lead:                lead,
			Members:             len(team.Members),
			TotalTasks:          len(teamTasks),
			CompletedTasks:      done,
			CompletionRate:      CompletionRate(teamTasks),
			OnTimeRate:          OnTimeRate(teamTasks),
			WeightedPerformance: mean(scores),
		})
	}
	return rows
}

// Dashboard is the analytics overview of all tasks.
type Dashboard struct {
	TotalTasks          int               `json:"total_tasks"`
	CompletedTasks      int               `json:"completed_tasks"`
	OverdueTasks        int               `json:"overdue_tasks"`
	CompletionRate      float64           `json:"completion_rate"`
	OnTimeRate          float64           `json:"on_time_rate"`
	OverdueRate         float64           `json:"overdue_rate"`
	LateRate            float64           `json:"late_rate"`
	DeliveryPerformance float64           `json:"delivery_performance"`
	ByStatus            []Bucket          `json:"by_status"`
	ByPriority          []Bucket          `json:"by_priority"`
	Projects            []ProjectProgress `json:"projects"`
	Trend               []TrendPoint      `json:"trend"`
	TopPerformers       []EmployeeMetrics `json:"top_performers"`
}

// TrendDays is the length of the dashboard's completion trend.
const TrendDays = 14

// topPerformers is how many employees the dashboard lists.
const topPerformers = 5

// Data is the raw material of the dashboard and reports.
type Data struct {
	Tasks     []models.Task
	Employees []models.Employee
	Projects  []models.Project
	Teams     []models.Team
	// HRScores holds the day's HR feedback score per employee id.
	HRScores map[string]float64
}

// BuildDashboard derives the dashboard as of now.
func BuildDashboard(data Data, now time.Time) Dashboard {
	tasks := data.Tasks
	d := Dashboard{
		TotalTasks:     len(tasks),
		CompletionRate: CompletionRate(tasks),
		OnTimeRate:     OnTimeRate(tasks),
		OverdueRate:    OverdueRate(tasks, now),
		LateRate:       LateRate(tasks),
		ByStatus:       ByStatus(tasks),
		ByPriority:     ByPriority(tasks),
		Projects:       ProjectsProgress(data.Projects, tasks, now),
		Trend:          DailyTrend(tasks, now.AddDate(0, 0, -(TrendDays-1)), now),
	}
	for _, t := range tasks {
		if completed(t) {
			d.CompletedTasks++
		}
		if t.Overdue(now) {
			d.OverdueTasks++
		}
	}
	d.DeliveryPerformance = DeliveryPerformance(d.OnTimeRate, d.CompletionRate, d.OverdueRate, d.LateRate)

	rows := EmployeeRows(data.Employees, tasks, data.HRScores, now)
	if len(rows) > topPerformers {
		rows = rows[:topPerformers]
	}
	d.TopPerformers = rows
	return d
}
