// Package kanban maps board columns to task statuses.
package kanban

import (
	"errors"
	"strings"
	"time"

	"taskboard/internal/models"
)

var ErrUnknownColumn = errors.New("unknown board column")

// Column is a drop target on the board.
type Column struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Status models.Status `json:"status"`
}

// Board lists the columns in display order.
var Board = []Column{
	{ID: "backlog", Title: "Backlog", Status: models.StatusBacklog},
	{ID: "todo", Title: "To Do", Status: models.StatusPending},
	{ID: "in-progress", Title: "In Progress", Status: models.StatusInProgress},
	{ID: "review", Title: "Review", Status: models.StatusUnderReview},
	{ID: "done", Title: "Done", Status: models.StatusCompleted},
}

var aliases = map[string]models.Status{
	"pending":      models.StatusPending,
	"in_progress":  models.StatusInProgress,
	"under_review": models.StatusUnderReview,
	"completed":    models.StatusCompleted,
}

// StatusFor returns the status a task takes when dropped on column.
func StatusFor(column string) (models.Status, error) {
	id := strings.ToLower(strings.TrimSpace(column))
	for _, c := range Board {
		if c.ID == id {
			return c.Status, nil
		}
	}
	if s, ok := aliases[id]; ok {
		return s, nil
	}
	return "", ErrUnknownColumn
}

// ColumnFor is the inverse of StatusFor.
func ColumnFor(status models.Status) Column {
	for _, c := range Board {
		if c.Status == status {
			return c
		}
	}
	return Board[1]
}

// MoveFields is the single update a drop issues: the canonical status, the
// legacy field removed, and the progress timestamp.
func MoveFields(column string, at time.Time) (map[string]any, error) {
	status, err := StatusFor(column)
	if err != nil {
		return nil, err
	}
	fields := models.StatusFields(status)
	fields["progress_updated_at"] = models.NewTimestamp(at).String()
	return fields, nil
}

// Group buckets tasks by column, in board order.
func Group(tasks []models.Task) map[string][]models.Task {
	out := make(map[string][]models.Task, len(Board))
	for _, c := range Board {
		out[c.ID] = []models.Task{}
	}
	for _, t := range tasks {
		c := ColumnFor(t.Status)
		out[c.ID] = append(out[c.ID], t)
	}
	return out
}
