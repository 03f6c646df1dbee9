package models

import (
	"fmt"
	"strings"
	"time"

	"taskboard/internal/docstore"
)

// Status is the single canonical task status. Older documents also carry a
// parallel progress_status field; see StatusOf.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusUnderReview Status = "under_review"
	StatusBacklog     Status = "backlog"
)

// ParseStatus accepts the canonical values plus the spellings older clients
// wrote ("In Progress", "in-progress", "done", "review").
func ParseStatus(s string) (Status, bool) {
	norm := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "pending", "todo", "to_do":
		return StatusPending, true
	case "in_progress", "inprogress":
		return StatusInProgress, true
	case "completed", "done", "complete":
		return StatusCompleted, true
	case "under_review", "review", "in_review":
		return StatusUnderReview, true
	case "backlog":
		return StatusBacklog, true
	}
	return "", false
}

// LegacyStatusField is the redundant field kept by older writers. New writes
// remove it.
const LegacyStatusField = "progress_status"

// StatusOf reads a task's status: status when valid, else the legacy
// progress_status, else pending.
func StatusOf(data map[string]any) Status {
	f := fields(data)
	if s, ok := ParseStatus(f.str("status")); ok {
		return s
	}
	if s, ok := ParseStatus(f.str(LegacyStatusField)); ok {
		return s
	}
	return StatusPending
}

// StatusFields is the write-side counterpart of StatusOf.
func StatusFields(s Status) map[string]any {
	return map[string]any{"status": string(s), LegacyStatusField: nil}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	}
	return PriorityMedium
}

type Comment struct {
	Text      string    `json:"text"`
	UserName  string    `json:"userName"`
	Timestamp Timestamp `json:"timestamp"`
}

type ReassignEntry struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	By        string    `json:"by,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

type Task struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Status              Status          `json:"status"`
	Priority            Priority        `json:"priority"`
	AssignedTo          string          `json:"assigned_to"`
	CreatedBy           string          `json:"created_by"`
	ProjectID           string          `json:"project_id,omitempty"`
	CreatedAt           Timestamp       `json:"created_at"`
	DueDate             Date            `json:"due_date"`
	ProgressUpdatedAt   Timestamp       `json:"progress_updated_at"`
	ProgressDescription string          `json:"progress_description,omitempty"`
	ProgressLink        string          `json:"progress_link,omitempty"`
	LinkedTicket        string          `json:"linked_ticket,omitempty"`
	Comments            []Comment       `json:"comments"`
	ReassignHistory     []ReassignEntry `json:"reassign_history"`
	ReviewPoints        *float64        `json:"reviewpoints"`
	Version             int64           `json:"version"`
}

func TaskFromDocument(doc docstore.Document) Task {
	f := fields(doc.Data)
	t := Task{
		ID:                  doc.ID,
		Title:               f.str("title"),
		Description:         f.str("description"),
		Status:              StatusOf(doc.Data),
		Priority:            ParsePriority(f.str("priority")),
		AssignedTo:          f.str("assigned_to"),
		CreatedBy:           f.str("created_by"),
		ProjectID:           f.first("project_id", "projectId"),
		CreatedAt:           f.timestamp("created_at"),
		DueDate:             f.date("due_date"),
		ProgressUpdatedAt:   f.timestamp("progress_updated_at"),
		ProgressDescription: f.str("progress_description"),
		ProgressLink:        f.str("progress_link"),
		LinkedTicket:        f.str("linked_ticket"),
		Comments:            []Comment{},
		ReassignHistory:     []ReassignEntry{},
		Version:             doc.Version,
	}
	if v, ok := f.num("reviewpoints"); ok {
		t.ReviewPoints = &v
	}
	for _, c := range f.objects("comments") {
		t.Comments = append(t.Comments, Comment{
			Text:      c.str("text"),
			UserName:  c.str("userName"),
			Timestamp: c.timestamp("timestamp"),
		})
	}
	for _, r := range f.objects("reassign_history") {
		t.ReassignHistory = append(t.ReassignHistory, ReassignEntry{
			From:      r.first("from", "previous_assignee"),
			To:        r.first("to", "new_assignee"),
			Reason:    r.str("reason"),
			By:        r.str("by"),
			Timestamp: r.timestamp("timestamp"),
		})
	}
	return t
}

// Overdue reports whether an open task is past its due date at now.
func (t Task) Overdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueDate.Valid() && now.After(t.DueDate.Time)
}

type Employee struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Department string   `json:"department"`
	Role       string   `json:"role"`
	Avatar     string   `json:"avatar"`
	Skills     []string `json:"skills"`
	JoinDate   Date     `json:"join_date"`
	Version    int64    `json:"version"`
}

func EmployeeFromDocument(doc docstore.Document) Employee {
	f := fields(doc.Data)
	return Employee{
		ID:         doc.ID,
		Name:       f.str("name"),
		Email:      f.str("email"),
		Department: f.str("department"),
		Role:       f.str("role"),
		Avatar:     f.str("avatar"),
		Skills:     f.strs("skills"),
		JoinDate:   f.date("join_date"),
		Version:    doc.Version,
	}
}

type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartDate   Date     `json:"startDate"`
	Deadline    Date     `json:"deadline"`
	TeamID      string   `json:"teamId"`
	CreatedBy   string   `json:"created_by"`
	Status      string   `json:"status"`
	Priority    Priority `json:"priority"`
	Budget      float64  `json:"budget"`
	Client      string   `json:"client"`
	Version     int64    `json:"version"`
}

func ProjectFromDocument(doc docstore.Document) Project {
	f := fields(doc.Data)
	budget, _ := f.num("budget")
	return Project{
		ID:          doc.ID,
		Name:        f.str("name"),
		Description: f.str("description"),
		StartDate:   f.date("startDate"),
		Deadline:    f.date("deadline"),
		TeamID:      f.str("teamId"),
		CreatedBy:   f.str("created_by"),
		Status:      f.str("status"),
		Priority:    ParsePriority(f.str("priority")),
		Budget:      budget,
		Client:      f.str("client"),
		Version:     doc.Version,
	}
}

type Team struct {
	ID        string   `json:"id"`
	TeamName  string   `json:"teamName"`
	Members   []string `json:"members"`
	TeamLead  string   `json:"teamLead"`
	CreatedBy string   `json:"created_by"`
	Version   int64    `json:"version"`
}

func TeamFromDocument(doc docstore.Document) Team {
	f := fields(doc.Data)
	lead := f.str("teamLead")
	if lead == "" {
		lead = f.str("created_by")
	}
	return Team{
		ID:        doc.ID,
		TeamName:  f.str("teamName"),
		Members:   f.strs("members"),
		TeamLead:  lead,
		CreatedBy: f.str("created_by"),
		Version:   doc.Version,
	}
}

type Ticket struct {
	ID              string   `json:"id"`
	ProjectTicketID string   `json:"projectTicketId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        Priority `json:"priority"`
	Status          string   `json:"status"`
	Review          string   `json:"review"`
	DueDate         Date     `json:"dueDate"`
	ProjectID       string   `json:"projectId"`
	CreatedByName   string   `json:"createdByName"`
	Version         int64    `json:"version"`
}

func TicketFromDocument(doc docstore.Document) Ticket {
	f := fields(doc.Data)
	return Ticket{
		ID:              doc.ID,
		ProjectTicketID: f.str("projectTicketId"),
		Title:           f.str("title"),
		Description:     f.str("description"),
		Priority:        ParsePriority(f.str("priority")),
		Status:          f.str("status"),
		Review:          f.str("review"),
		DueDate:         f.date("dueDate"),
		ProjectID:       f.str("projectId"),
		CreatedByName:   f.str("createdByName"),
		Version:         doc.Version,
	}
}

// HRFeedback is one day's HR score for an employee, keyed by FeedbackKey.
type HRFeedback struct {
	EmployeeID string  `json:"employee_id"`
	Date       Date    `json:"date"`
	Score      float64 `json:"score"`
	Notes      string  `json:"notes,omitempty"`
	Version    int64   `json:"version"`
}

// FeedbackKey is the document id of an HR feedback record: {employeeId}_{YYYY-MM-DD}.
func FeedbackKey(employeeID string, day time.Time) string {
	return fmt.Sprintf("%s_%s", employeeID, day.UTC().Format(dateLayout))
}

// HRFeedbackFromDocument leaves Notes as stored (encrypted); callers decrypt.
func HRFeedbackFromDocument(doc docstore.Document) HRFeedback {
	f := fields(doc.Data)
	score, _ := f.num("score")
	return HRFeedback{
		EmployeeID: f.str("employee_id"),
		Date:       f.date("date"),
		Score:      score,
		Notes:      f.str("notes"),
		Version:    doc.Version,
	}
}

type Account struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	EmployeeID   string `json:"employee_id,omitempty"`
}

func AccountFromDocument(doc docstore.Document) Account {
	f := fields(doc.Data)
	role := f.str("role")
	if role == "" {
		role = "member"
	}
	return Account{
		ID:           doc.ID,
		Username:     f.str("username"),
		Email:        f.str("email"),
		PasswordHash: f.str("password"),
		Role:         role,
		EmployeeID:   f.str("employee_id"),
	}
}

// Display fallbacks for references that no longer resolve.
const (
	UnknownEmployee = "Unknown"
	UnknownProject  = "-"
)

func EmployeeName(byID map[string]Employee, id string) string {
	if e, ok := byID[id]; ok && e.Name != "" {
		return e.Name
	}
	return UnknownEmployee
}

func ProjectName(byID map[string]Project, id string) string {
	if p, ok := byID[id]; ok && p.Name != "" {
		return p.Name
	}
	return UnknownProject
}
