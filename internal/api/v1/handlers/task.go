package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/kanban"
	"taskboard/internal/models"
	"taskboard/internal/notify"
	"taskboard/pkg/logger"
)

// Task handlers

// taskView is a task with its references resolved for display.
type taskView struct {
	models.Task
	AssigneeName string `json:"assignee_name"`
	ProjectName  string `json:"project_name"`
}

type lookups struct {
	employees map[string]models.Employee
	projects  map[string]models.Project
}

func loadLookups(ctx context.Context) (lookups, error) {
	employees, err := loadAll(ctx, docstore.Employees, models.EmployeeFromDocument)
	if err != nil {
		return lookups{}, err
	}
	projects, err := loadAll(ctx, docstore.Projects, models.ProjectFromDocument)
	if err != nil {
		return lookups{}, err
	}
	l := lookups{
		employees: make(map[string]models.Employee, len(employees)),
		projects:  make(map[string]models.Project, len(projects)),
	}
	for _, e := range employees {
		l.employees[e.ID] = e
	}
	for _, p := range projects {
		l.projects[p.ID] = p
	}
	return l, nil
}

func (l lookups) view(t models.Task) taskView {
	v := taskView{Task: t, AssigneeName: models.EmployeeName(l.employees, t.AssignedTo)}
	v.ProjectName = models.ProjectName(l.projects, t.ProjectID)
	return v
}

// canTouch reports whether the caller may change the task: admins always,
// members only for tasks assigned to them.
func canTouch(c *fiber.Ctx, t models.Task) bool {
	return isAdmin(c) || (t.AssignedTo != "" && t.AssignedTo == actor(c))
}

// loadOwnTask fetches the task and checks the caller may change it. On
// failure the response is already written and ok is false.
func loadOwnTask(c *fiber.Ctx, action string) (doc docstore.Document, ok bool, err error) {
	doc, err = config.Store.Get(c.UserContext(), docstore.Tasks, c.Params("id"))
	if err != nil {
		return doc, false, storeError(c, err, action)
	}
	if !canTouch(c, models.TaskFromDocument(doc)) {
		return doc, false, forbidden(c, "You can only change your own tasks")
	}
	return doc, true, nil
}

// versionOr returns the client's version token, or the version just read
// when the client sent none, so read-modify-write updates never lose a
// concurrent write.
func versionOr(client int64, doc docstore.Document) int64 {
	if client > 0 {
		return client
	}
	return doc.Version
}

// appendEntry returns list with entry added, leaving list untouched.
func appendEntry(list any, entry map[string]any) []any {
	old, _ := list.([]any)
	out := make([]any, 0, len(old)+1)
	out = append(out, old...)
	return append(out, entry)
}

// notifyAssignee e-mails the assignee about the task. A failure never undoes
// the write; it comes back as a notice for the user.
func notifyAssignee(c *fiber.Ctx, assigneeID, title, dueDate string) string {
	doc, err := config.Store.Get(c.UserContext(), docstore.Employees, assigneeID)
	if err != nil {
		logger.ErrorLogger.Warn("Assignee lookup failed, no email sent",
			zap.String("employee_id", assigneeID), zap.Error(err))
		return "Task saved, but the assignee could not be found to notify by email"
	}
	employee := models.EmployeeFromDocument(doc)
	if employee.Email == "" {
		return "Task saved, but the assignee has no email address"
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()
	if err := config.Mailer.Send(ctx, notify.AssignmentEmail(employee.Email, employee.Name, title, dueDate)); err != nil {
		logger.ErrorLogger.Error("Error sending assignment email",
			zap.String("employee_id", assigneeID), zap.Error(err))
		return "Task saved, but the assignment email could not be sent"
	}
	return ""
}

func respondTask(c *fiber.Ctx, status int, message string, doc docstore.Document, notice string) error {
	l, err := loadLookups(c.UserContext())
	if err != nil {
		// names are cosmetic; the write already succeeded
		logger.ErrorLogger.Warn("Error resolving task references", zap.Error(err))
	}
	body := fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    l.view(models.TaskFromDocument(doc)),
	}
	if notice != "" {
		body["notice"] = notice
	}
	return c.Status(status).JSON(body)
}

// CreateTask adalah fungsi untuk membuat task baru
func CreateTask(c *fiber.Ctx) error {
	type TaskRequest struct {
		Title        string `json:"title" validate:"required,max=200"`
		Description  string `json:"description"`
		Status       string `json:"status"`
		Priority     string `json:"priority" validate:"omitempty,oneof=low medium high"`
		AssignedTo   string `json:"assigned_to" validate:"required"`
		DueDate      string `json:"due_date" validate:"required,datetime=2006-01-02"`
		ProjectID    string `json:"project_id"`
		LinkedTicket string `json:"linked_ticket"`
	}

	var req TaskRequest
	if ok, err := parseBody(c, &req, "create task"); !ok {
		return err
	}

	status := models.StatusPending
	if req.Status != "" {
		s, ok := models.ParseStatus(req.Status)
		if !ok {
			return badRequest(c, "Invalid status")
		}
		status = s
	}

	fields := models.StatusFields(status)
	fields["title"] = req.Title
	fields["description"] = req.Description
	fields["priority"] = string(models.ParsePriority(req.Priority))
	fields["assigned_to"] = req.AssignedTo
	fields["created_by"] = actor(c)
	fields["created_at"] = models.NewTimestamp(clock()).String()
	fields["due_date"] = req.DueDate
	fields["project_id"] = req.ProjectID
	fields["linked_ticket"] = req.LinkedTicket
	fields["comments"] = []any{}
	fields["reassign_history"] = []any{}

	doc, err := config.Store.Create(c.UserContext(), docstore.Tasks, "", fields)
	if err != nil {
		return storeError(c, err, "create task")
	}
	logger.AuditLogger.Info("Task created successfully", zap.String("task_id", doc.ID), zap.String("by", actor(c)))

	notice := notifyAssignee(c, req.AssignedTo, req.Title, req.DueDate)
	return respondTask(c, fiber.StatusCreated, "Task created successfully", doc, notice)
}

// visibleTasks loads the tasks the caller may see, narrowed by the
// assigned_to, project_id and status query parameters. Members only ever see
// their own tasks. Status is matched after parsing so legacy documents that
// only carry progress_status are found too.
func visibleTasks(c *fiber.Ctx) ([]models.Task, error) {
	var filters []docstore.Filter
	if isAdmin(c) {
		if assignee := c.Query("assigned_to"); assignee != "" {
			filters = append(filters, docstore.Where("assigned_to", assignee))
		}
	} else {
		filters = append(filters, docstore.Where("assigned_to", actor(c)))
	}
	if project := c.Query("project_id"); project != "" {
		filters = append(filters, docstore.Where("project_id", project))
	}
	tasks, err := loadAll(c.UserContext(), docstore.Tasks, models.TaskFromDocument, filters...)
	if err != nil {
		return nil, err
	}

	raw := c.Query("status")
	if raw == "" {
		return tasks, nil
	}
	want, ok := models.ParseStatus(raw)
	if !ok {
		return nil, errInvalidStatus
	}
	out := tasks[:0]
	for _, t := range tasks {
		if t.Status == want {
			out = append(out, t)
		}
	}
	return out, nil
}

var errInvalidStatus = errors.New("invalid status")

// ListTasks adalah fungsi untuk mengambil semua task
func ListTasks(c *fiber.Ctx) error {
	tasks, err := visibleTasks(c)
	if errors.Is(err, errInvalidStatus) {
		return badRequest(c, "Invalid status")
	}
	if err != nil {
		return storeError(c, err, "list tasks")
	}
	l, err := loadLookups(c.UserContext())
	if err != nil {
		return storeError(c, err, "list tasks")
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, l.view(t))
	}
	return success(c, fiber.StatusOK, "Tasks retrieved successfully", views)
}

// TaskBoard groups the visible tasks by Kanban column.
func TaskBoard(c *fiber.Ctx) error {
	tasks, err := visibleTasks(c)
	if errors.Is(err, errInvalidStatus) {
		return badRequest(c, "Invalid status")
	}
	if err != nil {
		return storeError(c, err, "task board")
	}
	return success(c, fiber.StatusOK, "Board retrieved successfully", fiber.Map{
		"columns": kanban.Board,
		"tasks":   kanban.Group(tasks),
	})
}

func GetTask(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.Tasks, c.Params("id"))
	if err != nil {
		return storeError(c, err, "get task")
	}
	if !isAdmin(c) && models.TaskFromDocument(doc).AssignedTo != actor(c) {
		return forbidden(c, "You can only view your own tasks")
	}
	return respondTask(c, fiber.StatusOK, "Task retrieved successfully", doc, "")
}

func UpdateTask(c *fiber.Ctx) error {
	type TaskRequest struct {
		Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
		Description  *string `json:"description"`
		Status       *string `json:"status"`
		Priority     *string `json:"priority" validate:"omitempty,oneof=low medium high"`
		DueDate      *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
		ProjectID    *string `json:"project_id"`
		LinkedTicket *string `json:"linked_ticket"`
		Version      int64   `json:"version"`
	}

	var req TaskRequest
	if ok, err := parseBody(c, &req, "update task"); !ok {
		return err
	}
	if _, ok, err := loadOwnTask(c, "update task"); !ok {
		return err
	}

	fields := map[string]any{}
	if req.Status != nil {
		s, ok := models.ParseStatus(*req.Status)
		if !ok {
			return badRequest(c, "Invalid status")
		}
		for k, v := range models.StatusFields(s) {
			fields[k] = v
		}
		fields["progress_updated_at"] = models.NewTimestamp(clock()).String()
	}
	setString(fields, "title", req.Title)
	setString(fields, "description", req.Description)
	setString(fields, "priority", req.Priority)
	setString(fields, "due_date", req.DueDate)
	setString(fields, "project_id", req.ProjectID)
	setString(fields, "linked_ticket", req.LinkedTicket)
	if len(fields) == 0 {
		return badRequest(c, "Nothing to update")
	}

	doc, err := config.Store.Update(c.UserContext(), docstore.Tasks, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update task")
	}
	logger.AuditLogger.Info("Task updated successfully", zap.String("task_id", doc.ID), zap.Int64("version", doc.Version))
	return respondTask(c, fiber.StatusOK, "Task updated successfully", doc, "")
}

// DeleteTask menghapus task secara permanen
func DeleteTask(c *fiber.Ctx) error {
	if err := config.Store.Delete(c.UserContext(), docstore.Tasks, c.Params("id")); err != nil {
		return storeError(c, err, "delete task")
	}
	logger.AuditLogger.Info("Task deleted successfully", zap.String("task_id", c.Params("id")), zap.String("by", actor(c)))
	return success(c, fiber.StatusOK, "Task deleted successfully", nil)
}

func AddComment(c *fiber.Ctx) error {
	type CommentRequest struct {
		Text    string `json:"text" validate:"required,max=2000"`
		Version int64  `json:"version"`
	}
	var req CommentRequest
	if ok, err := parseBody(c, &req, "add comment"); !ok {
		return err
	}

	doc, ok, err := loadOwnTask(c, "add comment")
	if !ok {
		return err
	}
	comments := appendEntry(doc.Data["comments"], map[string]any{
		"text":      req.Text,
		"userName":  raisedBy(c),
		"timestamp": models.NewTimestamp(clock()).String(),
	})

	doc, err = config.Store.Update(c.UserContext(), docstore.Tasks, doc.ID,
		map[string]any{"comments": comments}, versionOr(req.Version, doc))
	if err != nil {
		return storeError(c, err, "add comment")
	}
	logger.AuditLogger.Info("Comment added", zap.String("task_id", doc.ID), zap.String("by", actor(c)))
	return respondTask(c, fiber.StatusCreated, "Comment added successfully", doc, "")
}

// UpdateProgress records a status change with its description and link.
func UpdateProgress(c *fiber.Ctx) error {
	type ProgressRequest struct {
		Status      string `json:"status" validate:"required"`
		Description string `json:"progress_description" validate:"max=2000"`
		Link        string `json:"progress_link" validate:"omitempty,url"`
		Version     int64  `json:"version"`
	}
	var req ProgressRequest
	if ok, err := parseBody(c, &req, "update progress"); !ok {
		return err
	}
	status, ok := models.ParseStatus(req.Status)
	if !ok {
		return badRequest(c, "Invalid status")
	}
	if _, ok, err := loadOwnTask(c, "update progress"); !ok {
		return err
	}

	fields := models.StatusFields(status)
	fields["progress_updated_at"] = models.NewTimestamp(clock()).String()
	fields["progress_description"] = req.Description
	fields["progress_link"] = req.Link

	doc, err := config.Store.Update(c.UserContext(), docstore.Tasks, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update progress")
	}
	logger.AuditLogger.Info("Task progress updated", zap.String("task_id", doc.ID), zap.String("status", string(status)))
	return respondTask(c, fiber.StatusOK, "Progress updated successfully", doc, "")
}

func ReassignTask(c *fiber.Ctx) error {
	type ReassignRequest struct {
		AssignedTo string `json:"assigned_to" validate:"required"`
		Reason     string `json:"reason" validate:"max=500"`
		Version    int64  `json:"version"`
	}
	var req ReassignRequest
	if ok, err := parseBody(c, &req, "reassign task"); !ok {
		return err
	}
	doc, ok, err := loadOwnTask(c, "reassign task")
	if !ok {
		return err
	}
	task := models.TaskFromDocument(doc)
	if task.AssignedTo == req.AssignedTo {
		return badRequest(c, "Task is already assigned to this employee")
	}

	history := appendEntry(doc.Data["reassign_history"], map[string]any{
		"from":      task.AssignedTo,
		"to":        req.AssignedTo,
		"reason":    req.Reason,
		"by":        actor(c),
		"timestamp": models.NewTimestamp(clock()).String(),
	})
	doc, err = config.Store.Update(c.UserContext(), docstore.Tasks, doc.ID, map[string]any{
		"assigned_to":      req.AssignedTo,
		"reassign_history": history,
	}, versionOr(req.Version, doc))
	if err != nil {
		return storeError(c, err, "reassign task")
	}
	logger.AuditLogger.Info("Task reassigned", zap.String("task_id", doc.ID),
		zap.String("from", task.AssignedTo), zap.String("to", req.AssignedTo))

	notice := notifyAssignee(c, req.AssignedTo, task.Title, task.DueDate.String())
	return respondTask(c, fiber.StatusOK, "Task reassigned successfully", doc, notice)
}

// MoveTask applies a Kanban drop: one update of status and progress time.
func MoveTask(c *fiber.Ctx) error {
	type MoveRequest struct {
		Column  string `json:"column" validate:"required"`
		Version int64  `json:"version"`
	}
	var req MoveRequest
	if ok, err := parseBody(c, &req, "move task"); !ok {
		return err
	}
	fields, err := kanban.MoveFields(req.Column, clock())
	if err != nil {
		return badRequest(c, "Unknown board column")
	}
	if _, ok, err := loadOwnTask(c, "move task"); !ok {
		return err
	}

	doc, err := config.Store.Update(c.UserContext(), docstore.Tasks, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "move task")
	}
	logger.AuditLogger.Info("Task moved", zap.String("task_id", doc.ID), zap.String("column", req.Column))
	return respondTask(c, fiber.StatusOK, "Task moved successfully", doc, "")
}

// ReviewTask stores the reviewer's 0-100 score.
func ReviewTask(c *fiber.Ctx) error {
	type ReviewRequest struct {
		ReviewPoints *float64 `json:"reviewpoints" validate:"required,min=0,max=100"`
		Version      int64    `json:"version"`
	}
	var req ReviewRequest
	if ok, err := parseBody(c, &req, "review task"); !ok {
		return err
	}

	doc, err := config.Store.Update(c.UserContext(), docstore.Tasks, c.Params("id"),
		map[string]any{"reviewpoints": *req.ReviewPoints}, req.Version)
	if err != nil {
		return storeError(c, err, "review task")
	}
	logger.AuditLogger.Info("Task reviewed", zap.String("task_id", doc.ID), zap.Float64("reviewpoints", *req.ReviewPoints))
	return respondTask(c, fiber.StatusOK, "Task reviewed successfully", doc, "")
}
