package v1_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
)

func TestCreateTaskSendsAssignmentEmail(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, email := createEmployee(t, app, admin, "Gita")

	task := createTask(t, app, admin, empID, nil)
	assert.Equal(t, "pending", task["status"])
	assert.Equal(t, "Gita", task["assignee_name"])
	assert.Equal(t, "-", task["project_name"])
	assert.NotEmpty(t, task["created_at"])
	assert.Equal(t, 1, mail.sentTo(email))
}

func TestCreateTaskKeepsTaskWhenEmailFails(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, email := createEmployee(t, app, admin, "Hana")

	mail.fail.Store(true)
	defer mail.fail.Store(false)

	res := call(t, app, "POST", "/api/v1/tasks", admin, map[string]any{
		"title": "Relay down", "assigned_to": empID, "due_date": "2026-12-01",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	assert.Contains(t, res.body["notice"], "email could not be sent")
	assert.Equal(t, 0, mail.sentTo(email))

	got := call(t, app, "GET", "/api/v1/tasks/"+res.data()["id"].(string), admin, nil)
	assert.Equal(t, http.StatusOK, got.status)
}

func TestCreateTaskValidation(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)

	res := call(t, app, "POST", "/api/v1/tasks", admin, map[string]any{"title": "No due date", "assigned_to": "x"})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = call(t, app, "POST", "/api/v1/tasks", admin, map[string]any{
		"title": "Bad status", "assigned_to": "x", "due_date": "2026-12-01", "status": "sleeping",
	})
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestDanglingAssigneeShowsFallback(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)

	res := call(t, app, "POST", "/api/v1/tasks", admin, map[string]any{
		"title": "Orphan", "assigned_to": "emp-gone", "due_date": "2026-12-01", "project_id": "p-gone",
	})
	require.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, "Unknown", res.data()["assignee_name"])
	assert.Equal(t, "-", res.data()["project_name"])
	assert.NotEmpty(t, res.body["notice"])
}

func TestMembersOnlySeeTheirTasks(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	mine, _ := createEmployee(t, app, admin, "Indra")
	other, _ := createEmployee(t, app, admin, "Joko")
	member := createMember(t, app, mine)

	own := createTask(t, app, admin, mine, nil)
	foreign := createTask(t, app, admin, other, nil)

	res := call(t, app, "GET", "/api/v1/tasks?assigned_to="+other, member, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Len(t, res.list(), 1)
	assert.Equal(t, own["id"], res.list()[0].(map[string]any)["id"])

	res = call(t, app, "GET", "/api/v1/tasks/"+foreign["id"].(string), member, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = call(t, app, "POST", "/api/v1/tasks/"+foreign["id"].(string)+"/move", member, map[string]any{"column": "done"})
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestMembersCannotCommentOnOthersTasks(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	mine, _ := createEmployee(t, app, admin, "Ayu")
	other, _ := createEmployee(t, app, admin, "Bayu")
	member := createMember(t, app, mine)
	foreign := createTask(t, app, admin, other, nil)["id"].(string)

	res := call(t, app, "POST", "/api/v1/tasks/"+foreign+"/comments", member, map[string]any{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "permission_denied", res.body["code"])
	assert.Nil(t, res.body["data"])

	doc, err := config.Store.Get(context.Background(), docstore.Tasks, foreign)
	require.NoError(t, err)
	assert.Empty(t, doc.Data["comments"])

	res = call(t, app, "POST", "/api/v1/tasks/"+foreign+"/comments", admin, map[string]any{"text": "admin note"})
	assert.Equal(t, http.StatusCreated, res.status)
}

func TestStatusFilterReadsLegacyField(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	project := unique("legacy-project")

	// written by an older client that only kept progress_status current
	_, err := config.Store.Create(context.Background(), docstore.Tasks, "", map[string]any{
		"title":           "Legacy",
		"assigned_to":     "emp-legacy",
		"project_id":      project,
		"progress_status": "completed",
	})
	require.NoError(t, err)

	res := call(t, app, "GET", "/api/v1/tasks?project_id="+project+"&status=completed", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.Len(t, res.list(), 1)
	assert.Equal(t, "completed", res.list()[0].(map[string]any)["status"])

	res = call(t, app, "GET", "/api/v1/tasks?project_id="+project+"&status=pending", admin, nil)
	assert.Empty(t, res.list())

	res = call(t, app, "GET", "/api/v1/tasks?status=nonsense", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestMoveTaskWritesCanonicalStatus(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, _ := createEmployee(t, app, admin, "Kiki")
	member := createMember(t, app, empID)
	task := createTask(t, app, admin, empID, nil)
	id := task["id"].(string)

	res := call(t, app, "POST", "/api/v1/tasks/"+id+"/move", member, map[string]any{"column": "done", "version": task["version"]})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "completed", res.data()["status"])
	assert.NotNil(t, res.data()["progress_updated_at"])

	doc, err := config.Store.Get(context.Background(), docstore.Tasks, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Data["status"])
	assert.NotContains(t, doc.Data, "progress_status")

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/move", member, map[string]any{"column": "archive"})
	assert.Equal(t, http.StatusBadRequest, res.status)

	board := call(t, app, "GET", "/api/v1/tasks/board", member, nil)
	require.Equal(t, http.StatusOK, board.status)
	done := board.data()["tasks"].(map[string]any)["done"].([]any)
	assert.Len(t, done, 1)
}

func TestStaleVersionIsRejected(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, _ := createEmployee(t, app, admin, "Lina")
	task := createTask(t, app, admin, empID, nil)
	id := task["id"].(string)
	version := task["version"]

	res := call(t, app, "PUT", "/api/v1/tasks/"+id, admin, map[string]any{"title": "First", "version": version})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	res = call(t, app, "PUT", "/api/v1/tasks/"+id, admin, map[string]any{"title": "Second", "version": version})
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "conflict", res.body["code"])

	got := call(t, app, "GET", "/api/v1/tasks/"+id, admin, nil)
	assert.Equal(t, "First", got.data()["title"])
}

func TestCommentsProgressReassignReview(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	first, _ := createEmployee(t, app, admin, "Made")
	second, secondEmail := createEmployee(t, app, admin, "Nina")
	member := createMember(t, app, first)
	id := createTask(t, app, admin, first, nil)["id"].(string)

	res := call(t, app, "POST", "/api/v1/tasks/"+id+"/comments", member, map[string]any{"text": "on it"})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	comments := res.data()["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "Made", comments[0].(map[string]any)["userName"])

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/progress", member, map[string]any{
		"status": "under_review", "progress_description": "ready", "progress_link": "https://example.com/pr/1",
	})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "under_review", res.data()["status"])
	assert.Equal(t, "ready", res.data()["progress_description"])

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/review", member, map[string]any{"reviewpoints": 90})
	assert.Equal(t, http.StatusForbidden, res.status)

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/review", admin, map[string]any{"reviewpoints": 120})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/review", admin, map[string]any{"reviewpoints": 90})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(90), res.data()["reviewpoints"])

	res = call(t, app, "POST", "/api/v1/tasks/"+id+"/reassign", admin, map[string]any{"assigned_to": second, "reason": "leave"})
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	history := res.data()["reassign_history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, first, history[0].(map[string]any)["from"])
	assert.Equal(t, "Nina", res.data()["assignee_name"])
	assert.Equal(t, 1, mail.sentTo(secondEmail))

	res = call(t, app, "DELETE", "/api/v1/tasks/"+id, member, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	res = call(t, app, "DELETE", "/api/v1/tasks/"+id, admin, nil)
	assert.Equal(t, http.StatusOK, res.status)
	res = call(t, app, "GET", "/api/v1/tasks/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestProgressStampsCompletionTime(t *testing.T) {
	app := createTestApp()
	admin := createTestAdmin(t, app)
	empID, _ := createEmployee(t, app, admin, "Oka")
	id := createTask(t, app, admin, empID, nil)["id"].(string)

	before := time.Now().UTC().Add(-time.Second)
	res := call(t, app, "POST", "/api/v1/tasks/"+id+"/progress", admin, map[string]any{"status": "done"})
	require.Equal(t, http.StatusOK, res.status)
	stamped, err := time.Parse(time.RFC3339Nano, res.data()["progress_updated_at"].(string))
	require.NoError(t, err)
	assert.True(t, stamped.After(before))
}
