package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

type projectRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=160"`
	Description *string  `json:"description"`
	StartDate   *string  `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Deadline    *string  `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	TeamID      *string  `json:"teamId"`
	Status      *string  `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Budget      *float64 `json:"budget" validate:"omitempty,min=0"`
	Client      *string  `json:"client"`
	Version     int64    `json:"version"`
}

func (r projectRequest) fields() map[string]any {
	fields := map[string]any{}
	setString(fields, "name", r.Name)
	setString(fields, "description", r.Description)
	setString(fields, "startDate", r.StartDate)
	setString(fields, "deadline", r.Deadline)
	setString(fields, "teamId", r.TeamID)
	setString(fields, "status", r.Status)
	setString(fields, "priority", r.Priority)
	setString(fields, "client", r.Client)
	if r.Budget != nil {
		fields["budget"] = *r.Budget
	}
	return fields
}

func CreateProject(c *fiber.Ctx) error {
	var req projectRequest
	if ok, err := parseBody(c, &req, "create project"); !ok {
		return err
	}
	if req.Name == nil {
		return badRequest(c, "Name is required")
	}
	fields := req.fields()
	fields["created_by"] = actor(c)
	if _, ok := fields["status"]; !ok {
		fields["status"] = "active"
	}
	if _, ok := fields["priority"]; !ok {
		fields["priority"] = string(models.PriorityMedium)
	}

	doc, err := config.Store.Create(c.UserContext(), docstore.Projects, "", fields)
	if err != nil {
		return storeError(c, err, "create project")
	}
	logger.AuditLogger.Info("Project created", zap.String("project_id", doc.ID), zap.String("by", actor(c)))
	return success(c, fiber.StatusCreated, "Project created successfully", models.ProjectFromDocument(doc))
}

func ListProjects(c *fiber.Ctx) error {
	var filters []docstore.Filter
	if team := c.Query("team_id"); team != "" {
		filters = append(filters, docstore.Where("teamId", team))
	}
	projects, err := loadAll(c.UserContext(), docstore.Projects, models.ProjectFromDocument, filters...)
	if err != nil {
		return storeError(c, err, "list projects")
	}
	return success(c, fiber.StatusOK, "Projects retrieved successfully", projects)
}

func GetProject(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.Projects, c.Params("id"))
	if err != nil {
		return storeError(c, err, "get project")
	}
	return success(c, fiber.StatusOK, "Project retrieved successfully", models.ProjectFromDocument(doc))
}

func UpdateProject(c *fiber.Ctx) error {
	var req projectRequest
	if ok, err := parseBody(c, &req, "update project"); !ok {
		return err
	}
	fields := req.fields()
	if len(fields) == 0 {
		return badRequest(c, "Nothing to update")
	}
	doc, err := config.Store.Update(c.UserContext(), docstore.Projects, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update project")
	}
	logger.AuditLogger.Info("Project updated", zap.String("project_id", doc.ID), zap.Int64("version", doc.Version))
	return success(c, fiber.StatusOK, "Project updated successfully", models.ProjectFromDocument(doc))
}

func DeleteProject(c *fiber.Ctx) error {
	if err := config.Store.Delete(c.UserContext(), docstore.Projects, c.Params("id")); err != nil {
		return storeError(c, err, "delete project")
	}
	logger.AuditLogger.Info("Project deleted", zap.String("project_id", c.Params("id")), zap.String("by", actor(c)))
	return success(c, fiber.StatusOK, "Project deleted successfully", nil)
}
