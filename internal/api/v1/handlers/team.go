package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

type teamRequest struct {
	TeamName *string  `json:"teamName" validate:"omitempty,min=1,max=120"`
	Members  []string `json:"members" validate:"omitempty,dive,required"`
	TeamLead *string  `json:"teamLead"`
	Version  int64    `json:"version"`
}

func (r teamRequest) fields() map[string]any {
	fields := map[string]any{}
	setString(fields, "teamName", r.TeamName)
	setString(fields, "teamLead", r.TeamLead)
	if r.Members != nil {
		fields["members"] = r.Members
	}
	return fields
}

func CreateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if ok, err := parseBody(c, &req, "create team"); !ok {
		return err
	}
	if req.TeamName == nil {
		return badRequest(c, "Team name is required")
	}
	fields := req.fields()
	fields["created_by"] = actor(c)
	if _, ok := fields["members"]; !ok {
		fields["members"] = []string{}
	}

	doc, err := config.Store.Create(c.UserContext(), docstore.Teams, "", fields)
	if err != nil {
		return storeError(c, err, "create team")
	}
	logger.AuditLogger.Info("Team created", zap.String("team_id", doc.ID), zap.String("by", actor(c)))
	return success(c, fiber.StatusCreated, "Team created successfully", models.TeamFromDocument(doc))
}

func ListTeams(c *fiber.Ctx) error {
	teams, err := loadAll(c.UserContext(), docstore.Teams, models.TeamFromDocument)
	if err != nil {
		return storeError(c, err, "list teams")
	}
	return success(c, fiber.StatusOK, "Teams retrieved successfully", teams)
}

func GetTeam(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.Teams, c.Params("id"))
	if err != nil {
		return storeError(c, err, "get team")
	}
	return success(c, fiber.StatusOK, "Team retrieved successfully", models.TeamFromDocument(doc))
}

func UpdateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if ok, err := parseBody(c, &req, "update team"); !ok {
		return err
	}
	fields := req.fields()
	if len(fields) == 0 {
		return badRequest(c, "Nothing to update")
	}
	doc, err := config.Store.Update(c.UserContext(), docstore.Teams, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update team")
	}
	logger.AuditLogger.Info("Team updated", zap.String("team_id", doc.ID), zap.Int64("version", doc.Version))
	return success(c, fiber.StatusOK, "Team updated successfully", models.TeamFromDocument(doc))
}

func DeleteTeam(c *fiber.Ctx) error {
	if err := config.Store.Delete(c.UserContext(), docstore.Teams, c.Params("id")); err != nil {
		return storeError(c, err, "delete team")
	}
	logger.AuditLogger.Info("Team deleted", zap.String("team_id", c.Params("id")), zap.String("by", actor(c)))
	return success(c, fiber.StatusOK, "Team deleted successfully", nil)
}
