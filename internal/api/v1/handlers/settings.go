package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// GetMySettings returns the caller's settings, or the defaults when none
// were saved yet.
func GetMySettings(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.UserSettings, userID(c))
	if errors.Is(err, docstore.ErrNotFound) {
		return success(c, fiber.StatusOK, "Settings retrieved successfully", models.DefaultUserSettings())
	}
	if err != nil {
		return storeError(c, err, "get settings")
	}
	return success(c, fiber.StatusOK, "Settings retrieved successfully", models.SettingsFromDocument(doc))
}

// UpdateMySettings overlays the body on the current settings. Sections and
// keys left out of the body keep their values.
func UpdateMySettings(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := userID(c)

	doc, err := config.Store.Get(ctx, docstore.UserSettings, id)
	exists := err == nil
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return storeError(c, err, "update settings")
	}

	current := models.DefaultUserSettings()
	if exists {
		current = models.SettingsFromDocument(doc)
	}
	stored := current.Version
	current.Version = 0
	if ok, err := parseBody(c, &current, "update settings"); !ok {
		return err
	}
	expected := current.Version
	if expected == 0 {
		expected = stored
	}

	if exists {
		doc, err = config.Store.Update(ctx, docstore.UserSettings, id, current.Fields(), expected)
	} else {
		doc, err = config.Store.Create(ctx, docstore.UserSettings, id, current.Fields())
	}
	if err != nil {
		return storeError(c, err, "update settings")
	}

	logger.AuditLogger.Info("Settings updated", zap.String("user_id", id), zap.Int64("version", doc.Version))
	return success(c, fiber.StatusOK, "Settings updated successfully", models.SettingsFromDocument(doc))
}
