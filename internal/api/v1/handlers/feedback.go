package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// storeFeedback reads HR feedback scores from the HR_feedback collection.
type storeFeedback struct {
	store docstore.Store
}

func (s storeFeedback) FeedbackScore(ctx context.Context, employeeID string, day time.Time) (float64, bool, error) {
	doc, err := s.store.Get(ctx, docstore.HRFeedback, models.FeedbackKey(employeeID, day))
	if errors.Is(err, docstore.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return models.HRFeedbackFromDocument(doc).Score, true, nil
}

func feedbackDay(c *fiber.Ctx) (models.Date, bool) {
	return models.ParseDate(c.Params("date"))
}

// PutFeedback records an employee's HR score for one day, replacing any
// earlier score for that day. Notes are stored encrypted.
func PutFeedback(c *fiber.Ctx) error {
	type FeedbackRequest struct {
		Score   *float64 `json:"score" validate:"required,min=0,max=100"`
		Notes   string   `json:"notes" validate:"max=4000"`
		Version int64    `json:"version"`
	}
	var req FeedbackRequest
	if ok, err := parseBody(c, &req, "put feedback"); !ok {
		return err
	}
	day, ok := feedbackDay(c)
	if !ok {
		return badRequest(c, "Date must be YYYY-MM-DD")
	}
	employee := c.Params("employeeId")
	ctx := c.UserContext()

	if _, err := config.Store.Get(ctx, docstore.Employees, employee); err != nil {
		return storeError(c, err, "put feedback")
	}

	notes := ""
	if req.Notes != "" {
		encrypted, err := config.Cipher.Encrypt(req.Notes)
		if err != nil {
			logger.ErrorLogger.Error("Error encrypting feedback notes", zap.Error(err))
			return failure(c, fiber.StatusInternalServerError, codeInternal, "Error encrypting notes")
		}
		notes = encrypted
	}
	fields := map[string]any{
		"employee_id": employee,
		"date":        day.String(),
		"score":       *req.Score,
		"notes":       notes,
		"given_by":    actor(c),
	}

	key := models.FeedbackKey(employee, day.Time)
	doc, err := config.Store.Create(ctx, docstore.HRFeedback, key, fields)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		doc, err = config.Store.Update(ctx, docstore.HRFeedback, key, fields, req.Version)
	}
	if err != nil {
		return storeError(c, err, "put feedback")
	}

	logger.AuditLogger.Info("HR feedback saved", zap.String("key", key), zap.String("by", actor(c)))
	fb := models.HRFeedbackFromDocument(doc)
	fb.Notes = req.Notes
	return success(c, fiber.StatusOK, "Feedback saved successfully", fb)
}

func GetFeedback(c *fiber.Ctx) error {
	day, ok := feedbackDay(c)
	if !ok {
		return badRequest(c, "Date must be YYYY-MM-DD")
	}
	key := models.FeedbackKey(c.Params("employeeId"), day.Time)
	doc, err := config.Store.Get(c.UserContext(), docstore.HRFeedback, key)
	if err != nil {
		return storeError(c, err, "get feedback")
	}

	fb := models.HRFeedbackFromDocument(doc)
	if fb.Notes != "" {
		plain, err := config.Cipher.Decrypt(fb.Notes)
		if err != nil {
			logger.ErrorLogger.Error("Error decrypting feedback notes", zap.String("key", key), zap.Error(err))
			return failure(c, fiber.StatusInternalServerError, codeInternal, "Error decrypting notes")
		}
		fb.Notes = plain
	}
	return success(c, fiber.StatusOK, "Feedback retrieved successfully", fb)
}
