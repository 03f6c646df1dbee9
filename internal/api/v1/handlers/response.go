package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/middleware"
	"taskboard/pkg/logger"
)

// clock is replaced in tests.
var clock = func() time.Time { return time.Now().UTC() }

// Coarse error codes returned next to every failure message.
const (
	codeInvalidArgument  = "invalid_argument"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codePermissionDenied = "permission_denied"
	codeUnavailable      = "unavailable"
	codeInternal         = "internal"
)

// classify maps a store error onto an HTTP status, a coarse code and the
// message shown to the user.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fiber.StatusNotFound, codeNotFound, "Data not found"
	case errors.Is(err, docstore.ErrVersionConflict):
		return fiber.StatusConflict, codeConflict, "This record was changed by someone else, reload and try again"
	case errors.Is(err, docstore.ErrAlreadyExists):
		return fiber.StatusConflict, codeConflict, "Data already exists"
	case errors.Is(err, docstore.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, codeUnavailable, "Service is temporarily unavailable, try again later"
	case errors.Is(err, docstore.ErrInvalidDocument), errors.Is(err, docstore.ErrUnknownCollection):
		return fiber.StatusBadRequest, codeInvalidArgument, "Invalid data"
	}
	return fiber.StatusInternalServerError, codeInternal, "Something went wrong"
}

func failure(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"code":    code,
		"success": false,
		"status":  status,
	})
}

// storeError logs err under action and answers with the mapped failure.
func storeError(c *fiber.Ctx, err error, action string) error {
	status, code, message := classify(err)
	fields := []zap.Field{zap.String("action", action), zap.String("url", c.OriginalURL()), zap.Error(err)}
	if status >= fiber.StatusInternalServerError {
		logger.ErrorLogger.Error("Store error", fields...)
	} else {
		logger.ErrorLogger.Warn("Store error", fields...)
	}
	return failure(c, status, code, message)
}

func badRequest(c *fiber.Ctx, message string) error {
	return failure(c, fiber.StatusBadRequest, codeInvalidArgument, message)
}

func forbidden(c *fiber.Ctx, message string) error {
	logger.SecurityLogger.Warn(message, zap.String("url", c.OriginalURL()), zap.Any("user_id", c.Locals(middleware.LocalUserID)))
	return failure(c, fiber.StatusForbidden, codePermissionDenied, message)
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    data,
	})
}

// parseBody decodes and validates the request body into req. On failure the
// response has already been written and ok is false.
func parseBody(c *fiber.Ctx, req any, action string) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		logger.ErrorLogger.Error("Bad request in "+action, zap.Error(err))
		return false, badRequest(c, "Bad request")
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error in "+action, zap.Error(err))
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"code":    codeInvalidArgument,
			"success": false,
			"status":  fiber.StatusBadRequest,
		})
	}
	return true, nil
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalUserID).(string)
	return id
}

func employeeID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalEmployeeID).(string)
	return id
}

func isAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(middleware.LocalRole).(string)
	return role == middleware.RoleAdmin
}

// actor is who a write is attributed to: the employee when linked, else the account.
func actor(c *fiber.Ctx) string {
	if id := employeeID(c); id != "" {
		return id
	}
	return userID(c)
}

// loadAll queries a collection and parses every document with parse.
func loadAll[T any](ctx context.Context, collection string, parse func(docstore.Document) T, filters ...docstore.Filter) ([]T, error) {
	docs, err := config.Store.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		out = append(out, parse(doc))
	}
	return out, nil
}

// setString copies an optional request field into fields.
func setString(fields map[string]any, key string, v *string) {
	if v != nil {
		fields[key] = *v
	}
}
