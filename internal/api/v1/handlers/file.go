package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

const maxAvatarSize = 5 << 20

var errFileTooLarge = errors.New("File size exceeds the limit of 5MB")

// Fungsi untuk validasi file avatar
func validateImage(file *multipart.FileHeader) error {
	if file.Size > maxAvatarSize {
		return errFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowedExts[ext] {
		return errors.New("File type not allowed")
	}

	if contentType := file.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
		return errors.New("File must be an image")
	}
	return nil
}

func ensureUploadDir() error {
	if _, err := os.Stat(config.UploadDir); os.IsNotExist(err) {
		return os.MkdirAll(config.UploadDir, os.ModePerm)
	}
	return nil
}

// GetUpload serves a previously uploaded file. Only the base name is used so
// the request cannot leave the upload directory.
func GetUpload(c *fiber.Ctx) error {
	filename := filepath.Base(c.Params("filename"))
	if filename == "." || filename == string(filepath.Separator) {
		return badRequest(c, "Invalid filename")
	}
	filePath := filepath.Join(config.UploadDir, filename)
	if _, err := os.Stat(filePath); err != nil {
		return failure(c, fiber.StatusNotFound, codeNotFound, "File not found")
	}
	return c.SendFile(filePath)
}

// UploadAvatar stores an employee's profile picture and points the employee's
// avatar at it.
func UploadAvatar(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isAdmin(c) && employeeID(c) != id {
		return forbidden(c, "You can only change your own avatar")
	}
	ctx := c.UserContext()
	if _, err := config.Store.Get(ctx, docstore.Employees, id); err != nil {
		return storeError(c, err, "upload avatar")
	}

	if err := ensureUploadDir(); err != nil {
		logger.ErrorLogger.Error("Error creating upload directory", zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, codeInternal, "Error creating upload directory")
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		logger.ErrorLogger.Error("Error uploading file", zap.Error(err))
		return badRequest(c, "Error uploading file")
	}
	if err := validateImage(file); err != nil {
		logger.ErrorLogger.Warn("Error validating file", zap.Error(err))
		return badRequest(c, err.Error())
	}

	newFilename := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	if err := c.SaveFile(file, filepath.Join(config.UploadDir, newFilename)); err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, codeInternal, "Error saving file")
	}

	fileURL := fmt.Sprintf("/api/v1/uploads/%s", newFilename)
	doc, err := config.Store.Update(ctx, docstore.Employees, id, map[string]any{"avatar": fileURL}, 0)
	if err != nil {
		return storeError(c, err, "upload avatar")
	}

	logger.AuditLogger.Info("Avatar uploaded", zap.String("employee_id", id), zap.String("filename", newFilename))
	return success(c, fiber.StatusOK, "Avatar uploaded successfully", models.EmployeeFromDocument(doc))
}
