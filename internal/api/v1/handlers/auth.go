package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// Auth handlers
func Register(c *fiber.Ctx) error {
	// struct RegisterRequest menerima inputan dari user
	type RegisterRequest struct {
		Username   string `json:"username" validate:"required,excludesall=@?"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=6"`
		EmployeeID string `json:"employee_id"`
	}

	var req RegisterRequest
	if ok, err := parseBody(c, &req, "register"); !ok {
		return err
	}
	ctx := c.UserContext()

	// username harus unik
	existing, err := config.Store.Query(ctx, docstore.Accounts, docstore.Where("username", req.Username))
	if err != nil {
		return storeError(c, err, "register")
	}
	if len(existing) > 0 {
		logger.SecurityLogger.Warn("Duplicate username", zap.String("username", req.Username))
		return failure(c, fiber.StatusConflict, codeConflict, "Username already exists")
	}

	if req.EmployeeID != "" {
		if ok, err := checkEmployeeLink(c, req.EmployeeID, req.Email); !ok {
			return err
		}
	}

	// Hash the password using bcrypt with default cost
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, codeInternal, "Error hashing password")
	}

	doc, err := config.Store.Create(ctx, docstore.Accounts, "", map[string]any{
		"username":    req.Username,
		"email":       strings.ToLower(req.Email),
		"password":    string(hashedPassword),
		"role":        "member",
		"employee_id": req.EmployeeID,
	})
	if err != nil {
		return storeError(c, err, "register")
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", doc.ID))
	return success(c, fiber.StatusCreated, "User created successfully", fiber.Map{"id": doc.ID})
}

// checkEmployeeLink only lets an account claim an employee when the
// registration email is the one on the employee record and no other account
// is linked to it yet.
func checkEmployeeLink(c *fiber.Ctx, employeeID, email string) (bool, error) {
	ctx := c.UserContext()
	doc, err := config.Store.Get(ctx, docstore.Employees, employeeID)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, badRequest(c, "Unknown employee")
	}
	if err != nil {
		return false, storeError(c, err, "register")
	}
	employee := models.EmployeeFromDocument(doc)
	if employee.Email == "" || !strings.EqualFold(strings.TrimSpace(employee.Email), strings.TrimSpace(email)) {
		logger.SecurityLogger.Warn("Employee link rejected, email mismatch", zap.String("employee_id", employeeID))
		return false, failure(c, fiber.StatusForbidden, codePermissionDenied, "Email does not match the employee record")
	}

	linked, err := config.Store.Query(ctx, docstore.Accounts, docstore.Where("employee_id", employeeID))
	if err != nil {
		return false, storeError(c, err, "register")
	}
	if len(linked) > 0 {
		logger.SecurityLogger.Warn("Employee already linked", zap.String("employee_id", employeeID))
		return false, failure(c, fiber.StatusConflict, codeConflict, "Employee already has an account")
	}
	return true, nil
}

// fungsi login dengan menggunakan JSON Web Token (JWT)
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if ok, err := parseBody(c, &req, "login"); !ok {
		return err
	}

	docs, err := config.Store.Query(c.UserContext(), docstore.Accounts, docstore.Where("username", req.Username))
	if err != nil {
		return storeError(c, err, "login")
	}
	if len(docs) == 0 {
		logger.SecurityLogger.Warn("User not found", zap.String("username", req.Username))
		return failure(c, fiber.StatusUnauthorized, codePermissionDenied, "Invalid credentials")
	}
	account := models.AccountFromDocument(docs[0])

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("username", req.Username))
		return failure(c, fiber.StatusUnauthorized, codePermissionDenied, "Invalid credentials")
	}

	tokenString, err := middleware.NewToken(account.ID, account.Role, account.EmployeeID, account.Username)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, codeInternal, "Error generating token")
	}

	logger.AuditLogger.Info("Login success", zap.String("user_id", account.ID), zap.String("role", account.Role))
	return success(c, fiber.StatusOK, "Login success", fiber.Map{
		"user_id":     account.ID,
		"role":        account.Role,
		"employee_id": account.EmployeeID,
		"token":       tokenString,
	})
}
