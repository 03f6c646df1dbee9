package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

type employeeRequest struct {
	Name       *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	Department *string  `json:"department" validate:"omitempty,max=120"`
	Role       *string  `json:"role" validate:"omitempty,max=120"`
	Skills     []string `json:"skills" validate:"omitempty,dive,min=1,max=60"`
	JoinDate   *string  `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	Version    int64    `json:"version"`
}

func (r employeeRequest) fields() map[string]any {
	fields := map[string]any{}
	setString(fields, "name", r.Name)
	setString(fields, "email", r.Email)
	setString(fields, "department", r.Department)
	setString(fields, "role", r.Role)
	setString(fields, "join_date", r.JoinDate)
	if r.Skills != nil {
		fields["skills"] = r.Skills
	}
	return fields
}

func CreateEmployee(c *fiber.Ctx) error {
	var req employeeRequest
	if ok, err := parseBody(c, &req, "create employee"); !ok {
		return err
	}
	if req.Name == nil || req.Email == nil {
		return badRequest(c, "Name and email are required")
	}
	fields := req.fields()
	if _, ok := fields["skills"]; !ok {
		fields["skills"] = []string{}
	}
	if _, ok := fields["join_date"]; !ok {
		fields["join_date"] = models.NewDate(clock()).String()
	}

	doc, err := config.Store.Create(c.UserContext(), docstore.Employees, "", fields)
	if err != nil {
		return storeError(c, err, "create employee")
	}
	logger.AuditLogger.Info("Employee created", zap.String("employee_id", doc.ID), zap.String("by", actor(c)))
	return success(c, fiber.StatusCreated, "Employee created successfully", models.EmployeeFromDocument(doc))
}

func ListEmployees(c *fiber.Ctx) error {
	var filters []docstore.Filter
	if dept := c.Query("department"); dept != "" {
		filters = append(filters, docstore.Where("department", dept))
	}
	employees, err := loadAll(c.UserContext(), docstore.Employees, models.EmployeeFromDocument, filters...)
	if err != nil {
		return storeError(c, err, "list employees")
	}
	return success(c, fiber.StatusOK, "Employees retrieved successfully", employees)
}

func GetEmployee(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.Employees, c.Params("id"))
	if err != nil {
		return storeError(c, err, "get employee")
	}
	return success(c, fiber.StatusOK, "Employee retrieved successfully", models.EmployeeFromDocument(doc))
}

func UpdateEmployee(c *fiber.Ctx) error {
	var req employeeRequest
	if ok, err := parseBody(c, &req, "update employee"); !ok {
		return err
	}
	fields := req.fields()
	if len(fields) == 0 {
		return badRequest(c, "Nothing to update")
	}
	doc, err := config.Store.Update(c.UserContext(), docstore.Employees, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update employee")
	}
	logger.AuditLogger.Info("Employee updated", zap.String("employee_id", doc.ID), zap.Int64("version", doc.Version))
	return success(c, fiber.StatusOK, "Employee updated successfully", models.EmployeeFromDocument(doc))
}

func DeleteEmployee(c *fiber.Ctx) error {
	if err := config.Store.Delete(c.UserContext(), docstore.Employees, c.Params("id")); err != nil {
		return storeError(c, err, "delete employee")
	}
	logger.AuditLogger.Info("Employee deleted", zap.String("employee_id", c.Params("id")), zap.String("by", actor(c)))
	return success(c, fiber.StatusOK, "Employee deleted successfully", nil)
}
