package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

type ticketRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Review      *string `json:"review"`
	DueDate     *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	ProjectID   *string `json:"projectId"`
	Version     int64   `json:"version"`
}

func (r ticketRequest) fields() map[string]any {
	fields := map[string]any{}
	setString(fields, "title", r.Title)
	setString(fields, "description", r.Description)
	setString(fields, "priority", r.Priority)
	setString(fields, "status", r.Status)
	setString(fields, "review", r.Review)
	setString(fields, "dueDate", r.DueDate)
	setString(fields, "projectId", r.ProjectID)
	return fields
}

// RaiseTicket creates a ticket. projectTicketId numbers tickets per project.
func RaiseTicket(c *fiber.Ctx) error {
	var req ticketRequest
	if ok, err := parseBody(c, &req, "raise ticket"); !ok {
		return err
	}
	if req.Title == nil || req.ProjectID == nil {
		return badRequest(c, "Title and project are required")
	}
	ctx := c.UserContext()

	existing, err := config.Store.Query(ctx, docstore.Tickets, docstore.Where("projectId", *req.ProjectID))
	if err != nil {
		return storeError(c, err, "raise ticket")
	}

	fields := req.fields()
	fields["projectTicketId"] = fmt.Sprintf("TKT-%03d", len(existing)+1)
	fields["createdByName"] = raisedBy(c)
	if _, ok := fields["status"]; !ok {
		fields["status"] = "open"
	}
	if _, ok := fields["priority"]; !ok {
		fields["priority"] = string(models.PriorityMedium)
	}

	doc, err := config.Store.Create(ctx, docstore.Tickets, "", fields)
	if err != nil {
		return storeError(c, err, "raise ticket")
	}
	logger.AuditLogger.Info("Ticket raised", zap.String("ticket_id", doc.ID), zap.String("by", actor(c)))
	return success(c, fiber.StatusCreated, "Ticket raised successfully", models.TicketFromDocument(doc))
}

// raisedBy is the employee's name when the account is linked to one.
func raisedBy(c *fiber.Ctx) string {
	if id := employeeID(c); id != "" {
		if doc, err := config.Store.Get(c.UserContext(), docstore.Employees, id); err == nil {
			if name := models.EmployeeFromDocument(doc).Name; name != "" {
				return name
			}
		}
	}
	if name, ok := c.Locals(middleware.LocalUsername).(string); ok && name != "" {
		return name
	}
	return models.UnknownEmployee
}

func ListTickets(c *fiber.Ctx) error {
	var filters []docstore.Filter
	if project := c.Query("project_id"); project != "" {
		filters = append(filters, docstore.Where("projectId", project))
	}
	if status := c.Query("status"); status != "" {
		filters = append(filters, docstore.Where("status", status))
	}
	tickets, err := loadAll(c.UserContext(), docstore.Tickets, models.TicketFromDocument, filters...)
	if err != nil {
		return storeError(c, err, "list tickets")
	}
	return success(c, fiber.StatusOK, "Tickets retrieved successfully", tickets)
}

func GetTicket(c *fiber.Ctx) error {
	doc, err := config.Store.Get(c.UserContext(), docstore.Tickets, c.Params("id"))
	if err != nil {
		return storeError(c, err, "get ticket")
	}
	return success(c, fiber.StatusOK, "Ticket retrieved successfully", models.TicketFromDocument(doc))
}

func UpdateTicket(c *fiber.Ctx) error {
	var req ticketRequest
	if ok, err := parseBody(c, &req, "update ticket"); !ok {
		return err
	}
	fields := req.fields()
	if len(fields) == 0 {
		return badRequest(c, "Nothing to update")
	}
	doc, err := config.Store.Update(c.UserContext(), docstore.Tickets, c.Params("id"), fields, req.Version)
	if err != nil {
		return storeError(c, err, "update ticket")
	}
	logger.AuditLogger.Info("Ticket updated", zap.String("ticket_id", doc.ID), zap.Int64("version", doc.Version))
	return success(c, fiber.StatusOK, "Ticket updated successfully", models.TicketFromDocument(doc))
}

// DeleteTicket removes the ticket for good.
func DeleteTicket(c *fiber.Ctx) error {
	if err := config.Store.Delete(c.UserContext(), docstore.Tickets, c.Params("id")); err != nil {
		return storeError(c, err, "delete ticket")
	}
	logger.AuditLogger.Info("Ticket deleted", zap.String("ticket_id", c.Params("id")), zap.String("by", actor(c)))
	return success(c, fiber.StatusOK, "Ticket deleted successfully", nil)
}
