package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// loadData reads everything the analytics views derive from, plus today's HR
// feedback score of every employee.
func loadData(ctx context.Context, now time.Time) (metrics.Data, error) {
	var data metrics.Data
	var err error
	if data.Tasks, err = loadAll(ctx, docstore.Tasks, models.TaskFromDocument); err != nil {
		return data, err
	}
	if data.Employees, err = loadAll(ctx, docstore.Employees, models.EmployeeFromDocument); err != nil {
		return data, err
	}
	if data.Projects, err = loadAll(ctx, docstore.Projects, models.ProjectFromDocument); err != nil {
		return data, err
	}
	if data.Teams, err = loadAll(ctx, docstore.Teams, models.TeamFromDocument); err != nil {
		return data, err
	}

	src := storeFeedback{store: config.Store}
	data.HRScores = make(map[string]float64, len(data.Employees))
	for _, e := range data.Employees {
		data.HRScores[e.ID] = metrics.HRFeedbackScore(ctx, src, e.ID, now)
	}
	return data, nil
}

// metricLabels names the composite each view reports, since the two differ.
var metricLabels = fiber.Map{
	"dashboard":   metrics.DeliveryPerformanceMetric,
	"employee":    metrics.WeightedPerformanceMetric,
	"team_matrix": metrics.WeightedPerformanceMetric,
}

func Dashboard(c *fiber.Ctx) error {
	now := clock()
	data, err := loadData(c.UserContext(), now)
	if err != nil {
		return storeError(c, err, "dashboard")
	}
	return c.JSON(fiber.Map{
		"message": "Dashboard retrieved successfully",
		"success": true,
		"status":  fiber.StatusOK,
		"metrics": metricLabels,
		"data":    metrics.BuildDashboard(data, now),
	})
}

// EmployeePerformance is open to admins and to the employee themself.
func EmployeePerformance(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isAdmin(c) && employeeID(c) != id {
		return forbidden(c, "You can only view your own performance")
	}
	ctx := c.UserContext()
	now := clock()

	doc, err := config.Store.Get(ctx, docstore.Employees, id)
	if err != nil {
		return storeError(c, err, "employee performance")
	}
	tasks, err := loadAll(ctx, docstore.Tasks, models.TaskFromDocument, docstore.Where("assigned_to", id))
	if err != nil {
		return storeError(c, err, "employee performance")
	}

	m := metrics.Evaluate(ctx, storeFeedback{store: config.Store}, id, tasks, now)
	m.Name = models.EmployeeFromDocument(doc).Name
	return success(c, fiber.StatusOK, "Performance retrieved successfully", m)
}

func TeamMatrix(c *fiber.Ctx) error {
	now := clock()
	data, err := loadData(c.UserContext(), now)
	if err != nil {
		return storeError(c, err, "team matrix")
	}
	return success(c, fiber.StatusOK, "Team matrix retrieved successfully",
		metrics.TeamMatrix(data.Teams, data.Employees, data.Tasks, data.HRScores, now))
}

// reportRange reads ?from= and ?to= (YYYY-MM-DD). The default is the last
// metrics.DefaultReportDays days up to today.
func reportRange(c *fiber.Ctx, now time.Time) (time.Time, time.Time, bool) {
	to := now
	from := now.AddDate(0, 0, -(metrics.DefaultReportDays - 1))
	if raw := c.Query("to"); raw != "" {
		d, ok := models.ParseDate(raw)
		if !ok {
			return from, to, false
		}
		to = d.Time
	}
	if raw := c.Query("from"); raw != "" {
		d, ok := models.ParseDate(raw)
		if !ok {
			return from, to, false
		}
		from = d.Time
	}
	return from, to, !models.NewDate(from).After(models.NewDate(to).Time)
}

func buildReport(c *fiber.Ctx) (metrics.Report, bool, error) {
	now := clock()
	from, to, ok := reportRange(c, now)
	if !ok {
		return metrics.Report{}, false, badRequest(c, "Invalid date range")
	}
	data, err := loadData(c.UserContext(), now)
	if err != nil {
		return metrics.Report{}, false, storeError(c, err, "report")
	}
	return metrics.BuildReport(data, from, to, now), true, nil
}

func Report(c *fiber.Ctx) error {
	report, ok, err := buildReport(c)
	if !ok {
		return err
	}
	return success(c, fiber.StatusOK, "Report retrieved successfully", report)
}

// sendExport answers with v as a JSON file download named prefix-YYYY-MM-DD.json.
func sendExport(c *fiber.Ctx, prefix string, v any) error {
	raw, err := metrics.Export(v)
	if err != nil {
		logger.ErrorLogger.Error("Error exporting "+prefix, zap.Error(err))
		return failure(c, fiber.StatusInternalServerError, codeInternal, "Error exporting data")
	}
	filename := metrics.ExportFilename(prefix, clock())
	logger.AuditLogger.Info("Export downloaded", zap.String("file", filename), zap.String("by", actor(c)))
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(raw)
}

func ExportReport(c *fiber.Ctx) error {
	report, ok, err := buildReport(c)
	if !ok {
		return err
	}
	return sendExport(c, "report", report)
}

func ExportAnalytics(c *fiber.Ctx) error {
	now := clock()
	data, err := loadData(c.UserContext(), now)
	if err != nil {
		return storeError(c, err, "export analytics")
	}
	return sendExport(c, "analytics", metrics.BuildDashboard(data, now))
}
