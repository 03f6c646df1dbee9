package v1

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/middleware"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Auth
	api.Post("/login", handlers.Login)
	api.Post("/register", handlers.Register)

	// Uploaded avatars are public so <img> tags can load them
	api.Get("/uploads/:filename", handlers.GetUpload)

	// Employees
	employeeRoutes := api.Group("/employees", middleware.UseToken)
	employeeRoutes.Get("/", handlers.ListEmployees)
	employeeRoutes.Get("/:id", handlers.GetEmployee)
	employeeRoutes.Post("/", middleware.AdminOnly, handlers.CreateEmployee)
	employeeRoutes.Put("/:id", middleware.AdminOnly, handlers.UpdateEmployee)
	employeeRoutes.Delete("/:id", middleware.AdminOnly, handlers.DeleteEmployee)
	employeeRoutes.Post("/:id/avatar", handlers.UploadAvatar)

	// Projects
	projectRoutes := api.Group("/projects", middleware.UseToken)
	projectRoutes.Get("/", handlers.ListProjects)
	projectRoutes.Get("/:id", handlers.GetProject)
	projectRoutes.Post("/", middleware.AdminOnly, handlers.CreateProject)
	projectRoutes.Put("/:id", middleware.AdminOnly, handlers.UpdateProject)
	projectRoutes.Delete("/:id", middleware.AdminOnly, handlers.DeleteProject)

	// Teams
	teamRoutes := api.Group("/teams", middleware.UseToken)
	teamRoutes.Get("/", handlers.ListTeams)
	teamRoutes.Get("/:id", handlers.GetTeam)
	teamRoutes.Post("/", middleware.AdminOnly, handlers.CreateTeam)
	teamRoutes.Put("/:id", middleware.AdminOnly, handlers.UpdateTeam)
	teamRoutes.Delete("/:id", middleware.AdminOnly, handlers.DeleteTeam)

	// Tickets
	ticketRoutes := api.Group("/tickets", middleware.UseToken)
	ticketRoutes.Post("/", handlers.RaiseTicket)
	ticketRoutes.Get("/", handlers.ListTickets)
	ticketRoutes.Get("/:id", handlers.GetTicket)
	ticketRoutes.Put("/:id", middleware.AdminOnly, handlers.UpdateTicket)
	ticketRoutes.Delete("/:id", middleware.AdminOnly, handlers.DeleteTicket)

	// Task
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Post("/", middleware.AdminOnly, handlers.CreateTask)
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Get("/board", handlers.TaskBoard)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.UpdateTask)
	taskRoutes.Delete("/:id", middleware.AdminOnly, handlers.DeleteTask)
	taskRoutes.Post("/:id/comments", handlers.AddComment)
	taskRoutes.Post("/:id/progress", handlers.UpdateProgress)
	taskRoutes.Post("/:id/reassign", handlers.ReassignTask)
	taskRoutes.Post("/:id/move", handlers.MoveTask)
	taskRoutes.Post("/:id/review", middleware.AdminOnly, handlers.ReviewTask)

	// Settings
	settingsRoutes := api.Group("/settings", middleware.UseToken)
	settingsRoutes.Get("/me", handlers.GetMySettings)
	settingsRoutes.Put("/me", handlers.UpdateMySettings)

	// HR feedback
	feedbackRoutes := api.Group("/feedback", middleware.UseToken, middleware.AdminOnly)
	feedbackRoutes.Put("/:employeeId/:date", handlers.PutFeedback)
	feedbackRoutes.Get("/:employeeId/:date", handlers.GetFeedback)

	// Analytics & reports
	analyticsRoutes := api.Group("/analytics", middleware.UseToken)
	analyticsRoutes.Get("/employees/:id/performance", handlers.EmployeePerformance)
	analyticsRoutes.Get("/dashboard", middleware.AdminOnly, handlers.Dashboard)
	analyticsRoutes.Get("/team-matrix", middleware.AdminOnly, handlers.TeamMatrix)
	analyticsRoutes.Get("/export", middleware.AdminOnly, handlers.ExportAnalytics)

	reportRoutes := api.Group("/reports", middleware.UseToken, middleware.AdminOnly)
	reportRoutes.Get("/", handlers.Report)
	reportRoutes.Get("/export", handlers.ExportReport)

	// Live snapshots
	app.Get("/ws/:collection", handlers.WatchUpgrade, middleware.UseToken, handlers.Watch)
}
