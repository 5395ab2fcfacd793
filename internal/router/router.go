package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskboard/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Task         *apiHandler.TaskHandler
	Notification *apiHandler.NotificationHandler
	Audit        *apiHandler.AuditHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.GET("/api/v1/me", authMiddleware(handlers.Auth.Me))

	// Protected routes
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.PATCH("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/notifications", authMiddleware(handlers.Notification.List))
	r.POST("/api/v1/notifications", authMiddleware(handlers.Notification.Send))
	r.DELETE("/api/v1/notifications", authMiddleware(handlers.Notification.DismissAll))
	r.POST("/api/v1/notifications/{id}/dismiss", authMiddleware(handlers.Notification.Dismiss))
	r.GET("/api/v1/badge", authMiddleware(handlers.Notification.Badge))
	r.POST("/api/v1/badge/hide", authMiddleware(handlers.Notification.HideBadge))

	r.GET("/api/v1/audit/deleted-tasks", authMiddleware(handlers.Audit.List))
	r.GET("/api/v1/audit/stats", authMiddleware(handlers.Audit.Stats))
	r.POST("/api/v1/audit/purge", authMiddleware(handlers.Audit.Purge))

	return r
}
