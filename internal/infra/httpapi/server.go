// Package httpapi exposes the admin HTTP interface: notification triggers and
// listings, template management, schedule management, and a couple of
// development helpers. All /api routes sit behind the shared token check.
package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookkeeping-notifier/internal/app"
	"bookkeeping-notifier/internal/domain/notification"
	"bookkeeping-notifier/internal/infra/config"
	"bookkeeping-notifier/internal/infra/email"
)

// Server bundles the gin engine with its dependencies.
type Server struct {
	engine        *gin.Engine
	db            *sql.DB
	notifications app.NotificationService
	dispatcher    app.DispatchService
	schedules     app.ScheduleService
	templates     notification.TemplateRepository
	fileSender    *email.FileSender // nil unless the file email backend is active
}

// NewServer builds the router. fileSender may be nil; the email mock endpoint
// then reports that the backend does not record emails.
func NewServer(
	cfg *config.AppConfig,
	db *sql.DB,
	notifications app.NotificationService,
	dispatcher app.DispatchService,
	schedules app.ScheduleService,
	templates notification.TemplateRepository,
	fileSender *email.FileSender,
) *Server {
	if cfg.Environment == "production" || cfg.Environment == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:        gin.New(),
		db:            db,
		notifications: notifications,
		dispatcher:    dispatcher,
		schedules:     schedules,
		templates:     templates,
		fileSender:    fileSender,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(corsMiddleware())

	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api", authMiddleware(cfg.APISecretToken))
	{
		api.POST("/notifications/trigger", s.triggerNotifications)
		api.POST("/create-notification", s.generateNotifications)
		api.POST("/send-matching-notifications", s.sendNotifications)
		api.GET("/get-notifications", s.listNotifications)
		api.POST("/notifications", s.createNotification)

		api.GET("/notification-templates", s.listTemplates)
		api.PUT("/notification-templates/:id", s.updateTemplate)

		api.GET("/schedules", s.listSchedules)
		api.POST("/schedules", s.createSchedule)
		api.PUT("/schedules/:id", s.updateSchedule)
		api.DELETE("/schedules/:id", s.deleteSchedule)
		api.PATCH("/schedules/:id/toggle", s.toggleSchedule)

		api.GET("/email-mock/latest", s.latestEmail)
	}

	return s
}

// Handler exposes the router for the HTTP server and for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
