// Package router assembles the echo server: middleware chain, access
// policy and routes.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/config"
	"github.com/iliyamo/freelance-marketplace/internal/handler"
	"github.com/iliyamo/freelance-marketplace/internal/metrics"
	"github.com/iliyamo/freelance-marketplace/internal/middleware"
	"github.com/iliyamo/freelance-marketplace/internal/service"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Codec         *utils.TokenCodec
	Users         middleware.UserLookup
	Auth          *service.AuthService
	Projects      *service.ProjectLifecycle
	Applications  *service.ApplicationLifecycle
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Chat          *service.ChatService
	Accounts      *service.UserService
	RateLimit     config.RateLimitConfig
	Redis         *redis.Client  // nil disables rate limiting
	DB            handler.Pinger // nil reports healthy unconditionally
	Log           logrus.FieldLogger
}

// New returns a configured echo instance.  Every request passes metrics,
// authentication, rate limiting and the access policy, in that order,
// before it reaches a handler.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(metrics.Middleware())
	e.Use(middleware.Authenticate(d.Codec, d.Users, d.Log))
	e.Use(middleware.RateLimiter(d.RateLimit, d.Redis, d.Log))
	e.Use(middleware.NewPolicy(Rules...).Enforce())

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")
	api.GET("/home", handler.Home)
	RegisterAuth(api, handler.NewAuthHandler(d.Auth, d.Log))
	RegisterProjects(api, handler.NewProjectHandler(d.Projects, d.Log))
	RegisterApplications(api, handler.NewApplicationHandler(d.Applications, d.Log))
	RegisterNotifications(api, handler.NewNotificationHandler(d.Notifications, d.Log))
	RegisterReports(api, handler.NewReportHandler(d.Reports, d.Log))
	RegisterChat(api, handler.NewChatHandler(d.Chat, d.Log))
	users := handler.NewUserHandler(d.Accounts, d.Log)
	RegisterUsers(api, users)
	RegisterMailLog(api, users)
	return e
}

// RegisterAuth maps the public account endpoints.
func RegisterAuth(g *echo.Group, h *handler.AuthHandler) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
}

// RegisterProjects maps /api/project.  Static segments such as
// "available" take precedence over the :id parameter.
func RegisterProjects(g *echo.Group, h *handler.ProjectHandler) {
	p := g.Group("/project")
	p.POST("/post", h.Post)
	p.GET("/id/:id", h.Get)
	p.GET("/title/:title", h.SearchByTitle)
	p.GET("/allProjects", h.All)
	p.GET("/available", h.Available)
	p.GET("/my-projects", h.Mine)
	p.GET("/freelancer/my-projects", h.Assigned)
	p.GET("/client/stats", h.ClientStats)
	p.PUT("/:id", h.Update)
	p.DELETE("/:id", h.Delete)
	p.PUT("/:id/approve", h.Approve)
	p.PUT("/:id/deny", h.Deny)
	p.PUT("/:id/complete", h.Complete)
	p.PUT("/:id/status", h.UpdateStatus)
}

// RegisterApplications maps applying and the application queries.
func RegisterApplications(g *echo.Group, h *handler.ApplicationHandler) {
	g.POST("/project/:id/apply/:username", h.Apply)
	g.POST("/project/:id/apply/:username/with-cv", h.ApplyWithCV)
	g.GET("/project/:id/applications", h.ByProject)
	g.GET("/project/:id/freelancer/:freelancerId", h.ByProjectAndFreelancer)
	g.GET("/client/:username/my-applications", h.ByClient)
	g.GET("/freelancer/:username/my-applications", h.ByFreelancer)

	a := g.Group("/application")
	a.GET("/status/:status", h.ByStatus)
	a.GET("/:id", h.Get)
	a.DELETE("/:id", h.Delete)
	a.PUT("/:id/approve", h.Approve)
	a.PUT("/:id/reject", h.Reject)
	a.GET("/:id/download-cv", h.DownloadCV)
}

// RegisterNotifications maps the caller's inbox.
func RegisterNotifications(g *echo.Group, h *handler.NotificationHandler) {
	n := g.Group("/notifications")
	n.GET("", h.List)
	n.GET("/unread-count", h.UnreadCount)
	n.PUT("/:id/read", h.MarkRead)
	n.PUT("/mark-all-read", h.MarkAllRead)
}

// RegisterReports maps dispute reports.
func RegisterReports(g *echo.Group, h *handler.ReportHandler) {
	g.POST("/report", h.Create)
	g.GET("/report", h.List)
	g.PUT("/report/:id", h.UpdateStatus)
}

// RegisterChat maps per-project chat.
func RegisterChat(g *echo.Group, h *handler.ChatHandler) {
	g.GET("/chat/:projectId/messages", h.Messages)
	g.POST("/chat/:projectId/send", h.Send)
}

// RegisterUsers maps account administration.
func RegisterUsers(g *echo.Group, h *handler.UserHandler) {
	u := g.Group("/user")
	u.GET("", h.List)
	u.GET("/:id", h.Get)
	u.PUT("/:id/verify", h.Verify)
}

// RegisterMailLog maps the administrator's view of sent mail.
func RegisterMailLog(g *echo.Group, h *handler.UserHandler) {
	m := g.Group("/mail")
	m.GET("/all", h.AllMail)
	m.GET("/sent", h.SentMail)
	m.GET("/failed", h.FailedMail)
	m.GET("/user/:email", h.MailTo)
}
