package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
	"github.com/emilythestrangee/stackit/backend/internal/tracing"
)

// HealthChecker reports store health for /health.
type HealthChecker interface {
	Health() map[string]string
}

type Server struct {
	cfg      *config.Config
	handler  *handlers.Handler
	tokens   middleware.TokenParser
	resolver forum.IdentityResolver
	health   HealthChecker
	log      *zap.Logger
}

func New(cfg *config.Config, services *forum.Services, tokens middleware.TokenParser, health HealthChecker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		handler:  handlers.NewHandler(services, cfg.Server.LegacyErrors, log.Named("http")),
		tokens:   tokens,
		resolver: services.Users,
		health:   health,
		log:      log,
	}
}

// HTTPServer wraps the router in a configured *http.Server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Server.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(s.log))
	r.Use(middleware.RequestLogger(s.log.Named("access")))
	r.Use(monitoring.MetricsMiddleware())
	if s.cfg.Tracing.Enabled {
		r.Use(tracing.GinMiddleware())
	}

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to StackIt API", "version": "1.0.0"})
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.health.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", monitoring.PrometheusHandler())

	requireUser := middleware.AuthMiddleware(s.tokens, s.resolver, s.log.Named("auth"))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.handler.Auth.Register)
		authGroup.POST("/login", s.handler.Auth.Login)
		authGroup.GET("/me", requireUser, s.handler.Auth.GetMe)
		authGroup.PUT("/me", requireUser, s.handler.Auth.UpdateMe)
	}

	questions := r.Group("/questions")
	{
		// public reads
		questions.GET("/", s.handler.Question.GetQuestions)
		questions.GET("/:id", s.handler.Question.GetQuestion)

		questions.POST("/", requireUser, s.handler.Question.CreateQuestion)
		questions.PUT("/:id", requireUser, s.handler.Question.UpdateQuestion)
		questions.DELETE("/:id", requireUser, s.handler.Question.DeleteQuestion)
		questions.POST("/:id/vote", requireUser, s.handler.Question.VoteQuestion)
	}

	answers := r.Group("/answers")
	{
		answers.GET("/question/:question_id", s.handler.Answer.GetAnswersForQuestion)

		answers.POST("/", requireUser, s.handler.Answer.CreateAnswer)
		answers.PUT("/:id", requireUser, s.handler.Answer.UpdateAnswer)
		answers.DELETE("/:id", requireUser, s.handler.Answer.DeleteAnswer)
		answers.POST("/:id/vote", requireUser, s.handler.Answer.VoteAnswer)
		answers.POST("/:id/accept", requireUser, s.handler.Answer.AcceptAnswer)
	}

	notifications := r.Group("/notifications", requireUser)
	{
		notifications.GET("/", s.handler.Notification.GetNotifications)
		notifications.GET("/unread-count", s.handler.Notification.GetUnreadCount)
		notifications.POST("/mark-all-read", s.handler.Notification.MarkAllRead)
		notifications.POST("/:id/read", s.handler.Notification.MarkRead)
		notifications.DELETE("/:id", s.handler.Notification.DeleteNotification)
	}

	admin := r.Group("/admin", requireUser, middleware.AdminOnly())
	{
		admin.GET("/users", s.handler.Admin.GetUsers)
		admin.POST("/users/:id/ban", s.handler.Admin.BanUser)
		admin.POST("/users/:id/unban", s.handler.Admin.UnbanUser)
		admin.DELETE("/questions/:id", s.handler.Admin.DeleteQuestion)
		admin.DELETE("/answers/:id", s.handler.Admin.DeleteAnswer)
		admin.GET("/stats", s.handler.Admin.GetStats)
		admin.POST("/reconcile", s.handler.Admin.Reconcile)
	}

	return r
}
