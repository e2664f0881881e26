package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/handler"
	"github.com/pyqprep/mocktest-backend/internal/middleware"
	"github.com/pyqprep/mocktest-backend/internal/response"
	"github.com/pyqprep/mocktest-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	// Credentials must be on: the session rides in a cookie.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	requireSession := middleware.RequireSession(cfg, authService)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", requireSession, handlers.Auth.Logout)
		auth.GET("/me", requireSession, handlers.Auth.Me)
	}

	// ─── 2. Exam Group (Session Cookie) ────────────────────────────────
	examAPI := router.Group("/api/v1/exam")
	examAPI.Use(requireSession)
	{
		// The set catalog changes rarely; let the browser hold it briefly.
		examAPI.GET("/sets", middleware.CacheControl(60), handlers.Attempt.ListSets)
		examAPI.POST("/sets/:set_id/start", handlers.Attempt.StartAttempt)
		examAPI.GET("/sets/:set_id/export", handlers.Attempt.ExportSetResults)

		examAPI.GET("/attempt/:attempt_id", handlers.Attempt.GetAttempt)
		examAPI.POST("/attempt/:attempt_id/answer", handlers.Attempt.SaveAnswer)
		examAPI.POST("/attempt/:attempt_id/mark-review", handlers.Attempt.MarkReview)
		examAPI.POST("/attempt/:attempt_id/submit", handlers.Attempt.Submit)
		examAPI.GET("/attempt/:attempt_id/results", handlers.Attempt.Results)
	}

	// ─── 3. WebSocket Group (Session Cookie) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireSession)
	{
		ws.GET("/exam/attempt/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
