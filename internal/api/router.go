package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/api/handlers"
	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/pkg/logger"
)

// Options are the router's optional collaborators
type Options struct {
	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
	// LoginLimiter throttles /auth/login and /auth/signup when set
	LoginLimiter *middleware.RateLimiter
}

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, deps handlers.Deps, log *logger.BatchLogger, opts Options) *gin.Engine {
	// Set gin mode based on config
	switch cfg.Server.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(log.Logger))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}

	h := handlers.NewHandlers(deps, log.Logger)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/ws", h.WebSocketHandler())
	if opts.MetricsHandler != nil {
		path := cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.MetricsHandler))
	}

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		if opts.LoginLimiter != nil {
			limit := opts.LoginLimiter.RateLimitMiddleware()
			auth.POST("/signup", limit, h.Signup)
			auth.POST("/login", limit, h.Login)
		} else {
			auth.POST("/signup", h.Signup)
			auth.POST("/login", h.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Auth))
		admin := middleware.RequireAdmin()

		protected.POST("/auth/logout", h.Logout)

		profile := protected.Group("/profile")
		{
			profile.GET("", h.GetProfile)
			profile.PUT("/password", h.UpdatePassword)
		}

		users := protected.Group("/users", admin)
		{
			users.GET("", h.GetUsers)
			users.PUT("/:id/role", h.UpdateUserRole)
			users.DELETE("/:id", h.DeleteUser)
		}

		devices := protected.Group("/devices")
		{
			devices.GET("", h.GetDevices)
			devices.GET("/:id", h.GetDevice)
			devices.POST("", admin, h.CreateDevice)
			devices.PUT("/:id", admin, h.UpdateDevice)
			devices.DELETE("/:id", admin, h.DeleteDevice)
			devices.POST("/:id/toggle", h.ToggleDevice)
		}

		rooms := protected.Group("/rooms")
		{
			rooms.GET("", h.GetRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.GET("/:id/devices", h.GetRoomDevices)
			rooms.POST("", admin, h.CreateRoom)
			rooms.PUT("/:id", admin, h.UpdateRoom)
			rooms.DELETE("/:id", admin, h.DeleteRoom)
			rooms.POST("/:id/lights", h.SetRoomLights)
		}

		scenes := protected.Group("/scenes")
		{
			scenes.GET("", h.GetScenes)
			scenes.GET("/:id", h.GetScene)
			scenes.POST("", admin, h.CreateScene)
			scenes.PUT("/:id", admin, h.UpdateScene)
			scenes.DELETE("/:id", admin, h.DeleteScene)
			scenes.POST("/:id/activate", h.ActivateScene)
			scenes.POST("/activate", h.ActivateSceneByName)
		}

		automations := protected.Group("/automations")
		{
			automations.GET("", h.GetAutomations)
			automations.GET("/:id", h.GetAutomation)
			automations.POST("", admin, h.CreateAutomation)
			automations.PUT("/:id", admin, h.UpdateAutomation)
			automations.DELETE("/:id", admin, h.DeleteAutomation)
			automations.POST("/:id/toggle", h.ToggleAutomation)
		}

		assistant := protected.Group("/assistant")
		{
			assistant.POST("/voice", h.ProcessVoiceCommand)
			assistant.POST("/speech", h.TextToSpeech)
			assistant.POST("/system-status", h.AnalyzeSystemStatus)
			assistant.POST("/security-event", h.ProcessSecurityEvent)
			assistant.POST("/suggest-scenes", h.SuggestScenes)
			assistant.GET("/providers", h.GetProviders)
		}

		system := protected.Group("/system")
		{
			system.GET("/snapshot", h.GetSystemSnapshot)
			system.GET("/websocket", admin, h.GetWebSocketStats)
		}
	}

	router.NoRoute(h.NotFound)

	return router
}
