package router

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"lovink/backend/internal/api"
	"lovink/backend/pkg/config"
	"lovink/backend/pkg/di"
	"lovink/backend/pkg/errors"
	"lovink/backend/pkg/logger"
	"lovink/backend/pkg/middleware"
	"lovink/backend/shared/observability"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.LogError(err, "invalid trusted proxies")
	}

	// request id first so every later middleware can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(observability.GinMetrics())
	engine.Use(errors.ErrorHandler())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))
	engine.Use(bodyLimit(cfg.Security.MaxBodySize))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container
	jwtAuth := middleware.JWTAuth(c.JWTService)
	limit := c.RateLimiter.Middleware()

	sessionHandler := api.NewSessionHandler(c.UserService)
	personaController := api.NewPersonaController(c.PersonaService)
	roomController := api.NewRoomController(c.RoomService)
	chatController := api.NewChatController(c.ChatService)

	r.setupHealthRoutes()

	v1 := r.Engine.Group("/api/v1")
	v1.Use(c.Validator.Middleware())

	// Public routes (no auth required)
	v1.POST("/session", limit, sessionHandler.StartSession)

	// Protected routes (require authentication)
	protected := v1.Group("/")
	protected.Use(jwtAuth, limit)
	{
		protected.GET("/me", sessionHandler.Me)
		personaController.RegisterRoutes(protected)
		roomController.RegisterRoutes(protected)
		chatController.RegisterRoutes(protected)
	}

	// Browsers pass the token as ?token= on the upgrade request
	r.Engine.GET("/ws/rooms/:roomId", jwtAuth, c.WSHandler.ServeWS)
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := len(allowed) == 0 || slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "":
		case anyOrigin || slices.Contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control, X-Request-ID, "+api.HeaderViewportWidth)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
