package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"lovink/backend/ai"
	"lovink/backend/internal/community"
	"lovink/backend/internal/service"
	"lovink/backend/internal/store"
	"lovink/backend/internal/ws"
	"lovink/backend/pkg/cache"
	"lovink/backend/pkg/config"
	"lovink/backend/pkg/health"
	"lovink/backend/pkg/jwt"
	"lovink/backend/pkg/logger"
	"lovink/backend/pkg/middleware"
	"lovink/backend/pkg/resilience"
	"lovink/backend/pkg/secrets"
	"lovink/backend/pkg/validator"
	sharedredis "lovink/backend/shared/redis"
)

const defaultJWTSecret = "default-jwt-secret-do-not-use-in-production"

// Container holds all the dependencies for the application
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Redis   *redis.Client // nil when Redis is disabled
	Secrets secrets.Manager

	JWTService     *jwt.Service
	Providers      *ai.Providers
	UserService    *service.UserService
	PersonaService *service.PersonaService
	RoomService    *service.RoomService
	ChatService    *service.ChatService

	Hub         *ws.Hub
	WSHandler   *ws.Handler
	Health      *health.Checker
	RateLimiter *middleware.RateLimiter
	Validator   *validator.OpenAPIValidator

	rosters *cache.Cache[string, []community.Persona]
	closers []func()
}

// New wires the application from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	ready := false
	defer func() {
		if !ready {
			c.Close()
		}
	}()

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	c.Secrets, err = secrets.NewManager(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	if closer, ok := c.Secrets.(interface{ Close() }); ok {
		c.closers = append(c.closers, closer.Close)
	}

	c.DB, err = config.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}
	if sqlDB, dbErr := c.DB.DB(); dbErr == nil {
		c.closers = append(c.closers, func() { _ = sqlDB.Close() })
	}
	if err = store.Migrate(ctx, c.DB); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		c.Redis, err = sharedredis.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })
	}

	jwtSecret := secrets.GetWithDefault(ctx, c.Secrets, "jwt.secret", cfg.JWT.Secret)
	if jwtSecret == defaultJWTSecret {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		log.Warn("using the default JWT secret")
	}
	c.JWTService, err = jwt.NewService(jwtSecret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		return nil, err
	}

	c.Providers, err = ai.NewProviders(ctx, cfg, c.Secrets, log)
	if err != nil {
		return nil, fmt.Errorf("reply generator: %w", err)
	}

	if cfg.Cache.Enabled {
		c.rosters = service.NewRosterCache(cfg.Cache.TTL, cfg.Cache.MaxSize)
		c.closers = append(c.closers, c.rosters.Close)
	}
	c.UserService = service.NewUserService(c.DB, c.JWTService)
	c.PersonaService = service.NewPersonaService(c.DB, c.Providers.Portrait, c.rosters, log)

	logs := store.NewLogFactory(c.DB, c.Redis, store.RedisOptions{TTL: cfg.Redis.LogTTL}, log)
	c.ChatService = service.NewChatService(c.DB, logs, c.Providers.Reply, log)

	c.Hub = ws.NewHub(log)
	c.RoomService = service.NewRoomService(
		c.PersonaService,
		logs,
		c.Providers.Reply,
		service.RoomOptions{
			Policy:           policy,
			MinViewportWidth: cfg.Community.MinViewportWidth,
			IdleTTL:          cfg.Community.IdleRoomTTL,
			Typing:           c.Hub.Typing,
		},
		log,
	)
	c.WSHandler = ws.NewHandler(c.Hub, c.RoomService, cfg.Security.AllowedOrigins)

	c.RateLimiter = middleware.NewRateLimiter(log, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
	})

	c.Validator, err = validator.New()
	if err != nil {
		return nil, err
	}

	c.Health = c.newHealthChecker()
	ready = true
	return c, nil
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, 30*time.Second)
	checker.RegisterPing("database", true, func(ctx context.Context) error {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if c.Redis != nil {
		checker.RegisterPing("redis", true, sharedredis.Checker(c.Redis))
	}
	checker.RegisterPing("rooms", true, c.RoomService.Healthy)
	checker.RegisterCheck("generator", false, func(context.Context) (health.Status, string, error) {
		switch c.Providers.Reply.BreakerState() {
		case resilience.StateOpen:
			return health.StatusDown, "circuit open", nil
		case resilience.StateHalfOpen:
			return health.StatusDegraded, "circuit half-open", nil
		default:
			return health.StatusUp, "circuit closed", nil
		}
	})
	return checker
}

// Run drives the background workers until ctx is done: the websocket hub,
// the room manager, the rate limiter janitor and the health checks
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Hub.Run(ctx) })
	g.Go(func() error { return c.RoomService.Run(ctx) })
	g.Go(func() error {
		c.RateLimiter.Run(ctx)
		return nil
	})
	c.Health.Start(ctx)
	return g.Wait()
}

// Close releases connections in reverse order of creation
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
