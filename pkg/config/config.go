package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"lovink/backend/internal/community"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port            string
		GRPCPort        string
		Env             string
		Timeout         time.Duration
		ShutdownTimeout time.Duration
	}

	Database struct {
		// Driver is "postgres" or "sqlite"
		Driver   string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		// Path is the sqlite file, ":memory:" for an ephemeral store
		Path     string
		MaxConns int
		Retries  int
	}

	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		// LogTTL expires an idle room's hot log
		LogTTL time.Duration
	}

	JWT struct {
		Secret string
		Expiry time.Duration
		Issuer string
	}

	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	Logging struct {
		Level  string
		Format string
	}

	Community struct {
		TickInterval               time.Duration
		RecencyWindow              time.Duration
		IdleProbability            float64
		UserTailWeights            []float64
		PersonaTailWeights         []float64
		GreeterProbability         float64
		BroadcastPhrases           []string
		BroadcastMin               int
		BroadcastMax               int
		SecondResponderProbability float64
		AutonomousCap              int
		DirectCap                  int
		MinViewportWidth           int
		// IdleRoomTTL stops a room loop with no subscribers
		IdleRoomTTL time.Duration
	}

	Generator struct {
		// Provider is "http" or "gemini"
		Provider         string
		Endpoint         string
		Model            string
		APIKey           string
		Timeout          time.Duration
		HistoryWindow    int
		RequestsPerSec   float64
		Burst            int
		FailureThreshold int
		ResetTimeout     time.Duration
	}

	Cache struct {
		Enabled bool
		TTL     time.Duration
		MaxSize int
	}

	Vault struct {
		Enabled bool
		Addr    string
		Token   string
		Mount   string
		Path    string
	}

	Observability struct {
		ServiceName   string
		TraceStdout   bool
		MetricsEnable bool
	}
}

var (
	instance *Config
	once     sync.Once
)

// New loads the configuration from the environment (and a .env file if
// present) once and returns the shared instance
func New() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = Load()
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	return New()
}

// Load reads a fresh Config from the environment without touching the
// singleton
func Load() *Config {
	c := &Config{}

	c.Server.Port = getEnvString("PORT", "8081")
	c.Server.GRPCPort = getEnvString("GRPC_PORT", "9091")
	c.Server.Env = getEnvString("APP_ENV", "development")
	c.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 60*time.Second)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	c.Database.Driver = getEnvString("DB_DRIVER", "postgres")
	c.Database.Host = getEnvString("DB_HOST", "localhost")
	c.Database.Port = getEnvString("DB_PORT", "5432")
	c.Database.User = getEnvString("DB_USER", "postgres")
	c.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	c.Database.Name = getEnvString("DB_NAME", "lovink")
	c.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	c.Database.Path = getEnvString("DB_PATH", "lovink.db")
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	c.Database.Retries = getEnvInt("DB_RETRIES", 5)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	c.Redis.Addr = getEnvString("REDIS_ADDR", "localhost:6379")
	c.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	c.Redis.DB = getEnvInt("REDIS_DB", 0)
	c.Redis.LogTTL = getEnvDuration("REDIS_LOG_TTL", 24*time.Hour)

	c.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	c.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 7*24*time.Hour)
	c.JWT.Issuer = getEnvString("JWT_ISSUER", "lovink")

	c.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	c.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	c.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	c.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	c.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 8<<20)

	c.Logging.Level = getEnvString("LOG_LEVEL", "info")
	c.Logging.Format = getEnvString("LOG_FORMAT", "json")

	def := community.DefaultPolicy()
	c.Community.TickInterval = getEnvDuration("COMMUNITY_TICK_INTERVAL", def.TickInterval)
	c.Community.RecencyWindow = getEnvDuration("COMMUNITY_RECENCY_WINDOW", def.RecencyWindow)
	c.Community.IdleProbability = getEnvFloat("COMMUNITY_IDLE_PROBABILITY", def.IdleProbability)
	c.Community.UserTailWeights = getEnvFloatSlice("COMMUNITY_USER_TAIL_WEIGHTS", def.UserTailWeights[:])
	c.Community.PersonaTailWeights = getEnvFloatSlice("COMMUNITY_PERSONA_TAIL_WEIGHTS", def.PersonaTailWeights[:])
	c.Community.GreeterProbability = getEnvFloat("COMMUNITY_GREETER_PROBABILITY", def.GreeterProbability)
	c.Community.BroadcastPhrases = getEnvStringSlice("COMMUNITY_BROADCAST_PHRASES", def.BroadcastPhrases)
	c.Community.BroadcastMin = getEnvInt("COMMUNITY_BROADCAST_MIN", def.BroadcastMin)
	c.Community.BroadcastMax = getEnvInt("COMMUNITY_BROADCAST_MAX", def.BroadcastMax)
	c.Community.SecondResponderProbability = getEnvFloat("COMMUNITY_SECOND_RESPONDER_PROBABILITY", def.SecondResponderProbability)
	c.Community.AutonomousCap = getEnvInt("COMMUNITY_AUTONOMOUS_CAP", def.AutonomousCap)
	c.Community.DirectCap = getEnvInt("COMMUNITY_DIRECT_CAP", def.DirectCap)
	c.Community.MinViewportWidth = getEnvInt("COMMUNITY_MIN_VIEWPORT_WIDTH", 768)
	c.Community.IdleRoomTTL = getEnvDuration("COMMUNITY_IDLE_ROOM_TTL", 2*time.Minute)

	c.Generator.Provider = getEnvString("GENERATOR_PROVIDER", "http")
	c.Generator.Endpoint = getEnvString("GENERATOR_ENDPOINT", "http://localhost:8000/api/community-chat")
	c.Generator.Model = getEnvString("GENERATOR_MODEL", "gemini-2.0-flash")
	c.Generator.APIKey = getEnvString("GENERATOR_API_KEY", "")
	c.Generator.Timeout = getEnvDuration("GENERATOR_TIMEOUT", 30*time.Second)
	c.Generator.HistoryWindow = getEnvInt("GENERATOR_HISTORY_WINDOW", 20)
	c.Generator.RequestsPerSec = getEnvFloat("GENERATOR_RPS", 2)
	c.Generator.Burst = getEnvInt("GENERATOR_BURST", 4)
	c.Generator.FailureThreshold = getEnvInt("GENERATOR_FAILURE_THRESHOLD", 5)
	c.Generator.ResetTimeout = getEnvDuration("GENERATOR_RESET_TIMEOUT", 30*time.Second)

	c.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	c.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
	c.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)

	c.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	c.Vault.Addr = getEnvString("VAULT_ADDR", "http://127.0.0.1:8200")
	c.Vault.Token = getEnvString("VAULT_TOKEN", "")
	c.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	c.Vault.Path = getEnvString("VAULT_PATH", "lovink")

	c.Observability.ServiceName = getEnvString("OTEL_SERVICE_NAME", "lovink-backend")
	c.Observability.TraceStdout = getEnvBool("OTEL_TRACE_STDOUT", false)
	c.Observability.MetricsEnable = getEnvBool("METRICS_ENABLED", true)

	return c
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Policy builds a validated room policy from the Community section
func (c *Config) Policy() (community.Policy, error) {
	cc := c.Community
	p := community.Policy{
		TickInterval:               cc.TickInterval,
		RecencyWindow:              cc.RecencyWindow,
		IdleProbability:            cc.IdleProbability,
		GreeterProbability:         cc.GreeterProbability,
		BroadcastPhrases:           cc.BroadcastPhrases,
		BroadcastMin:               cc.BroadcastMin,
		BroadcastMax:               cc.BroadcastMax,
		SecondResponderProbability: cc.SecondResponderProbability,
		AutonomousCap:              cc.AutonomousCap,
		DirectCap:                  cc.DirectCap,
	}
	if len(cc.UserTailWeights) != 3 {
		return community.Policy{}, fmt.Errorf("COMMUNITY_USER_TAIL_WEIGHTS needs 3 values, got %d", len(cc.UserTailWeights))
	}
	if len(cc.PersonaTailWeights) != 3 {
		return community.Policy{}, fmt.Errorf("COMMUNITY_PERSONA_TAIL_WEIGHTS needs 3 values, got %d", len(cc.PersonaTailWeights))
	}
	copy(p.UserTailWeights[:], cc.UserTailWeights)
	copy(p.PersonaTailWeights[:], cc.PersonaTailWeights)
	if err := p.Validate(); err != nil {
		return community.Policy{}, fmt.Errorf("community policy: %w", err)
	}
	return p, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvFloatSlice falls back to the default when any element fails to parse
func getEnvFloatSlice(key string, defaultValue []float64) []float64 {
	fallback := append([]float64(nil), defaultValue...)
	parts := getEnvStringSlice(key, nil)
	if parts == nil {
		return fallback
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fallback
		}
		out = append(out, f)
	}
	return out
}
