package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"lovink/backend/pkg/errors"
	"lovink/backend/pkg/logger"
)

// RateLimiterOptions configures the rate limiter
type RateLimiterOptions struct {
	// Limit is requests per second per key
	Limit rate.Limit
	Burst int
	// ExpiryDuration drops state for keys idle that long
	ExpiryDuration time.Duration
	// KeyFunc extracts the limiting key; defaults to the user then the IP
	KeyFunc func(*gin.Context) string
}

// DefaultRateLimiterOptions returns the default limits
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          5,
		Burst:          10,
		ExpiryDuration: time.Hour,
		KeyFunc:        userOrIP,
	}
}

func userOrIP(c *gin.Context) string {
	if uid := c.GetString(UserIDGinKey); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string]*client
	logger  *logger.Logger
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(log *logger.Logger, opts RateLimiterOptions) *RateLimiter {
	if opts.KeyFunc == nil {
		opts.KeyFunc = userOrIP
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = time.Hour
	}
	return &RateLimiter{
		options: opts,
		clients: make(map[string]*client),
		logger:  log,
	}
}

// Allow reports whether key may proceed now
func (r *RateLimiter) Allow(key string) bool {
	return r.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(r.options.Burst)
	return func(c *gin.Context) {
		key := r.options.KeyFunc(c)
		if !r.Allow(key) {
			r.logger.Warn("rate limit exceeded", "client", key, "path", c.FullPath())
			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Limit", limit)
			errors.Response(c, errors.NewTooManyRequestsError("RATE_LIMIT_EXCEEDED", "too many requests, slow down"))
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.clients[key]
	if !ok {
		v = &client{limiter: rate.NewLimiter(r.options.Limit, r.options.Burst)}
		r.clients[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Run evicts idle keys every minute until ctx is done
func (r *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

func (r *RateLimiter) evictIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.clients {
		if now.Sub(v.lastSeen) > r.options.ExpiryDuration {
			delete(r.clients, k)
		}
	}
}
