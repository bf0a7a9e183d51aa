package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovink_room_ticks_total",
		Help: "Scheduler ticks by decision outcome.",
	}, []string{"outcome"})

	RoomReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovink_room_replies_total",
		Help: "Persona reply attempts by round kind and result.",
	}, []string{"round", "result"})

	ReplyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lovink_room_reply_duration_seconds",
		Help:    "Time from reply request to append or rejection.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"round"})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lovink_active_rooms",
		Help: "Rooms with a running scheduler loop.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lovink_ws_connections",
		Help: "Open websocket connections.",
	})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lovink_circuit_breaker_open",
		Help: "1 while the named breaker is open or half-open.",
	}, []string{"name"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lovink_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lovink_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// BreakerChanged records a breaker transition
func BreakerChanged(name string, _, to string) {
	v := 0.0
	if to != "closed" {
		v = 1
	}
	BreakerState.WithLabelValues(name).Set(v)
}

// GinMetrics records request counts and latency per matched route
func GinMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
