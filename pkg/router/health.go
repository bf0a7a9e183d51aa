package router

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startTime is used for uptime reporting
var startTime = time.Now()

// setupHealthRoutes registers the health, liveness and metrics endpoints
func (r *Router) setupHealthRoutes() {
	checks := r.Container.Health.Handler()

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", checks)
	r.Engine.GET("/api/health", checks)

	r.Engine.GET("/health/live", func(c *gin.Context) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"version":      os.Getenv("APP_VERSION"),
			"uptime":       time.Since(startTime).Round(time.Second).String(),
			"active_rooms": r.Container.RoomService.Active(),
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	})

	if r.Config.Observability.MetricsEnable {
		r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}
