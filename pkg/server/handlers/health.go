package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/schemagraph"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "schemagraph"

// HealthHandler handles health check requests
type HealthHandler struct {
	checker   schemagraph.HealthChecker
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. checker may be nil, in which
// case readiness always fails.
func NewHealthHandler(checker schemagraph.HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready. The service is ready when the graph
// store answers within five seconds.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	response := gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}

	db := h.checkDatabase(ctx)
	checks["database"] = db
	checks["system"] = gin.H{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}

	if db["status"] != "healthy" {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	db := h.checkDatabase(ctx)
	metrics := h.getSystemMetrics()

	status, code := "healthy", http.StatusOK
	if db["status"] != "healthy" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{"go_version": GoVersion},
		"checks": gin.H{
			"database": db,
			"system": gin.H{
				"status":       "healthy",
				"memory_usage": metrics.MemoryUsage,
				"goroutines":   metrics.Goroutines,
				"gc_cycles":    metrics.GCCycles,
				"heap_objects": metrics.HeapObjects,
				"stack_usage":  metrics.StackUsage,
			},
		},
		"metrics": gin.H{"response_time_ms": time.Since(start).Milliseconds()},
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) gin.H {
	if h.checker == nil {
		return gin.H{"status": "unhealthy", "error": "client not initialized"}
	}
	start := time.Now()
	err := h.checker.Ping(ctx)
	result := gin.H{"status": "healthy", "duration": time.Since(start).String()}
	if err != nil {
		result["status"] = "unhealthy"
		result["error"] = err.Error()
		if ctx.Err() != nil {
			result["error"] = "database connection timeout"
		}
	}
	return result
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics
func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
