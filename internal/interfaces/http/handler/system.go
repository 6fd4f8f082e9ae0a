package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	checks    map[string]Pinger
	version   string
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler whose health check pings db.
// A nil db is skipped.
func NewSystemHandler(db Pinger, version string) *SystemHandler {
	if version == "" {
		version = "dev"
	}
	h := &SystemHandler{
		checks:    map[string]Pinger{},
		version:   version,
		startTime: time.Now(),
	}
	return h.WithCheck("database", db)
}

// WithCheck adds a named dependency to the health check
func (h *SystemHandler) WithCheck(name string, p Pinger) *SystemHandler {
	if p != nil {
		h.checks[name] = p
	}
	return h
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns version and uptime
// GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Parts Catalog API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health pings every registered dependency. Any failure answers 503.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "healthy", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			logger.L(ctx).Warn("Health check failed", zap.String("check", name), zap.Error(err))
			results[name] = "error"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
		"checks": results,
	})
}

// Ping answers without touching any dependency
// GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"message":   "pong",
		"timestamp": time.Now().Format(time.RFC3339),
	}))
}
