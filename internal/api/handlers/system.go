package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/pkg/database"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

// SystemHandler exposes health and engine telemetry.
type SystemHandler struct {
	engine *engine.Engine
	db     *database.DB
	redis  *redis.Client
	logger *logger.Logger
}

// NewSystemHandler creates a new system handler. db and redisClient may be
// nil in tooling contexts.
func NewSystemHandler(eng *engine.Engine, db *database.DB, redisClient *redis.Client, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		engine: eng,
		db:     db,
		redis:  redisClient,
		logger: log,
	}
}

// Health reports service and dependency status
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "ok",
		"service":   "breadthcore-api",
		"algorithm": h.engine.CurrentConfig().Algorithm,
	}
	healthy := true

	if h.db != nil {
		dbStatus, err := h.db.HealthCheck(ctx)
		if err != nil {
			healthy = false
			status["database"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			status["database"] = dbStatus
		}
	}

	if h.redis != nil && h.redis.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.redis.Redis().Ping(pingCtx).Err(); err != nil {
			// Redis is a cache, not a dependency; degraded but up.
			status["redis"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			status["redis"] = map[string]string{"status": "ok"}
		}
	}

	code := http.StatusOK
	if !healthy {
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}

// Telemetry returns recent calculation telemetry, oldest first
// GET /api/telemetry
func (h *SystemHandler) Telemetry(w http.ResponseWriter, r *http.Request) {
	t := h.engine.Telemetry()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":            t.Len(),
		"average_duration": t.AverageDuration().String(),
		"entries":          t.Entries(),
	})
}

// ClearTelemetry empties the telemetry buffer
// DELETE /api/telemetry
func (h *SystemHandler) ClearTelemetry(w http.ResponseWriter, r *http.Request) {
	h.engine.Telemetry().Clear()
	w.WriteHeader(http.StatusNoContent)
}
