package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/breadthcore/internal/api/handlers"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

// requestsPerSecond bounds the process-wide request rate. Burst is double.
const requestsPerSecond = 50

// RouterDeps collects everything the router wires together. WriteLimiter may
// be nil when Redis is disabled.
type RouterDeps struct {
	Score        *handlers.ScoreHandler
	Backfill     *handlers.BackfillHandler
	Config       *handlers.ConfigHandler
	System       *handlers.SystemHandler
	WriteLimiter *redis.RateLimiter
	Logger       *logger.Logger
}

// NewRouter creates and configures the HTTP router.
// Route registration happens in this function and nowhere else.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	log := deps.Logger

	// Health check and the backfill progress stream sit outside /api.
	r.HandleFunc("/health", deps.System.Health).Methods("GET")
	r.HandleFunc("/ws/backfill", deps.Backfill.Stream).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Scoring endpoints
	api.HandleFunc("/score", deps.Score.Calculate).Methods("POST")
	api.HandleFunc("/score/latest", deps.Score.GetLatest).Methods("GET")
	api.HandleFunc("/score/history", deps.Score.GetHistory).Methods("GET")
	api.HandleFunc("/backfill", deps.Backfill.Run).Methods("POST")

	// Algorithm and engine endpoints
	api.HandleFunc("/algorithms", deps.Config.Algorithms).Methods("GET")
	api.HandleFunc("/engine/config", deps.Config.GetActive).Methods("GET")
	api.HandleFunc("/engine/config", deps.Config.Activate).Methods("PUT")
	api.HandleFunc("/engine/algorithm", deps.Config.SwitchAlgorithm).Methods("PUT")

	// Config endpoints. Fixed paths register before the {version} wildcard.
	// Mutations share the distributed write limit.
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return writeLimit(deps.WriteLimiter, log, h)
	}
	api.HandleFunc("/configs", deps.Config.List).Methods("GET")
	api.HandleFunc("/configs", limited(deps.Config.Create)).Methods("POST")
	api.HandleFunc("/configs/defaults", deps.Config.Defaults).Methods("GET")
	api.HandleFunc("/configs/import", limited(deps.Config.Import)).Methods("POST")
	api.HandleFunc("/configs/{version}", deps.Config.Get).Methods("GET")
	api.HandleFunc("/configs/{version}", limited(deps.Config.Update)).Methods("PUT")
	api.HandleFunc("/configs/{version}", limited(deps.Config.Delete)).Methods("DELETE")
	api.HandleFunc("/configs/{version}/default", limited(deps.Config.SetDefault)).Methods("POST")
	api.HandleFunc("/configs/{version}/export", deps.Config.Export).Methods("GET")

	// Telemetry endpoints
	api.HandleFunc("/telemetry", deps.System.Telemetry).Methods("GET")
	api.HandleFunc("/telemetry", deps.System.ClearTelemetry).Methods("DELETE")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(throttleMiddleware(rate.NewLimiter(requestsPerSecond, 2*requestsPerSecond)))

	return r
}
