package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-host dashboard only; no cross-origin deployment
	},
}

// BackfillHandler runs historical recalculations over stored records.
type BackfillHandler struct {
	engine  *engine.Engine
	records RecordSource
	results ResultStore
	limiter *redis.RateLimiter
	logger  *logger.Logger
}

// NewBackfillHandler creates a new backfill handler. limiter may be nil when
// Redis is disabled.
func NewBackfillHandler(
	eng *engine.Engine,
	recordSrc RecordSource,
	resultStore ResultStore,
	limiter *redis.RateLimiter,
	log *logger.Logger,
) *BackfillHandler {
	return &BackfillHandler{
		engine:  eng,
		records: recordSrc,
		results: resultStore,
		limiter: limiter,
		logger:  log,
	}
}

// BackfillRequest bounds a historical run. Zero dates mean unbounded.
type BackfillRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	Save      bool   `json:"save,omitempty"`
}

// BackfillResponse summarizes a finished run. Individual results are
// persisted, not echoed.
type BackfillResponse struct {
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Cancelled  bool    `json:"cancelled"`
	Duration   string  `json:"duration"`
	Throughput float64 `json:"throughput"`
	Saved      bool    `json:"saved"`
}

// Run executes a historical recalculation
// POST /api/backfill
func (h *BackfillHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.allow(w, r) {
		return
	}

	var req BackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts, err := h.options(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.engine.CalculateHistoricalFrom(ctx, h.records, opts)
	if err != nil {
		h.logger.WithError(err).Error("Backfill failed")
		respondError(w, http.StatusInternalServerError, "Backfill failed")
		return
	}

	saved := false
	if req.Save && h.results != nil && len(summary.Results) > 0 {
		if err := h.results.SaveBatch(ctx, summary.Results); err != nil {
			h.logger.WithError(err).Error("Failed to persist backfill results")
			respondError(w, http.StatusInternalServerError, "Backfill completed but persistence failed")
			return
		}
		saved = true
	}

	respondJSON(w, http.StatusOK, summaryResponse(summary, saved))
}

// Stream executes a historical recalculation over a websocket, pushing a
// progress frame every 10 records and a summary frame at the end
// GET /ws/backfill
func (h *BackfillHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.allow(w, r) {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	var req BackfillRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeFrame(conn, "error", map[string]string{"error": "Invalid request frame"})
		return
	}

	opts, err := h.options(&req)
	if err != nil {
		h.writeFrame(conn, "error", map[string]string{"error": err.Error()})
		return
	}

	// A failed write means the client is gone; stop the run.
	opts.OnProgress = func(p engine.Progress) bool {
		return h.writeFrame(conn, "progress", p)
	}

	summary, err := h.engine.CalculateHistoricalFrom(ctx, h.records, opts)
	if err != nil {
		h.logger.WithError(err).Error("Backfill stream failed")
		h.writeFrame(conn, "error", map[string]string{"error": "Backfill failed"})
		return
	}

	saved := false
	if req.Save && h.results != nil && len(summary.Results) > 0 {
		if err := h.results.SaveBatch(ctx, summary.Results); err != nil {
			h.logger.WithError(err).Error("Failed to persist backfill results")
			h.writeFrame(conn, "error", map[string]string{"error": "Backfill completed but persistence failed"})
			return
		}
		saved = true
	}

	h.writeFrame(conn, "summary", summaryResponse(summary, saved))
}

// allow enforces the backfill rate limit when a limiter is configured.
func (h *BackfillHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	ok, _, err := h.limiter.Allow(r.Context(), redis.BackfillRateLimit)
	if err != nil {
		h.logger.WithError(err).Warn("Backfill rate limit check failed")
		return true // limiter outage never blocks the API
	}
	if !ok {
		w.Header().Set("Retry-After", "10")
		respondError(w, http.StatusTooManyRequests, "Backfill already running or requested too recently")
		return false
	}
	return true
}

func (h *BackfillHandler) options(req *BackfillRequest) (engine.HistoricalOptions, error) {
	opts := engine.HistoricalOptions{BatchSize: req.BatchSize}

	if req.StartDate != "" {
		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return opts, errInvalidDate("start_date")
		}
		opts.StartDate = start
	}
	if req.EndDate != "" {
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return opts, errInvalidDate("end_date")
		}
		opts.EndDate = end
	}
	return opts, nil
}

func (h *BackfillHandler) writeFrame(conn *websocket.Conn, frameType string, payload interface{}) bool {
	frame := map[string]interface{}{
		"type":    frameType,
		"payload": payload,
	}
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.WithError(err).Debug("Websocket write failed, client gone")
		return false
	}
	return true
}

func summaryResponse(summary *engine.HistoricalSummary, saved bool) BackfillResponse {
	return BackfillResponse{
		Successful: summary.Successful,
		Failed:     summary.Failed,
		Cancelled:  summary.Cancelled,
		Duration:   summary.Duration.String(),
		Throughput: summary.Throughput,
		Saved:      saved,
	}
}

type errInvalidDate string

func (e errInvalidDate) Error() string {
	return "Invalid " + string(e) + " (expected YYYY-MM-DD)"
}
