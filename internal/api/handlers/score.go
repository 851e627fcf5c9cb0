package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/breadthcore/internal/algorithms"
	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/internal/normalize"
	"github.com/wonny/breadthcore/internal/records"
	"github.com/wonny/breadthcore/pkg/logger"
	"github.com/wonny/breadthcore/pkg/redis"
)

const dateLayout = "2006-01-02"

// errBadRequest marks a request the caller can fix.
var errBadRequest = errors.New("bad request")

// RecordSource provides stored raw breadth records.
type RecordSource interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]*contracts.RawBreadthRecord, error)
	FetchDate(ctx context.Context, date time.Time) (*contracts.RawBreadthRecord, error)
}

// ResultStore persists scoring results.
type ResultStore interface {
	Save(ctx context.Context, result *contracts.BreadthResult) error
	SaveBatch(ctx context.Context, results []*contracts.BreadthResult) error
	Latest(ctx context.Context, algorithm contracts.AlgorithmType) (*contracts.BreadthResult, error)
	Range(ctx context.Context, algorithm contracts.AlgorithmType, from, to time.Time) ([]*contracts.BreadthResult, error)
}

// ScoreHandler handles single-record scoring and result lookups.
type ScoreHandler struct {
	engine   *engine.Engine
	records  RecordSource
	results  ResultStore
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewScoreHandler creates a new score handler. cache may be nil when Redis
// is disabled.
func NewScoreHandler(
	eng *engine.Engine,
	recordSrc RecordSource,
	resultStore ResultStore,
	cache *redis.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		engine:   eng,
		records:  recordSrc,
		results:  resultStore,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// ScoreRequest scores either an inline record (Fields) or a stored record
// identified by Date.
type ScoreRequest struct {
	Date   string            `json:"date,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Save   bool              `json:"save,omitempty"`
}

// Calculate scores one record with the engine's active configuration
// POST /api/score
func (h *ScoreHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	raw, date, err := h.resolveRecord(r, &req)
	if errors.Is(err, errBadRequest) {
		respondError(w, http.StatusBadRequest, "Provide either inline fields or a date in YYYY-MM-DD form")
		return
	}
	if errors.Is(err, records.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No record stored for date")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load record")
		respondError(w, http.StatusInternalServerError, "Failed to load record")
		return
	}

	window, err := h.buildWindow(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load historical window")
		respondError(w, http.StatusInternalServerError, "Failed to load historical window")
		return
	}

	result, err := h.engine.Calculate(ctx, raw, nil, window)
	if err != nil {
		respondCalculationError(w, err)
		return
	}

	if req.Save && h.results != nil {
		if err := h.results.Save(ctx, result); err != nil {
			h.logger.WithError(err).Error("Failed to persist result")
			respondError(w, http.StatusInternalServerError, "Calculated but failed to persist result")
			return
		}
		h.cacheResult(ctx, result)
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLatest returns the most recent stored result for an algorithm
// GET /api/score/latest?algorithm=six_factor
func (h *ScoreHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alg := h.algorithmParam(r)
	if !alg.Known() {
		respondError(w, http.StatusBadRequest, "Unknown algorithm")
		return
	}

	if h.cache != nil {
		var cached contracts.BreadthResult
		hit, err := h.cache.Get(ctx, redis.LatestResultKey(string(alg)), &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Result cache lookup failed")
		} else if hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	result, err := h.results.Latest(ctx, alg)
	if errors.Is(err, records.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No results stored for algorithm")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest result")
		respondError(w, http.StatusInternalServerError, "Failed to load latest result")
		return
	}

	h.cacheResult(ctx, result)
	respondJSON(w, http.StatusOK, result)
}

// GetHistory returns stored results in a date range, ascending
// GET /api/score/history?algorithm=six_factor&from=2024-01-01&to=2024-03-31
func (h *ScoreHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alg := h.algorithmParam(r)
	if !alg.Known() {
		respondError(w, http.StatusBadRequest, "Unknown algorithm")
		return
	}

	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}

	results, err := h.results.Range(ctx, alg, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load result history")
		respondError(w, http.StatusInternalServerError, "Failed to load result history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"algorithm": alg,
		"count":     len(results),
		"results":   results,
	})
}

// resolveRecord picks the record to score: inline fields win, otherwise the
// stored record for the requested date.
func (h *ScoreHandler) resolveRecord(r *http.Request, req *ScoreRequest) (*contracts.RawBreadthRecord, time.Time, error) {
	if len(req.Fields) > 0 {
		fields := make(map[string]any, len(req.Fields))
		for k, v := range req.Fields {
			fields[k] = v
		}
		if req.Date != "" {
			fields["date"] = req.Date
		}
		raw := &contracts.RawBreadthRecord{Fields: fields}
		date, _ := time.Parse(dateLayout, req.Date)
		return raw, date, nil
	}

	if req.Date == "" {
		return nil, time.Time{}, errBadRequest
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, time.Time{}, errBadRequest
	}
	raw, err := h.records.FetchDate(r.Context(), date)
	if err != nil {
		return nil, time.Time{}, err
	}
	return raw, date, nil
}

// buildWindow assembles the causal history strictly before date. A zero date
// yields an empty window.
func (h *ScoreHandler) buildWindow(ctx context.Context, date time.Time) (*contracts.HistoricalWindow, error) {
	window := &contracts.HistoricalWindow{}
	if date.IsZero() {
		return window, nil
	}

	before := date.AddDate(0, 0, -1)

	raws, err := h.records.FetchRange(ctx, time.Time{}, before)
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		rec, err := normalize.Standardize(raw)
		if err != nil {
			continue // unparseable history rows do not block scoring
		}
		window.Records = append(window.Records, rec)
	}

	if h.results != nil {
		alg := h.engine.CurrentConfig().Algorithm
		prior, err := h.results.Range(ctx, alg, time.Time{}, before)
		if err != nil {
			return nil, err
		}
		window.Results = prior
	}

	return window, nil
}

func (h *ScoreHandler) cacheResult(ctx context.Context, result *contracts.BreadthResult) {
	if h.cache == nil {
		return
	}
	alg := string(result.Metadata.AlgorithmUsed)
	if err := h.cache.Set(ctx, redis.LatestResultKey(alg), result, h.cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache latest result")
	}
	key := redis.ResultKey(alg, result.Date.Format(dateLayout))
	if err := h.cache.Set(ctx, key, result, h.cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache dated result")
	}
}

func (h *ScoreHandler) algorithmParam(r *http.Request) contracts.AlgorithmType {
	if v := r.URL.Query().Get("algorithm"); v != "" {
		return contracts.AlgorithmType(v)
	}
	return h.engine.CurrentConfig().Algorithm
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, true
	}
	date, err := time.Parse(dateLayout, v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name+" date (expected YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

// respondCalculationError maps engine errors onto HTTP statuses.
func respondCalculationError(w http.ResponseWriter, err error) {
	var validationErr algorithms.ValidationError
	if errors.As(err, &validationErr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Record validation failed",
			"reasons": validationErr.Reasons,
		})
		return
	}

	var configErr calcconfig.ConfigurationError
	if errors.As(err, &configErr) {
		respondError(w, http.StatusBadRequest, configErr.Error())
		return
	}

	var unknownErr algorithms.UnknownAlgorithmError
	if errors.As(err, &unknownErr) {
		respondError(w, http.StatusBadRequest, unknownErr.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, "Calculation failed")
}
