package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/breadthcore/internal/calcconfig"
	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/internal/engine"
	"github.com/wonny/breadthcore/pkg/logger"
)

// maxImportBytes caps YAML import payloads.
const maxImportBytes = 1 << 20

// ConfigHandler handles calculation config management and engine switching.
type ConfigHandler struct {
	store  calcconfig.Store
	engine *engine.Engine
	logger *logger.Logger
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(store calcconfig.Store, eng *engine.Engine, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{
		store:  store,
		engine: eng,
		logger: log,
	}
}

// List returns stored configs, newest first
// GET /api/configs?active=true
func (h *ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	configs, err := h.store.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list configs")
		respondError(w, http.StatusInternalServerError, "Failed to list configs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(configs),
		"configs": configs,
	})
}

// Get returns one config by version
// GET /api/configs/{version}
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	cfg, err := h.store.Get(r.Context(), version)
	if err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

// Create stores a new config version
// POST /api/configs
func (h *ConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cfg contracts.CalculationConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	version, err := h.store.Create(r.Context(), &cfg)
	if err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"version": version})
}

// Update clones a config with edits applied; the original version is kept
// PUT /api/configs/{version}
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	var edit contracts.CalculationConfig
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newVersion, err := h.store.Update(r.Context(), version, func(cfg *contracts.CalculationConfig) {
		cfg.Name = edit.Name
		cfg.Weights = edit.Weights
		cfg.Scaling = edit.Scaling
		cfg.Indicators = edit.Indicators
		cfg.MarketConditions = edit.MarketConditions
		cfg.CustomFormula = edit.CustomFormula
		cfg.CustomParameters = edit.CustomParameters
		cfg.IsActive = edit.IsActive
	})
	if err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"version": newVersion})
}

// Delete removes a config version
// DELETE /api/configs/{version}
func (h *ConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	if err := h.store.Delete(r.Context(), version); err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefault marks a config as its algorithm's default
// POST /api/configs/{version}/default
func (h *ConfigHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	if err := h.store.SetDefault(r.Context(), version); err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"version": version, "status": "default"})
}

// Defaults returns the built-in default config for every algorithm
// GET /api/configs/defaults
func (h *ConfigHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	defaults := make(map[contracts.AlgorithmType]*contracts.CalculationConfig, len(contracts.AlgorithmTypes))
	for _, t := range contracts.AlgorithmTypes {
		defaults[t] = calcconfig.DefaultConfig(t)
	}
	respondJSON(w, http.StatusOK, defaults)
}

// Export returns a config as YAML
// GET /api/configs/{version}/export
func (h *ConfigHandler) Export(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]

	cfg, err := h.store.Get(r.Context(), version)
	if err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	data, err := calcconfig.Export(cfg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to export config")
		respondError(w, http.StatusInternalServerError, "Failed to export config")
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import stores a config from a YAML payload
// POST /api/configs/import
func (h *ConfigHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	cfg, err := calcconfig.Import(data)
	if err != nil {
		var configErr calcconfig.ConfigurationError
		if errors.As(err, &configErr) {
			respondError(w, http.StatusBadRequest, configErr.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid YAML config")
		return
	}

	version, err := h.store.Create(r.Context(), cfg)
	if err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"version": version})
}

// GetActive returns the engine's active config
// GET /api/engine/config
func (h *ConfigHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.CurrentConfig())
}

// Activate switches the engine to a stored config version
// PUT /api/engine/config
func (h *ConfigHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Version == "" {
		respondError(w, http.StatusBadRequest, "Provide a config version")
		return
	}

	if err := h.engine.UseConfig(r.Context(), req.Version); err != nil {
		respondConfigError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, h.engine.CurrentConfig())
}

// SwitchAlgorithm switches the engine to another algorithm's default config
// PUT /api/engine/algorithm
func (h *ConfigHandler) SwitchAlgorithm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Algorithm contracts.AlgorithmType `json:"algorithm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Algorithm == "" {
		respondError(w, http.StatusBadRequest, "Provide an algorithm")
		return
	}

	if err := h.engine.SwitchAlgorithm(r.Context(), req.Algorithm); err != nil {
		respondCalculationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.engine.CurrentConfig())
}

// Algorithms describes every registered algorithm
// GET /api/algorithms
func (h *ConfigHandler) Algorithms(w http.ResponseWriter, r *http.Request) {
	type algorithmInfo struct {
		Type           contracts.AlgorithmType `json:"type"`
		Name           string                  `json:"name"`
		Description    string                  `json:"description"`
		RequiredFields []string                `json:"required_fields"`
		OptionalFields []string                `json:"optional_fields"`
	}

	algs := h.engine.Registry().List()
	infos := make([]algorithmInfo, 0, len(algs))
	for _, alg := range algs {
		infos = append(infos, algorithmInfo{
			Type:           alg.Type(),
			Name:           alg.Name(),
			Description:    alg.Description(),
			RequiredFields: alg.RequiredFields(),
			OptionalFields: alg.OptionalFields(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(infos),
		"algorithms": infos,
	})
}

// respondConfigError maps config store errors onto HTTP statuses.
func respondConfigError(w http.ResponseWriter, log *logger.Logger, err error) {
	if errors.Is(err, calcconfig.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Config version not found")
		return
	}

	var configErr calcconfig.ConfigurationError
	if errors.As(err, &configErr) {
		respondError(w, http.StatusBadRequest, configErr.Error())
		return
	}

	log.WithError(err).Error("Config operation failed")
	respondError(w, http.StatusInternalServerError, "Config operation failed")
}
