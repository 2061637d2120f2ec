package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/returns"
	"github.com/quantex/analytics/internal/modules/risk"
)

// Handler handles HTTP requests for the analysis façade.
type Handler struct {
	service    *Service
	seriesRepo *returns.SeriesRepository
	snapshots  *SnapshotRepository
	log        zerolog.Logger
}

// NewHandler creates a new analysis handler.
func NewHandler(
	service *Service,
	seriesRepo *returns.SeriesRepository,
	snapshots *SnapshotRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:    service,
		seriesRepo: seriesRepo,
		snapshots:  snapshots,
		log:        log.With().Str("component", "analysis_handler").Logger(),
	}
}

// Routes mounts the façade's routes onto a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/analysis/run", h.HandleRun)
	r.Get("/analysis/latest", h.HandleLatest)
	r.Post("/optimize", h.HandleOptimize)
	r.Post("/frontier", h.HandleFrontier)
	r.Post("/risk/report", h.HandleRiskReport)
}

// wire-format request shared by the POST endpoints. Returns data may be
// supplied inline or referenced by symbol from the returns repository.
type analysisRequest struct {
	Symbols        []string             `json:"symbols,omitempty"`
	ReturnsData    map[string][]float64 `json:"returns_data,omitempty"`
	Objective      string               `json:"objective"`
	Constraints    constraintsWire      `json:"constraints"`
	Confidence     *float64             `json:"confidence,omitempty"`
	FrontierPoints int                  `json:"frontier_points,omitempty"`
	Weights        domain.WeightVector  `json:"weights,omitempty"`
	NumPoints      int                  `json:"num_points,omitempty"`
}

type constraintsWire struct {
	AllowShort        bool     `json:"allow_short"`
	TargetReturn      *float64 `json:"target_return,omitempty"`
	MaxWeightPerAsset *float64 `json:"max_weight_per_asset,omitempty"`
	RiskFreeRate      *float64 `json:"risk_free_rate,omitempty"`
}

func (c constraintsWire) toConstraints() optimization.Constraints {
	cons := optimization.DefaultConstraints()
	cons.AllowShort = c.AllowShort
	cons.TargetReturn = c.TargetReturn
	cons.MaxWeightPerAsset = c.MaxWeightPerAsset
	if c.RiskFreeRate != nil {
		cons.RiskFreeRate = *c.RiskFreeRate
	}
	return cons
}

// HandleRun handles POST /api/analysis/run - the full façade pipeline.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	req, matrix, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	objective, err := optimization.ParseObjective(req.Objective)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := DefaultOptions()
	opts.FrontierPoints = req.FrontierPoints
	if req.Confidence != nil {
		opts.Risk.Confidence = *req.Confidence
	}
	cons := req.Constraints.toConstraints()
	opts.Risk.RiskFreeRate = cons.RiskFreeRate

	result, err := h.service.RunAnalysis(r.Context(), matrix, objective, cons, opts)
	if err != nil {
		h.writeComponentError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleOptimize handles POST /api/optimize - weights only.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	req, matrix, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	objective, err := optimization.ParseObjective(req.Objective)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Optimize(r.Context(), matrix, objective, req.Constraints.toConstraints())
	if err != nil {
		h.writeComponentError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleFrontier handles POST /api/frontier - efficient frontier sweep.
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	req, matrix, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	sweep, err := h.service.Frontier(r.Context(), matrix, req.Constraints.toConstraints(), req.NumPoints)
	if err != nil {
		h.writeComponentError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sweep)
}

// HandleRiskReport handles POST /api/risk/report - metrics for supplied weights.
func (h *Handler) HandleRiskReport(w http.ResponseWriter, r *http.Request) {
	req, matrix, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if len(req.Weights) == 0 {
		h.writeError(w, http.StatusBadRequest, "weights are required")
		return
	}

	opts := risk.DefaultOptions()
	if req.Confidence != nil {
		opts.Confidence = *req.Confidence
	}
	if req.Constraints.RiskFreeRate != nil {
		opts.RiskFreeRate = *req.Constraints.RiskFreeRate
	}

	report, err := h.service.RiskReport(matrix, req.Weights, opts)
	if err != nil {
		h.writeComponentError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleLatest handles GET /api/analysis/latest - last persisted snapshot.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, http.StatusNotFound, "Snapshot persistence is disabled")
		return
	}

	result, err := h.snapshots.Latest()
	if err != nil {
		h.writeError(w, http.StatusNotFound, "No analysis has been run yet")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// decodeRequest parses the request body and resolves the returns matrix,
// either from inline data or from the returns repository.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*analysisRequest, *domain.ReturnsMatrix, bool) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, nil, false
	}

	var matrix *domain.ReturnsMatrix
	var err error
	if len(req.ReturnsData) > 0 {
		matrix, err = domain.NewReturnsMatrix(req.ReturnsData)
	} else {
		matrix, err = h.seriesRepo.LoadMatrix(req.Symbols)
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}

	return &req, matrix, true
}

// writeComponentError maps the core's error taxonomy onto HTTP statuses,
// preserving the error kind and message for the presentation layer.
func (h *Handler) writeComponentError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientDataError
	var infeasible *domain.InfeasibleConstraintsError
	var degenerate *domain.DegenerateVarianceError
	var cancelled *domain.CancelledError

	switch {
	case errors.As(err, &insufficient):
		h.writeErrorKind(w, http.StatusBadRequest, "insufficient_data", err.Error(), "")
	case errors.As(err, &infeasible):
		h.writeErrorKind(w, http.StatusUnprocessableEntity, "infeasible_constraints", err.Error(), infeasible.Constraint)
	case errors.As(err, &degenerate):
		h.writeErrorKind(w, http.StatusUnprocessableEntity, "degenerate_variance", err.Error(), "")
	case errors.As(err, &cancelled):
		h.writeErrorKind(w, http.StatusServiceUnavailable, "cancelled", err.Error(), "")
	default:
		h.log.Error().Err(err).Msg("Analysis failed")
		h.writeErrorKind(w, http.StatusInternalServerError, "internal", err.Error(), "")
	}
}

func (h *Handler) writeErrorKind(w http.ResponseWriter, status int, kind, message, constraint string) {
	payload := map[string]interface{}{
		"error": message,
		"kind":  kind,
	}
	if constraint != "" {
		payload["constraint"] = constraint
	}
	h.writeJSON(w, status, payload)
}

// HTTP helpers

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
