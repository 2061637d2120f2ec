package returns

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/domain"
)

// Handler handles HTTP requests for the returns module.
type Handler struct {
	repo *SeriesRepository
	log  zerolog.Logger
}

// NewHandler creates a new returns handler.
func NewHandler(repo *SeriesRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("component", "returns_handler").Logger(),
	}
}

// Routes mounts the module's routes onto a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Put("/{symbol}", h.HandleSave)
	r.Delete("/{symbol}", h.HandleDelete)
}

// HandleList handles GET /api/returns - lists stored series.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list return series")
		h.writeError(w, http.StatusInternalServerError, "Failed to list return series")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"series": infos,
		"count":  len(infos),
	})
}

// HandleSave handles PUT /api/returns/{symbol} - stores a return series.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var body struct {
		Returns []float64 `json:"returns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Returns) < 2 {
		h.writeError(w, http.StatusBadRequest, "A return series needs at least 2 observations")
		return
	}

	series := domain.ReturnSeries{Symbol: symbol, Returns: body.Returns}
	if err := h.repo.SaveSeries(series); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save return series")
		h.writeError(w, http.StatusInternalServerError, "Failed to save return series")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"periods": len(body.Returns),
	})
}

// HandleDelete handles DELETE /api/returns/{symbol}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.repo.DeleteSeries(symbol); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"deleted": true,
	})
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
