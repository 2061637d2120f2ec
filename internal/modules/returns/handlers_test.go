package returns

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/pkg/logger"
)

func setupTestRouter(t *testing.T) (*chi.Mux, *SeriesRepository) {
	t.Helper()

	repo := setupTestRepo(t)
	handler := NewHandler(repo, logger.New(logger.Config{Level: "error", Pretty: false}))

	router := chi.NewRouter()
	router.Route("/api/returns", func(r chi.Router) {
		handler.Routes(r)
	})
	return router, repo
}

func TestHandleSave(t *testing.T) {
	router, repo := setupTestRouter(t)

	body := `{"returns": [0.01, -0.02, 0.03]}`
	req := httptest.NewRequest(http.MethodPut, "/api/returns/AAPL", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "AAPL", response["symbol"])
	assert.Equal(t, float64(3), response["periods"])

	matrix, err := repo.LoadMatrix([]string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 3, matrix.Periods())
}

func TestHandleSave_TooShort(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/returns/AAPL", strings.NewReader(`{"returns": [0.01]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSave_InvalidBody(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/returns/AAPL", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList(t *testing.T) {
	router, repo := setupTestRouter(t)

	require.NoError(t, repo.SaveSeries(domain.ReturnSeries{
		Symbol:  "MSFT",
		Returns: []float64{0.01, 0.02},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/returns/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Series []SeriesInfo `json:"series"`
		Count  int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "MSFT", response.Series[0].Symbol)
}

func TestHandleDelete(t *testing.T) {
	router, repo := setupTestRouter(t)

	require.NoError(t, repo.SaveSeries(domain.ReturnSeries{
		Symbol:  "AAPL",
		Returns: []float64{0.01, 0.02},
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/returns/AAPL", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second delete hits a missing series.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/returns/AAPL", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
