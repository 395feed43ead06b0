package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/analysis"
	"StockLens/internal/capm"
	"StockLens/internal/collector"
	"StockLens/internal/forecast"
	"StockLens/internal/logging"
	"StockLens/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mock *collector.MockFetcher) *gin.Engine {
	if mock.End.IsZero() {
		mock.End = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	}
	log := logging.Discard()
	c := collector.NewCollector(mock, mock, nil, log, mock)
	srv := New(
		analysis.NewService(c, log),
		capm.NewService(c, log),
		forecast.NewService(c, nil, log),
		log,
	)
	return srv.Router()
}

func get(t *testing.T, r http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthAndRequestID(t *testing.T) {
	r := newRouter(&collector.MockFetcher{})

	w := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestViewsHomeAbout(t *testing.T) {
	r := newRouter(&collector.MockFetcher{})

	body := decode(t, get(t, r, "/api/v1/views"))
	assert.Len(t, body["views"], 5)
	assert.Equal(t, "home", body["default"])

	for _, path := range []string{"/api/v1/home", "/api/v1/about", "/api/v1/capm/benchmarks", "/api/v1/prediction/models"} {
		w := get(t, r, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	models := decode(t, get(t, r, "/api/v1/prediction/models"))
	assert.Len(t, models["models"], 4)
}

func TestAnalysis(t *testing.T) {
	r := newRouter(&collector.MockFetcher{})

	w := get(t, r, "/api/v1/analysis?ticker=aapl&period=1y&indicators=SMA%20(20),RSI")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "AAPL", body["ticker"])
	assert.NotNil(t, body["rsi"])

	w = get(t, r, "/api/v1/analysis?ticker=aapl&period=2y")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "period", decode(t, w)["field"])

	w = get(t, r, "/api/v1/analysis/chart.png?ticker=aapl&period=1y")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = get(t, r, "/api/v1/analysis/chart.png?ticker=aapl&period=1y&panel=rsi")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysis_EmptyIsWarning(t *testing.T) {
	r := newRouter(&collector.MockFetcher{Data: map[string][]model.Bar{}})
	w := get(t, r, "/api/v1/analysis?ticker=NOPE")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["warning"], "no data")
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	r := newRouter(&collector.MockFetcher{Err: errors.New("connection reset")})
	w := get(t, r, "/api/v1/prediction?ticker=AAPL")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCAPM(t *testing.T) {
	r := newRouter(&collector.MockFetcher{})

	w := get(t, r, "/api/v1/capm?ticker=MSFT&benchmark=Nasdaq%20100%20(US)&rf=3.5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 3.5, body["risk_free_rate"])
	assert.Contains(t, body, "metrics")

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/capm?ticker=MSFT&rf=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/capm?ticker=MSFT&benchmark=FTSE").Code)

	w = get(t, r, "/api/v1/capm/chart.png?ticker=MSFT&view=normalized")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/capm/chart.png?ticker=MSFT&view=scatter").Code)
}

func TestCAPM_InsufficientData(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bar := func(d int, c float64) model.Bar {
		return model.Bar{Date: start.AddDate(0, 0, d), Close: c, AdjClose: c}
	}
	r := newRouter(&collector.MockFetcher{Data: map[string][]model.Bar{
		"AAPL":  {bar(0, 1), bar(1, 2)},
		"^GSPC": {bar(0, 5), bar(1, 6)},
	}})
	w := get(t, r, "/api/v1/capm?ticker=AAPL")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPrediction(t *testing.T) {
	r := newRouter(&collector.MockFetcher{})

	w := get(t, r, "/api/v1/prediction?ticker=AAPL&model=Moving%20Average&horizon=10&backtest=true")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Moving Average", body["model"])
	assert.EqualValues(t, 10, body["horizon"])
	require.NotNil(t, body["backtest"])
	table := body["table"].(map[string]any)
	assert.Len(t, table["rows"], 10)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/prediction?ticker=AAPL&horizon=100").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/prediction?ticker=AAPL&horizon=ten").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/prediction?ticker=AAPL&model=LSTM").Code)

	w = get(t, r, "/api/v1/prediction/chart.png?ticker=AAPL&model=Moving%20Average")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}
