package notifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/capm"
	"StockLens/internal/digest"
	"StockLens/internal/forecast"
	"StockLens/internal/logging"
	"StockLens/internal/model"
)

const getMe = `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"lens","username":"lens_bot"}}`
const sent = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`

// fakeTelegram answers getMe and fails the first failures send calls.
func fakeTelegram(t *testing.T, failures int32) (*TelegramNotifier, *atomic.Int32, *[]string) {
	t.Helper()
	var calls atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = io.WriteString(w, getMe)
			return
		}
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if n <= failures {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":429,"description":"Too Many Requests"}`)
			return
		}
		_, _ = io.WriteString(w, sent)
	}))
	t.Cleanup(srv.Close)

	n, err := newTelegramNotifier("TOKEN", "7", srv.URL+"/bot%s/%s", "", logging.Discard())
	require.NoError(t, err)
	n.backoff = time.Millisecond
	return n, &calls, &bodies
}

func TestNewTelegramNotifier_BadChatID(t *testing.T) {
	_, err := newTelegramNotifier("TOKEN", "not-a-number", "http://127.0.0.1:1/bot%s/%s", "", logging.Discard())
	assert.Error(t, err)
}

func TestSendWithRetry_RecoversAfterFailures(t *testing.T) {
	n, calls, bodies := fakeTelegram(t, 2)
	require.NoError(t, n.SendWithRetry(context.Background(), "<b>hi</b>", 3))
	assert.EqualValues(t, 3, calls.Load())
	assert.Contains(t, (*bodies)[2], "parse_mode=HTML")
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	n, calls, _ := fakeTelegram(t, 100)
	err := n.SendWithRetry(context.Background(), "hi", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.EqualValues(t, 3, calls.Load())
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	n, _, _ := fakeTelegram(t, 100)
	n.backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "hi", 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSendPhotoWithRetry(t *testing.T) {
	n, calls, _ := fakeTelegram(t, 0)
	require.NoError(t, n.SendPhotoWithRetry(context.Background(), "AAPL.png", []byte("\x89PNG"), "<b>AAPL</b>", 1))
	assert.EqualValues(t, 1, calls.Load())
}

func sampleReport() *digest.Report {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	return &digest.Report{
		GeneratedAt: day,
		Options:     digest.Options{Benchmark: "S&P 500 (US)", Model: forecast.MovingAverageName, Horizon: 2},
		Entries: []*digest.Entry{
			{
				Ticker:   "AAPL",
				Snapshot: &digest.Snapshot{Close: 195, SMA200: 150, RSI: 61.4, Position: 0.8},
				CAPM: &capm.Result{
					Ticker:         "AAPL",
					Benchmark:      capm.Benchmarks[0],
					Regression:     &model.RegressionResult{Alpha: 0.0001, Beta: 1.2345, RSquared: 0.5},
					ExpectedReturn: 11.5,
				},
				Forecast: &forecast.Result{
					Ticker: "AAPL", Model: forecast.MovingAverageName, Horizon: 2,
					Forecast: &model.ForecastResult{
						Dates:    []time.Time{day, day.AddDate(0, 0, 1)},
						Forecast: []float64{190, 191},
						Lower:    []float64{180, 181},
						Upper:    []float64{200, 201},
					},
				},
			},
			{Ticker: "B&B", CAPMErr: errors.New("no data <here>")},
		},
		Commentary: "Markets & more",
	}
}

func TestFormatDigest(t *testing.T) {
	msg := FormatDigest(sampleReport())
	assert.Contains(t, msg, "StockLens digest</b> | 2024-06-10")
	assert.Contains(t, msg, "S&amp;P 500 (US)")
	assert.Contains(t, msg, "Close 195.00 | RSI 61 | 52W 80% | vs SMA200 +30.0%")
	assert.Contains(t, msg, "β 1.2345")
	assert.Contains(t, msg, "E[R] 11.50%")
	assert.Contains(t, msg, "Moving Average → 191.00 on 2024-06-11 (181.00 – 201.00)")
	assert.Contains(t, msg, "<b>B&amp;B</b>")
	assert.Contains(t, msg, "no data &lt;here&gt;")
	assert.Contains(t, msg, "Markets &amp; more")
}

func TestFormatCAPMAndForecast(t *testing.T) {
	r := sampleReport()
	c := r.Entries[0].CAPM
	c.Interpretation = capm.Interpretation(c.Regression.Beta)
	assert.Contains(t, FormatCAPM(c), "amplifies market moves")

	f := r.Entries[0].Forecast
	f.Backtest = &model.BacktestResult{Holdout: 2, RMSE: 1.5, RSquared: 0.25}
	out := FormatForecast(f)
	assert.Contains(t, out, "2024-06-10: 190.00")
	assert.Contains(t, out, "RMSE 1.500")
}

func TestHelpText(t *testing.T) {
	h := HelpText([]string{"Holt-Winters", "ARIMA"})
	assert.Contains(t, h, "/forecast TICKER [horizon]")
	assert.Contains(t, h, "/history TICKER")
	assert.Contains(t, h, "7-60")
	assert.Contains(t, h, "Holt-Winters, ARIMA")
}
