package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/capm"
	"StockLens/internal/collector"
	"StockLens/internal/digest"
	"StockLens/internal/forecast"
	"StockLens/internal/logging"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
)

type fakeNotifier struct {
	mu     sync.Mutex
	texts  []string
	photos []string
	err    error
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeNotifier) SendPhotoWithRetry(_ context.Context, name string, _ []byte, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, name)
	return f.err
}

type fakeCommentator struct {
	summary string
	err     error
}

func (f *fakeCommentator) Comment(_ context.Context, summary string) (string, error) {
	f.summary = summary
	if f.err != nil {
		return "", f.err
	}
	return "Tech looks steady.", nil
}

func newScheduler(t *testing.T, mock *collector.MockFetcher, c Commentator) (*Scheduler, *fakeNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	mock.End = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	log := logging.Discard()
	col := collector.NewCollector(mock, mock, nil, log)
	fs := forecast.NewService(col, nil, log)
	b := digest.NewBuilder(col, capm.NewService(col, log), fs, digest.Options{
		Benchmark:    "S&P 500 (US)",
		RiskFreeRate: 2,
		Model:        forecast.MovingAverageName,
		Horizon:      10,
	}, log)

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	n := &fakeNotifier{}
	return NewScheduler(context.Background(), b, fs, n, rec, c, []string{"AAPL", "MSFT"}, log), n, rec
}

func TestRunDigestNow(t *testing.T) {
	c := &fakeCommentator{}
	s, n, rec := newScheduler(t, &collector.MockFetcher{}, c)

	s.RunDigestNow()

	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "StockLens digest")
	assert.Contains(t, n.texts[0], "Tech looks steady.")
	assert.Equal(t, []string{"AAPL_forecast.png", "MSFT_forecast.png"}, n.photos)
	assert.Contains(t, c.summary, "AAPL: beta")

	runs, err := rec.RecentCAPM("AAPL", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, TriggerSchedule, runs[0].Trigger)
	assert.Equal(t, "^GSPC", runs[0].Benchmark)
}

func TestRunDigestNow_CommentaryFailureStillSends(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{}, &fakeCommentator{err: errors.New("quota")})

	s.RunDigestNow()

	require.Len(t, n.texts, 1)
	assert.NotContains(t, n.texts[0], "Commentary")
}

func TestRunDigestNow_WithoutCommentator(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{Data: map[string][]model.Bar{}}, nil)

	s.RunDigestNow()

	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "⚠️")
	assert.Empty(t, n.photos)
}

func TestRegisterDigest(t *testing.T) {
	s, _, _ := newScheduler(t, &collector.MockFetcher{}, nil)
	require.NoError(t, s.RegisterDigest("0 30 16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterDigest("not a cron spec"))
}

func TestHandleCommand_CAPM(t *testing.T) {
	s, _, rec := newScheduler(t, &collector.MockFetcher{}, nil)

	reply := s.HandleCommand(context.Background(), "/capm@lens_bot msft")
	assert.Contains(t, reply, "CAPM: MSFT vs S&amp;P 500 (US)")

	runs, err := rec.RecentCAPM("MSFT", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, TriggerCommand, runs[0].Trigger)

	assert.Contains(t, s.HandleCommand(context.Background(), "/capm"), "Usage")

	history := s.HandleCommand(context.Background(), "/history msft")
	assert.Contains(t, history, "CAPM history: MSFT")
	assert.Contains(t, history, "^GSPC")
	assert.Contains(t, history, "(command)")
	assert.Contains(t, s.HandleCommand(context.Background(), "/history AAPL"), "No CAPM runs")
}

func TestHandleCommand_Forecast(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{}, nil)

	reply := s.HandleCommand(context.Background(), "/forecast AAPL 14")
	assert.Contains(t, reply, "Moving Average forecast: AAPL</b> (14 days)")
	assert.Contains(t, reply, "Backtest")
	assert.Equal(t, []string{"AAPL_forecast.png"}, n.photos)

	assert.Contains(t, s.HandleCommand(context.Background(), "/forecast AAPL soon"), "whole number")
	assert.Contains(t, s.HandleCommand(context.Background(), "/forecast AAPL 90"), "failed")
}

func TestHandleCommand_Help(t *testing.T) {
	s, _, _ := newScheduler(t, &collector.MockFetcher{}, nil)
	for _, cmd := range []string{"/help", "/start", "hello", ""} {
		assert.Contains(t, s.HandleCommand(context.Background(), cmd), "Available commands", cmd)
	}
}

func TestHandleCommand_Digest(t *testing.T) {
	s, n, _ := newScheduler(t, &collector.MockFetcher{}, nil)
	assert.Empty(t, s.HandleCommand(context.Background(), "/digest"))
	assert.Len(t, n.texts, 1)
}
