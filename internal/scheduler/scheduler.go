package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"StockLens/internal/capm"
	"StockLens/internal/chart"
	"StockLens/internal/digest"
	"StockLens/internal/forecast"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
)

const (
	TriggerSchedule = "SCHEDULE"
	TriggerCommand  = "COMMAND"

	sendRetries  = 3
	historyLimit = 5
)

// Notifier delivers digest messages and charts.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhotoWithRetry(ctx context.Context, name string, png []byte, caption string, maxRetries int) error
}

// Commentator produces optional commentary for a digest.
type Commentator interface {
	Comment(ctx context.Context, summary string) (string, error)
}

// Scheduler manages the digest cron task and chat commands.
type Scheduler struct {
	Cron        *cron.Cron
	Builder     *digest.Builder
	Forecast    *forecast.Service
	Notifier    Notifier
	Recorder    recorder.Recorder
	Commentator Commentator
	Tickers     []string
	Ctx         context.Context

	log *logrus.Entry
}

// NewScheduler creates a new Scheduler. commentator may be nil.
func NewScheduler(ctx context.Context, b *digest.Builder, fs *forecast.Service, n Notifier, rec recorder.Recorder, commentator Commentator, tickers []string, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Builder:     b,
		Forecast:    fs,
		Notifier:    n,
		Recorder:    rec,
		Commentator: commentator,
		Tickers:     tickers,
		Ctx:         ctx,
		log:         logger.WithField("component", "scheduler"),
	}
}

// RegisterDigest registers the digest task on a six-field cron spec.
func (s *Scheduler) RegisterDigest(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunDigestNow executes the digest immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	s.runDigest(TriggerSchedule)
}

func (s *Scheduler) runDigest(trigger string) {
	log := s.log.WithFields(logrus.Fields{"trigger": trigger, "tickers": len(s.Tickers)})
	log.Info("running digest")
	start := time.Now()

	report, err := s.Builder.Build(s.Ctx, s.Tickers)
	if err != nil {
		log.WithError(err).Error("digest aborted")
		return
	}

	if s.Commentator != nil {
		text, err := s.Commentator.Comment(s.Ctx, report.Summary())
		if err != nil {
			log.WithError(err).Warn("commentary unavailable")
		} else {
			report.Commentary = text
		}
	}

	s.trySend(notifier.FormatDigest(report))
	for _, e := range report.Entries {
		if len(e.Chart) > 0 {
			s.trySendPhoto(e.Ticker+"_forecast.png", e.Chart, fmt.Sprintf("<b>%s</b> %s forecast", e.Ticker, e.Forecast.Model))
		}
		s.record(trigger, e.CAPM, e.Forecast)
	}
	log.WithField("elapsed", time.Since(start).String()).Info("digest sent")
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText(s.Forecast.Models())
	}
	// "/capm@MyBot AAPL" addresses the bot in group chats.
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]

	switch name {
	case "/digest":
		s.runDigest(TriggerCommand)
		return ""
	case "/capm":
		if len(args) == 0 {
			return "Usage: /capm TICKER"
		}
		return s.capmCommand(ctx, args[0])
	case "/forecast":
		if len(args) == 0 {
			return "Usage: /forecast TICKER [horizon]"
		}
		horizon := s.Builder.Options().Horizon
		if len(args) > 1 {
			h, err := strconv.Atoi(args[1])
			if err != nil {
				return "Horizon must be a whole number of days."
			}
			horizon = h
		}
		return s.forecastCommand(ctx, args[0], horizon)
	case "/history":
		if len(args) == 0 {
			return "Usage: /history TICKER"
		}
		ticker := strings.ToUpper(args[0])
		runs, err := s.Recorder.RecentCAPM(ticker, historyLimit)
		if err != nil {
			return notifier.FormatError("History for "+ticker, err)
		}
		return notifier.FormatCAPMHistory(ticker, runs)
	default:
		return notifier.HelpText(s.Forecast.Models())
	}
}

func (s *Scheduler) capmCommand(ctx context.Context, ticker string) string {
	res, err := s.Builder.CAPM(ctx, ticker)
	if err != nil {
		return notifier.FormatError("CAPM for "+strings.ToUpper(ticker), err)
	}
	s.record(TriggerCommand, res, nil)
	return notifier.FormatCAPM(res)
}

func (s *Scheduler) forecastCommand(ctx context.Context, ticker string, horizon int) string {
	res, err := s.Forecast.Predict(ctx, forecast.Request{
		Ticker:   ticker,
		Model:    s.Builder.Options().Model,
		Horizon:  horizon,
		Backtest: true,
	})
	if err != nil {
		return notifier.FormatError("Forecast for "+strings.ToUpper(ticker), err)
	}
	if img, err := chart.RenderPNG(res.Figure); err == nil {
		s.trySendPhoto(res.Ticker+"_forecast.png", img, fmt.Sprintf("<b>%s</b> %s forecast", res.Ticker, res.Model))
	} else {
		s.log.WithError(err).Warn("forecast chart not rendered")
	}
	s.record(TriggerCommand, nil, res)
	return notifier.FormatForecast(res)
}

func (s *Scheduler) record(trigger string, c *capm.Result, f *forecast.Result) {
	now := time.Now()
	if c != nil {
		reg := c.Regression
		if err := s.Recorder.RecordCAPM(&recorder.CAPMRun{
			RunAt: now, Trigger: trigger, Ticker: c.Ticker, Benchmark: c.Benchmark.Symbol,
			RiskFreeRate: c.RiskFreeRate, Alpha: reg.Alpha, Beta: reg.Beta, RSquared: reg.RSquared,
			BetaPValue: reg.PValue, ExpectedReturn: c.ExpectedReturn, Observations: c.Observations,
		}); err != nil {
			s.log.WithError(err).Error("record capm run")
		}
	}
	if f != nil && f.Forecast.Len() > 0 {
		fc := f.Forecast
		last := fc.Len() - 1
		run := &recorder.ForecastRun{
			RunAt: now, Trigger: trigger, Ticker: f.Ticker, Model: f.Model, Horizon: f.Horizon,
			LastDate: f.LastDate, EndDate: fc.Dates[last],
			EndValue: fc.Forecast[last], EndLower: fc.Lower[last], EndUpper: fc.Upper[last],
		}
		if bt := f.Backtest; bt != nil {
			run.RMSE, run.RSquared = &bt.RMSE, &bt.RSquared
		}
		if err := s.Recorder.RecordForecast(run); err != nil {
			s.log.WithError(err).Error("record forecast run")
		}
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}

func (s *Scheduler) trySendPhoto(name string, png []byte, caption string) {
	if err := s.Notifier.SendPhotoWithRetry(s.Ctx, name, png, caption, sendRetries); err != nil {
		s.log.WithError(err).Error("send chart")
	}
}
