package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"StockLens/internal/capm"
	"StockLens/internal/digest"
	"StockLens/internal/forecast"
	"StockLens/internal/recorder"
)

// FormatDigest formats a digest run into a Telegram HTML message.
func FormatDigest(r *digest.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>StockLens digest</b> | %s\n", r.GeneratedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Benchmark: %s | Model: %s (%d days)\n\n",
		html.EscapeString(r.Options.Benchmark), html.EscapeString(r.Options.Model), r.Options.Horizon))

	for _, e := range r.Entries {
		b.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(e.Ticker)))
		if e.Snapshot != nil {
			b.WriteString("  " + snapshotLine(e.Snapshot) + "\n")
		}
		if e.CAPM != nil {
			b.WriteString("  " + capmLine(e.CAPM) + "\n")
		} else if e.CAPMErr != nil {
			b.WriteString(fmt.Sprintf("  CAPM: ⚠️ %s\n", html.EscapeString(e.CAPMErr.Error())))
		}
		if e.Forecast != nil {
			b.WriteString("  " + forecastLine(e.Forecast) + "\n")
		} else if e.ForecastErr != nil {
			b.WriteString(fmt.Sprintf("  Forecast: ⚠️ %s\n", html.EscapeString(e.ForecastErr.Error())))
		}
	}

	if r.Commentary != "" {
		b.WriteString("\n🤖 <b>Commentary</b>\n")
		b.WriteString(html.EscapeString(r.Commentary))
		b.WriteString("\n")
	}
	return b.String()
}

func snapshotLine(s *digest.Snapshot) string {
	line := fmt.Sprintf("Close %.2f | RSI %.0f | 52W %.0f%%", s.Close, s.RSI, s.Position*100)
	if d := s.Deviation(s.SMA200); !math.IsNaN(d) {
		line += fmt.Sprintf(" | vs SMA200 %+.1f%%", d)
	}
	return line
}

func capmLine(res *capm.Result) string {
	reg := res.Regression
	return fmt.Sprintf("β %.4f | α %.4f | R² %.4f | E[R] %.2f%%",
		reg.Beta, reg.Alpha, reg.RSquared, res.ExpectedReturn)
}

func forecastLine(res *forecast.Result) string {
	fc := res.Forecast
	if fc.Len() == 0 {
		return "Forecast: —"
	}
	last := fc.Len() - 1
	return fmt.Sprintf("%s → %.2f on %s (%.2f – %.2f)",
		html.EscapeString(res.Model), fc.Forecast[last], fc.Dates[last].Format("2006-01-02"), fc.Lower[last], fc.Upper[last])
}

// FormatCAPM formats one CAPM run with its interpretation.
func FormatCAPM(res *capm.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>CAPM: %s vs %s</b>\n\n", html.EscapeString(res.Ticker), html.EscapeString(res.Benchmark.Name)))
	reg := res.Regression
	b.WriteString(fmt.Sprintf("Alpha: %.4f\n", reg.Alpha))
	b.WriteString(fmt.Sprintf("Beta: %.4f (p=%.4f)\n", reg.Beta, reg.PValue))
	b.WriteString(fmt.Sprintf("Expected annual return: %.2f%% (rf %.2f%%)\n", res.ExpectedReturn, res.RiskFreeRate))
	b.WriteString(fmt.Sprintf("R²: %.4f over %d days\n\n", reg.RSquared, res.Observations))
	if n := len(res.Interpretation); n > 0 {
		b.WriteString(html.EscapeString(res.Interpretation[n-1]))
	}
	return b.String()
}

// FormatForecast formats the last rows of a forecast.
func FormatForecast(res *forecast.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔮 <b>%s forecast: %s</b> (%d days)\n\n",
		html.EscapeString(res.Model), html.EscapeString(res.Ticker), res.Horizon))
	fc := res.Forecast
	start := fc.Len() - 5
	if start < 0 {
		start = 0
	}
	for i := start; i < fc.Len(); i++ {
		b.WriteString(fmt.Sprintf("%s: %.2f (%.2f – %.2f)\n", fc.Dates[i].Format("2006-01-02"), fc.Forecast[i], fc.Lower[i], fc.Upper[i]))
	}
	if bt := res.Backtest; bt != nil {
		b.WriteString(fmt.Sprintf("\nBacktest (%d days): RMSE %.3f, R² %.3f\n", bt.Holdout, bt.RMSE, bt.RSquared))
	}
	return b.String()
}

// FormatCAPMHistory lists recorded CAPM runs, newest first.
func FormatCAPMHistory(ticker string, runs []recorder.CAPMRun) string {
	if len(runs) == 0 {
		return fmt.Sprintf("No CAPM runs recorded for %s yet.", html.EscapeString(ticker))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>CAPM history: %s</b>\n\n", html.EscapeString(ticker)))
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s %s: β %.3f | α %.5f | E[R] %.2f%% (%s)\n",
			r.RunAt.Format("2006-01-02 15:04"), html.EscapeString(r.Benchmark), r.Beta, r.Alpha, r.ExpectedReturn, strings.ToLower(r.Trigger)))
	}
	return b.String()
}

// FormatError formats a failed command.
func FormatError(what string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", what, html.EscapeString(err.Error()))
}

// HelpText lists the supported commands.
func HelpText(models []string) string {
	return "Available commands:\n" +
		"• /digest - run the watchlist digest now\n" +
		"• /capm TICKER - CAPM against the digest benchmark\n" +
		"• /history TICKER - recent recorded CAPM runs\n" +
		"• /forecast TICKER [horizon] - forecast with chart (horizon " +
		fmt.Sprintf("%d-%d", forecast.MinHorizon, forecast.MaxHorizon) + ")\n" +
		"• /help - this message\n\n" +
		"Models: " + strings.Join(models, ", ")
}
