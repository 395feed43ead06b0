package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"StockLens/internal/analysis"
	"StockLens/internal/capm"
	"StockLens/internal/forecast"
)

// View is one entry of the navigation.
type View struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Path   string   `json:"path"`
	Inputs []string `json:"inputs,omitempty"`
}

var navigation = []View{
	{ID: "home", Title: "🏠 Home", Path: "/api/v1/home"},
	{ID: "analysis", Title: "🔍 Stock Analysis", Path: "/api/v1/analysis", Inputs: []string{"ticker", "period", "indicators", "chart"}},
	{ID: "prediction", Title: "📉 Stock Prediction", Path: "/api/v1/prediction", Inputs: []string{"ticker", "horizon", "model", "backtest"}},
	{ID: "capm", Title: "📊 CAPM Dashboard", Path: "/api/v1/capm", Inputs: []string{"ticker", "benchmark", "rf"}},
	{ID: "about", Title: "ℹ️ About", Path: "/api/v1/about"},
}

func (s *Server) views(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"views":   navigation,
		"default": navigation[0].ID,
		"options": gin.H{
			"periods":    analysis.Periods,
			"indicators": analysis.Indicators,
			"charts":     []string{analysis.ChartLine, analysis.ChartCandlestick},
			"benchmarks": capm.Benchmarks,
			"models":     s.forecast.Models(),
			"horizon":    gin.H{"min": forecast.MinHorizon, "max": forecast.MaxHorizon, "default": forecast.DefaultHorizon},
		},
	})
}

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":    "📈 Stock Forecasting & Analysis",
		"subtitle": "Interactive dashboard for stock insights, CAPM analysis, and forecasting.",
		"features": []string{
			"Explore historical stock performance with interactive charts",
			"Analyze technical indicators (SMA, EMA, RSI, Bollinger Bands)",
			"Perform CAPM analysis (Beta & Expected Return)",
			"Forecast future stock prices with Holt-Winters, ARIMA, Moving Average & Prophet models",
		},
	})
}

func (s *Server) about(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title": "ℹ️ About this Project",
		"features": []string{
			"Data ingestion from Yahoo Finance & FRED",
			"Technical & fundamental stock analysis",
			"CAPM analytics (Beta & Expected Return)",
			"Time-series forecasting with ARIMA, Holt-Winters, Moving Average & Prophet",
			"Backtesting with RMSE & R2",
			"Scheduled Telegram digest with CAPM and forecast summaries",
		},
		"stack": gin.H{
			"http":          "gin",
			"charts":        "go-charts (PNG)",
			"data_sources":  "Yahoo Finance chart/quote APIs, FRED",
			"statistics":    "gonum",
			"indicators":    "cinar/indicator",
			"cache":         "in-memory or Redis",
			"notifications": "Telegram",
		},
	})
}
