package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"StockLens/internal/analysis"
	"StockLens/internal/capm"
	"StockLens/internal/chart"
	"StockLens/internal/forecast"
	"StockLens/internal/model"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

func analysisRequest(c *gin.Context) analysis.Request {
	var indicators []string
	for _, v := range c.QueryArray("indicators") {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				indicators = append(indicators, part)
			}
		}
	}
	return analysis.Request{
		Ticker:     c.Query("ticker"),
		Period:     c.Query("period"),
		Indicators: indicators,
		Chart:      c.Query("chart"),
	}
}

func (s *Server) getAnalysis(c *gin.Context) {
	res, err := s.analysis.Analyze(c.Request.Context(), analysisRequest(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// getAnalysisChart renders the price figure, or the RSI figure with panel=rsi.
func (s *Server) getAnalysisChart(c *gin.Context) {
	res, err := s.analysis.Analyze(c.Request.Context(), analysisRequest(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	fig := res.Figure
	if c.Query("panel") == "rsi" {
		if res.RSI == nil {
			s.fail(c, model.Invalid("panel", "rsi panel needs the RSI indicator"))
			return
		}
		fig = res.RSI
	}
	s.png(c, fig)
}

func capmRequest(c *gin.Context) (capm.Request, error) {
	req := capm.Request{
		Ticker:       c.Query("ticker"),
		Benchmark:    c.Query("benchmark"),
		RiskFreeRate: capm.DefaultRiskFreeRate,
	}
	if raw, ok := c.GetQuery("rf"); ok && raw != "" {
		rf, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(rf) || math.IsInf(rf, 0) {
			return req, model.Invalid("rf", "risk-free rate must be a number in percent")
		}
		req.RiskFreeRate = rf
	}
	return req, nil
}

func (s *Server) getCAPM(c *gin.Context) {
	req, err := capmRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.capm.Run(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// getCAPMChart renders the returns (default) or normalized view. The scatter
// view has no date axis and is answered with 400.
func (s *Server) getCAPMChart(c *gin.Context) {
	req, err := capmRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	view := c.DefaultQuery("view", "returns")
	if view != "returns" && view != "normalized" && view != "scatter" {
		s.fail(c, model.Invalid("view", "must be scatter, returns or normalized"))
		return
	}
	res, err := s.capm.Run(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	switch view {
	case "scatter":
		s.png(c, res.Scatter)
	case "normalized":
		s.png(c, res.Normalized)
	default:
		s.png(c, res.Returns)
	}
}

func (s *Server) benchmarks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"benchmarks":             capm.Benchmarks,
		"default_risk_free_rate": capm.DefaultRiskFreeRate,
	})
}

func predictionRequest(c *gin.Context) (forecast.Request, error) {
	req := forecast.Request{Ticker: c.Query("ticker"), Model: c.Query("model")}
	if raw := c.Query("horizon"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil {
			return req, model.Invalid("horizon", "must be an integer")
		}
		req.Horizon = h
	}
	if raw := c.Query("backtest"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return req, model.Invalid("backtest", "must be true or false")
		}
		req.Backtest = b
	}
	return req, nil
}

// BacktestView is the JSON shape of a holdout score.
type BacktestView struct {
	Holdout  int       `json:"holdout"`
	RMSE     chart.Num `json:"rmse"`
	RSquared chart.Num `json:"r_squared"`
}

// PredictionResponse adds the optional backtest score to a forecast result.
type PredictionResponse struct {
	*forecast.Result
	Backtest *BacktestView `json:"backtest,omitempty"`
}

func (s *Server) getPrediction(c *gin.Context) {
	req, err := predictionRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.forecast.Predict(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := PredictionResponse{Result: res}
	if bt := res.Backtest; bt != nil {
		out.Backtest = &BacktestView{
			Holdout:  bt.Holdout,
			RMSE:     chart.Num(chart.Round(bt.RMSE, 3)),
			RSquared: chart.Num(chart.Round(bt.RSquared, 3)),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getPredictionChart(c *gin.Context) {
	req, err := predictionRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	req.Backtest = false
	res, err := s.forecast.Predict(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.png(c, res.Figure)
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":          s.forecast.Models(),
		"default_model":   forecast.HoltWintersName,
		"min_horizon":     forecast.MinHorizon,
		"max_horizon":     forecast.MaxHorizon,
		"default_horizon": forecast.DefaultHorizon,
	})
}

func (s *Server) png(c *gin.Context, fig *chart.Figure) {
	img, err := chart.RenderPNG(fig)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
