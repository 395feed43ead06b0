// Package server exposes the dashboard views over HTTP with gin.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"StockLens/internal/analysis"
	"StockLens/internal/capm"
	"StockLens/internal/forecast"
)

// Server holds the view services behind the routes.
type Server struct {
	analysis *analysis.Service
	capm     *capm.Service
	forecast *forecast.Service
	log      *logrus.Entry
}

func New(a *analysis.Service, c *capm.Service, f *forecast.Service, logger logrus.FieldLogger) *Server {
	return &Server{analysis: a, capm: c, forecast: f, log: logger.WithField("component", "server")}
}

// Router builds the gin engine with middleware and every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(s.log), recovery(s.log))

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/healthz", s.health)
		v1.GET("/views", s.views)
		v1.GET("/home", s.home)
		v1.GET("/about", s.about)

		an := v1.Group("/analysis")
		{
			an.GET("", s.getAnalysis)
			an.GET("/chart.png", s.getAnalysisChart)
		}

		cp := v1.Group("/capm")
		{
			cp.GET("", s.getCAPM)
			cp.GET("/chart.png", s.getCAPMChart)
			cp.GET("/benchmarks", s.benchmarks)
		}

		pr := v1.Group("/prediction")
		{
			pr.GET("", s.getPrediction)
			pr.GET("/chart.png", s.getPredictionChart)
			pr.GET("/models", s.models)
		}
	}
	return r
}
