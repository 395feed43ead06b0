package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"StockLens/internal/chart"
	"StockLens/internal/model"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WarningResponse is returned with 200 when the provider had no rows.
type WarningResponse struct {
	Warning   string `json:"warning"`
	RequestID string `json:"request_id,omitempty"`
}

// fail maps domain errors onto status codes. An empty result is a warning,
// not a failure.
func (s *Server) fail(c *gin.Context, err error) {
	rid := c.GetString(ctxRequestID)

	var ve *model.ValidationError
	var fe *model.FetchError
	var mfe *model.ModelFitError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field, RequestID: rid})
	case errors.Is(err, model.ErrEmptyResult):
		c.JSON(http.StatusOK, WarningResponse{Warning: err.Error(), RequestID: rid})
	case errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrEmptyForecast),
		errors.As(err, &mfe):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), RequestID: rid})
	case errors.Is(err, chart.ErrNotRenderable):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), RequestID: rid})
	case errors.As(err, &fe):
		s.log.WithFields(logrus.Fields{"request_id": rid, "ticker": fe.Ticker}).WithError(fe.Err).Warn("upstream fetch failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), RequestID: rid})
	default:
		s.log.WithField("request_id", rid).WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", RequestID: rid})
	}
}
