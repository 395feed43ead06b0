package forecast

import (
	"strings"
	"time"
)

// Model names accepted by the prediction view, in display order.
const (
	HoltWintersName   = "Holt-Winters"
	ARIMAName         = "ARIMA"
	MovingAverageName = "Moving Average"
	ProphetName       = "Prophet"
)

// Raw is a model's unnormalized output.
type Raw struct {
	Forecast []float64
	Lower    []float64
	Upper    []float64
}

// Model fits a close-price history and forecasts horizon business days ahead.
// dates are ascending and aligned with values.
type Model interface {
	Name() string
	Fit(dates []time.Time, values []float64, horizon int) (*Raw, error)
}

// Registry resolves model names to variants.
type Registry struct {
	models []Model
}

// DefaultRegistry holds the four built-in models.
func DefaultRegistry() *Registry {
	return NewRegistry(HoltWinters{}, ARIMA{P: 5}, MovingAverage{Window: 20, Band: 0.05}, NewProphet())
}

func NewRegistry(models ...Model) *Registry {
	return &Registry{models: models}
}

// Lookup matches case-insensitively.
func (r *Registry) Lookup(name string) (Model, bool) {
	name = strings.TrimSpace(name)
	for _, m := range r.models {
		if strings.EqualFold(m.Name(), name) {
			return m, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.models))
	for i, m := range r.models {
		out[i] = m.Name()
	}
	return out
}
