package forecast

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MovingAverage forecasts a flat line at the trailing-window mean with a ±Band interval.
type MovingAverage struct {
	Window int
	Band   float64
}

func (MovingAverage) Name() string { return MovingAverageName }

func (m MovingAverage) Fit(_ []time.Time, y []float64, horizon int) (*Raw, error) {
	if len(y) == 0 {
		return nil, errors.New("empty series")
	}
	start := len(y) - m.Window
	if start < 0 {
		start = 0
	}
	mean := stat.Mean(y[start:], nil)

	out := &Raw{
		Forecast: make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
	}
	for h := range out.Forecast {
		out.Forecast[h] = mean
		out.Lower[h] = mean * (1 - m.Band)
		out.Upper[h] = mean * (1 + m.Band)
	}
	return out, nil
}
