package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ARIMA is an ARIMA(P,1,0) model without a constant, fitted by conditional
// least squares on the first differences.
type ARIMA struct {
	P int
}

func (a ARIMA) Name() string { return ARIMAName }

func (a ARIMA) Fit(_ []time.Time, y []float64, horizon int) (*Raw, error) {
	p := a.P
	if p <= 0 {
		p = 5
	}
	if len(y) < 2*p+2 {
		return nil, fmt.Errorf("need at least %d observations, got %d", 2*p+2, len(y))
	}
	dy := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		dy[i-1] = y[i] - y[i-1]
	}
	rows := len(dy) - p

	X := mat.NewDense(rows, p, nil)
	target := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + p
		for j := 0; j < p; j++ {
			X.Set(r, j, dy[t-1-j])
		}
		target.SetVec(r, dy[t])
	}
	var phiVec mat.VecDense
	if err := phiVec.SolveVec(X, target); err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	phi := make([]float64, p)
	for j := range phi {
		phi[j] = phiVec.AtVec(j)
	}

	var sse float64
	for r := 0; r < rows; r++ {
		fitted := 0.0
		for j := 0; j < p; j++ {
			fitted += phi[j] * X.At(r, j)
		}
		e := target.AtVec(r) - fitted
		sse += e * e
	}
	sigma2 := sse / float64(rows)
	if math.IsNaN(sigma2) {
		return nil, errors.New("non-finite residual variance")
	}

	// recursive forecasts of the differences, integrated back to levels
	hist := append([]float64(nil), dy...)
	level := y[len(y)-1]
	point := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		next := 0.0
		for j := 0; j < p; j++ {
			next += phi[j] * hist[len(hist)-1-j]
		}
		hist = append(hist, next)
		level += next
		point[h] = level
	}

	psi := integratedPsi(phi, horizon)
	z := distuv.UnitNormal.Quantile(0.975)
	out := &Raw{Forecast: point, Lower: make([]float64, horizon), Upper: make([]float64, horizon)}
	var cum float64
	for h := 0; h < horizon; h++ {
		cum += psi[h] * psi[h]
		half := z * math.Sqrt(sigma2*cum)
		out.Lower[h] = point[h] - half
		out.Upper[h] = point[h] + half
	}
	return out, nil
}

// integratedPsi returns the MA(∞) weights of (1 - φ(B))(1 - B) y = e.
func integratedPsi(phi []float64, n int) []float64 {
	p := len(phi)
	a := make([]float64, p+1)
	a[0] = 1 + phi[0]
	for j := 1; j < p; j++ {
		a[j] = phi[j] - phi[j-1]
	}
	a[p] = -phi[p-1]

	psi := make([]float64, n)
	if n == 0 {
		return psi
	}
	psi[0] = 1
	for j := 1; j < n; j++ {
		for i := 1; i <= len(a) && i <= j; i++ {
			psi[j] += a[i-1] * psi[j-i]
		}
	}
	return psi
}
