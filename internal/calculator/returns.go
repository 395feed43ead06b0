package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"StockLens/internal/model"
)

// MinRegressionObs is the fewest paired observations a regression accepts.
const MinRegressionObs = 3

// DailyReturns returns simple percentage changes, dropping the first row.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}

// Normalize rebases values so the first element equals 1.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || values[0] == 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / values[0]
	}
	return out
}

// BetaAlpha fits stock = alpha + beta*market by least squares.
// Both are NaN when fewer than three paired observations exist.
func BetaAlpha(market, stock []float64) (beta, alpha float64) {
	if len(market) != len(stock) || len(market) < MinRegressionObs {
		return math.NaN(), math.NaN()
	}
	alpha, beta = stat.LinearRegression(market, stock, nil, false)
	return beta, alpha
}

// OLS fits y = alpha + beta*x and reports standard errors, t statistics,
// two-sided p-values and 95% confidence intervals.
func OLS(x, y []float64) (*model.RegressionResult, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("ols: length mismatch %d != %d", len(x), len(y))
	}
	n := len(x)
	if n < MinRegressionObs {
		return nil, fmt.Errorf("ols needs at least %d observations, got %d: %w", MinRegressionObs, n, model.ErrInsufficientData)
	}

	beta, alpha := BetaAlpha(x, y)
	res := &model.RegressionResult{
		Alpha:    alpha,
		Beta:     beta,
		RSquared: stat.RSquared(x, y, nil, alpha, beta),
		N:        n,
		DF:       n - 2,
	}

	meanX := stat.Mean(x, nil)
	var sxx, sse float64
	for i := range x {
		dx := x[i] - meanX
		sxx += dx * dx
		r := y[i] - (alpha + beta*x[i])
		sse += r * r
	}
	df := float64(res.DF)
	sigma2 := sse / df
	res.ResidualStd = math.Sqrt(sigma2)

	if sxx == 0 {
		res.StdErrBeta = math.NaN()
		res.StdErrAlpha = math.NaN()
	} else {
		res.StdErrBeta = math.Sqrt(sigma2 / sxx)
		res.StdErrAlpha = math.Sqrt(sigma2 * (1/float64(n) + meanX*meanX/sxx))
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	res.TBeta = beta / res.StdErrBeta
	res.TAlpha = alpha / res.StdErrAlpha
	res.PValue = twoSided(tdist, res.TBeta)
	res.PAlpha = twoSided(tdist, res.TAlpha)

	q := tdist.Quantile(0.975)
	res.BetaCI = [2]float64{beta - q*res.StdErrBeta, beta + q*res.StdErrBeta}
	res.AlphaCI = [2]float64{alpha - q*res.StdErrAlpha, alpha + q*res.StdErrAlpha}
	return res, nil
}

func twoSided(dist distuv.StudentsT, t float64) float64 {
	if math.IsNaN(t) {
		return math.NaN()
	}
	if math.IsInf(t, 0) {
		return 0
	}
	return 2 * dist.CDF(-math.Abs(t))
}
