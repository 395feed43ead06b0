package capm

import (
	"fmt"
	"sort"

	"StockLens/internal/calculator"
	"StockLens/internal/chart"
	"StockLens/internal/model"
)

// ScatterFigure plots stock against benchmark returns with the fitted line.
func ScatterFigure(ticker, benchName string, a *Aligned, reg *model.RegressionResult) *chart.Figure {
	xs := append([]float64(nil), a.BenchReturn...)
	sort.Float64s(xs)
	fitted := make([]float64, len(xs))
	for i, x := range xs {
		fitted[i] = reg.Alpha + reg.Beta*x
	}
	return chart.New(fmt.Sprintf("CAPM Regression: %s vs %s", ticker, benchName), "Benchmark Return", "Stock Return").
		Scatter("Daily Returns", a.BenchReturn, a.StockReturn).
		XYLine("Regression Line", xs, fitted)
}

// ReturnsFigure plots both daily return series over time.
func ReturnsFigure(ticker, benchName string, a *Aligned) *chart.Figure {
	dates := a.Dates[1:]
	return chart.New("Stock vs Benchmark Returns (Daily %)", "Date", "Daily Return").
		Line(ticker+" Returns", dates, a.StockReturn, chart.DashSolid).
		Line(benchName+" Returns", dates, a.BenchReturn, chart.DashSolid)
}

// NormalizedFigure rebases both price series to 1 on the first aligned date.
func NormalizedFigure(ticker, benchName string, a *Aligned) *chart.Figure {
	return chart.New("Normalized Prices", "Date", "Growth of 1").
		Line(ticker, a.Dates, calculator.Normalize(a.Stock), chart.DashSolid).
		Line(benchName, a.Dates, calculator.Normalize(a.Bench), chart.DashSolid)
}

// Summary is the coefficient table of the regression.
func Summary(reg *model.RegressionResult) chart.Table {
	return chart.Table{
		Columns: []string{"", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]"},
		Rows: [][]any{
			{"const", chart.Round(reg.Alpha, 6), chart.Round(reg.StdErrAlpha, 6), chart.Round(reg.TAlpha, 3), chart.Round(reg.PAlpha, 4), chart.Round(reg.AlphaCI[0], 6), chart.Round(reg.AlphaCI[1], 6)},
			{"Benchmark_Return", chart.Round(reg.Beta, 4), chart.Round(reg.StdErrBeta, 4), chart.Round(reg.TBeta, 3), chart.Round(reg.PValue, 4), chart.Round(reg.BetaCI[0], 4), chart.Round(reg.BetaCI[1], 4)},
			{"R-squared", chart.Round(reg.RSquared, 4), "", "", "", "", ""},
			{"No. Observations", reg.N, "", "", "", "", ""},
			{"Df Residuals", reg.DF, "", "", "", "", ""},
		},
	}
}
