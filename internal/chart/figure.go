// Package chart describes dashboard figures as data and renders them to PNG.
package chart

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Trace kinds.
const (
	KindLine        = "line"
	KindScatter     = "scatter"
	KindCandlestick = "candlestick"
	KindBand        = "band"
)

// Line dash styles.
const (
	DashSolid = "solid"
	DashDot   = "dot"
)

const dateLayout = "2006-01-02"

// Values is a numeric column that encodes NaN and ±Inf as JSON null.
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, len(v)*8+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendNum(buf, f)
	}
	return append(buf, ']'), nil
}

// Num is a scalar that encodes NaN and ±Inf as JSON null.
type Num float64

func (n Num) MarshalJSON() ([]byte, error) {
	return appendNum(nil, float64(n)), nil
}

func appendNum(buf []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, f, 'f', -1, 64)
}

// Trace is one plotted series.
type Trace struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Dash string   `json:"dash,omitempty"`
	X    []string `json:"x,omitempty"`
	XNum Values   `json:"x_num,omitempty"`
	Y    Values   `json:"y,omitempty"`

	Open  Values `json:"open,omitempty"`
	High  Values `json:"high,omitempty"`
	Low   Values `json:"low,omitempty"`
	Close Values `json:"close,omitempty"`

	Lower Values `json:"lower,omitempty"`
	Upper Values `json:"upper,omitempty"`
}

// HLine is a horizontal guide such as the RSI 70/30 levels.
type HLine struct {
	Y    float64 `json:"y"`
	Dash string  `json:"dash"`
}

// Figure is a renderable chart specification.
type Figure struct {
	Title  string  `json:"title"`
	XLabel string  `json:"x_label,omitempty"`
	YLabel string  `json:"y_label,omitempty"`
	Traces []Trace `json:"traces"`
	HLines []HLine `json:"hlines,omitempty"`
}

func New(title, xLabel, yLabel string) *Figure {
	return &Figure{Title: title, XLabel: xLabel, YLabel: yLabel}
}

// Line adds a dated line trace.
func (f *Figure) Line(name string, dates []time.Time, y []float64, dash string) *Figure {
	f.Traces = append(f.Traces, Trace{Name: name, Kind: KindLine, Dash: dash, X: DateLabels(dates), Y: y})
	return f
}

// Scatter adds an x/y point cloud.
func (f *Figure) Scatter(name string, x, y []float64) *Figure {
	f.Traces = append(f.Traces, Trace{Name: name, Kind: KindScatter, XNum: x, Y: y})
	return f
}

// XYLine adds a numeric-x line, used for fitted regression lines.
func (f *Figure) XYLine(name string, x, y []float64) *Figure {
	f.Traces = append(f.Traces, Trace{Name: name, Kind: KindLine, XNum: x, Y: y})
	return f
}

// Candlestick adds an OHLC trace.
func (f *Figure) Candlestick(name string, dates []time.Time, open, high, low, closes []float64) *Figure {
	f.Traces = append(f.Traces, Trace{
		Name: name, Kind: KindCandlestick, X: DateLabels(dates),
		Open: open, High: high, Low: low, Close: closes,
	})
	return f
}

// Band adds a shaded interval between lower and upper.
func (f *Figure) Band(name string, dates []time.Time, lower, upper []float64) *Figure {
	f.Traces = append(f.Traces, Trace{Name: name, Kind: KindBand, X: DateLabels(dates), Lower: lower, Upper: upper})
	return f
}

func (f *Figure) HLine(y float64, dash string) *Figure {
	f.HLines = append(f.HLines, HLine{Y: y, Dash: dash})
	return f
}

// DateLabels formats dates as YYYY-MM-DD.
func DateLabels(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(dateLayout)
	}
	return out
}

// Table is a tabular view with pre-formatted or numeric cells.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON maps float cells through Num so NaN becomes null.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(r))
		for j, c := range r {
			if f, ok := c.(float64); ok {
				row[j] = Num(f)
			} else {
				row[j] = c
			}
		}
		rows[i] = row
	}
	type plain struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	return json.Marshal(plain{Columns: t.Columns, Rows: rows})
}

// Round rounds to the given number of decimals, leaving NaN untouched.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// RoundAll rounds every element.
func RoundAll(values []float64, decimals int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Round(v, decimals)
	}
	return out
}
