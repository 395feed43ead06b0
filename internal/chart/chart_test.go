package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vicanso/go-charts/v2"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestValues_NaNAsNull(t *testing.T) {
	data, err := json.Marshal(Values{1.5, math.NaN(), math.Inf(1), 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null,null,2]`, string(data))
}

func TestFigure_JSON(t *testing.T) {
	fig := New("AAPL", "Date", "Price").
		Line("Close", dates(2), []float64{1, 2}, DashSolid).
		HLine(70, DashDot)
	data, err := json.Marshal(fig)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	traces := decoded["traces"].([]any)
	require.Len(t, traces, 1)
	tr := traces[0].(map[string]any)
	assert.Equal(t, "line", tr["kind"])
	assert.Equal(t, []any{"2024-01-01", "2024-01-02"}, tr["x"])
	assert.NotContains(t, tr, "open")
}

func TestTable_JSON(t *testing.T) {
	tbl := Table{Columns: []string{"Date", "Close"}, Rows: [][]any{{"2024-01-01", math.NaN()}, {"2024-01-02", 1.25}}}
	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["Date","Close"],"rows":[["2024-01-01",null],["2024-01-02",1.25]]}`, string(data))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.234, 2))
	assert.Equal(t, 1.235, Round(1.2349, 3))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestRenderPNG(t *testing.T) {
	d := dates(30)
	y := make([]float64, 30)
	for i := range y {
		y[i] = 100 + float64(i)
	}
	fig := New("Forecast", "Date", "Price").
		Line("Close", d, y, DashSolid).
		Band("CI", d[20:], y[20:], y[20:]).
		HLine(110, DashDot)
	fig.Traces[0].Y[0] = math.NaN()

	img, err := RenderPNG(fig)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")), "expected PNG signature")
}

func TestRenderPNG_ScatterNotRenderable(t *testing.T) {
	fig := New("CAPM", "Market", "Stock").Scatter("Returns", []float64{1, 2}, []float64{1, 2})
	_, err := RenderPNG(fig)
	assert.True(t, errors.Is(err, ErrNotRenderable))
}

func TestFillGaps(t *testing.T) {
	null := charts.GetNullValue()
	got := fillGaps([]float64{math.NaN(), 2, math.NaN(), 4, math.NaN()})
	assert.Equal(t, []float64{null, 2, 2, 4, null}, got)

	got = fillGaps([]float64{math.NaN(), math.NaN()})
	assert.Equal(t, []float64{null, null}, got)
}

func TestRenderPNG_ForecastExtendsAxis(t *testing.T) {
	d := dates(230)
	history, future := d[:200], d[200:]
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	fc := make([]float64, 30)
	for i := range fc {
		fc[i] = 400
	}
	fig := New("AAPL forecast", "Date", "Price").
		Line("Historical", history, closes, DashSolid).
		Line("Forecast", future, fc, DashDot).
		Band("95% CI", future, fc, fc)

	labels := axisLabels(fig)
	require.Len(t, labels, 230)
	assert.Equal(t, DateLabels(history)[0], labels[0])
	assert.Equal(t, DateLabels(future)[29], labels[229])
	assert.Equal(t, "2024-08-17", labels[229])

	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	placed := place(pos, len(labels), fig.Traces[1].X, fig.Traces[1].Y)
	assert.True(t, math.IsNaN(placed[150]), "forecast must not cover history")
	assert.True(t, math.IsNaN(placed[199]))
	assert.Equal(t, 400.0, placed[200])
	assert.Equal(t, 400.0, placed[229])

	filled := fillGaps(placed)
	assert.Equal(t, charts.GetNullValue(), filled[0])
	assert.Equal(t, 400.0, filled[229])

	img, err := RenderPNG(fig)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}

func TestAxisLabels_UnionSorted(t *testing.T) {
	d := dates(4)
	fig := New("t", "Date", "y").
		Line("b", d[2:], []float64{3, 4}, DashSolid).
		Line("a", d[:3], []float64{1, 2, 3}, DashSolid)
	assert.Equal(t, DateLabels(d), axisLabels(fig))
}
