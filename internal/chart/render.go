package chart

import (
	"errors"
	"math"
	"sort"

	"github.com/vicanso/go-charts/v2"
)

// ErrNotRenderable is returned for figures without a shared date axis, such as scatter plots.
var ErrNotRenderable = errors.New("figure has no date axis to render")

const (
	pngWidth  = 1000
	pngHeight = 600
)

// RenderPNG draws the figure's dated traces as a line chart.
// Candlesticks are drawn by their close; bands as lower and upper lines.
func RenderPNG(fig *Figure) ([]byte, error) {
	labels := axisLabels(fig)
	if len(labels) < 2 {
		return nil, ErrNotRenderable
	}

	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	var values [][]float64
	var names []string
	add := func(name string, x []string, v []float64) {
		if len(v) == 0 {
			return
		}
		values = append(values, place(pos, len(labels), x, v))
		names = append(names, name)
	}
	for _, tr := range fig.Traces {
		if len(tr.X) == 0 {
			continue
		}
		switch tr.Kind {
		case KindCandlestick:
			add(tr.Name, tr.X, tr.Close)
		case KindBand:
			add(tr.Name+" lower", tr.X, tr.Lower)
			add(tr.Name+" upper", tr.X, tr.Upper)
		default:
			add(tr.Name, tr.X, tr.Y)
		}
	}
	for _, h := range fig.HLines {
		flat := make([]float64, len(labels))
		for i := range flat {
			flat[i] = h.Y
		}
		values = append(values, flat)
		names = append(names, "")
	}
	if len(values) == 0 {
		return nil, ErrNotRenderable
	}

	yMin, yMax := bounds(values)
	for i := range values {
		values[i] = fillGaps(values[i])
	}

	split := 10
	if len(labels) < split {
		split = len(labels)
	}
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(fig.Title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: legendNames(names)}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(pngWidth),
		charts.HeightOptionFunc(pngHeight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// axisLabels is the sorted union of every trace's date labels.
// ISO dates sort lexically.
func axisLabels(fig *Figure) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, tr := range fig.Traces {
		for _, x := range tr.X {
			if _, ok := seen[x]; !ok {
				seen[x] = struct{}{}
				labels = append(labels, x)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// place spreads v over an n-slot axis at the positions of its own labels.
// Slots the trace does not cover are NaN.
func place(pos map[string]int, n int, x []string, v []float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	for i, label := range x {
		if i < len(v) {
			out[pos[label]] = v[i]
		}
	}
	return out
}

func bounds(values [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range values {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.01, 1e-6)
	}
	return lo - pad, hi + pad
}

// fillGaps carries the previous value across interior gaps. Slots before the
// first and after the last finite value become the renderer's null marker and
// are left undrawn.
func fillGaps(v []float64) []float64 {
	out := make([]float64, len(v))
	first, last := -1, -1
	for i, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	for i := range out {
		out[i] = charts.GetNullValue()
	}
	if first < 0 {
		return out
	}
	prev := v[first]
	for i := first; i <= last; i++ {
		if x := v[i]; !math.IsNaN(x) && !math.IsInf(x, 0) {
			prev = x
		}
		out[i] = prev
	}
	return out
}

func legendNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
