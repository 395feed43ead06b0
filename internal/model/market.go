package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Bar is one daily OHLCV row. AdjClose is NaN when the provider has no adjusted column.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// PriceSeries is a date-ordered, date-unique run of daily bars for one symbol.
type PriceSeries struct {
	Symbol    string
	Currency  string
	Bars      []Bar
	FetchedAt time.Time
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

func (s *PriceSeries) Empty() bool { return s.Len() == 0 }

func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// AdjustedCloses prefers the adjusted close and falls back to close row by row.
func (s *PriceSeries) AdjustedCloses() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		if math.IsNaN(b.AdjClose) || b.AdjClose == 0 {
			out[i] = b.Close
		} else {
			out[i] = b.AdjClose
		}
	}
	return out
}

// Benchmark reduces the series to its adjusted-close column.
func (s *PriceSeries) Benchmark() *BenchmarkSeries {
	bs := &BenchmarkSeries{Symbol: s.Symbol, Points: make([]Point, len(s.Bars))}
	adj := s.AdjustedCloses()
	for i, b := range s.Bars {
		bs.Points[i] = Point{Date: b.Date, Close: adj[i]}
	}
	return bs
}

// Point is a single dated close.
type Point struct {
	Date  time.Time
	Close float64
}

// BenchmarkSeries is a single-column close series for an index or macro series.
type BenchmarkSeries struct {
	Symbol string
	Points []Point
}

func (s *BenchmarkSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

func (s *BenchmarkSeries) Empty() bool { return s.Len() == 0 }

// Range selects a history window: a lookback period or an explicit start/end.
// When both are set the explicit dates win.
type Range struct {
	Period string
	Start  time.Time
	End    time.Time
}

func PeriodRange(period string) Range { return Range{Period: period} }

func DateRange(start, end time.Time) Range { return Range{Start: start, End: end} }

func (r Range) Explicit() bool { return !r.Start.IsZero() && !r.End.IsZero() }

// Key is the canonical descriptor used in cache keys.
func (r Range) Key() string {
	if r.Explicit() {
		return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
	}
	return "period=" + r.Period
}

// Since returns the earliest date the range covers relative to now.
// A "max" period or unknown period yields the zero time.
func (r Range) Since(now time.Time) time.Time {
	if r.Explicit() {
		return r.Start
	}
	switch r.Period {
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "3mo":
		return now.AddDate(0, -3, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "1y":
		return now.AddDate(-1, 0, 0)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "10y":
		return now.AddDate(-10, 0, 0)
	}
	return time.Time{}
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// CacheKey builds the memoization key for a fetch kind, ticker and range.
func CacheKey(kind, ticker string, r Range) string {
	return fmt.Sprintf("%s|%s|%s", kind, NormalizeTicker(ticker), r.Key())
}
