package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"StockLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// It serves prices, macro series and fundamentals.
type MockFetcher struct {
	Price        float64
	Days         int
	Data         map[string][]model.Bar
	Fundamentals map[string]model.Fundamentals
	Err          error
	End          time.Time
	Delay        time.Duration

	calls atomic.Int32
}

// CallCount reports how many upstream calls were made.
func (m *MockFetcher) CallCount() int { return int(m.calls.Load()) }

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, ticker string, r model.Range) (*model.PriceSeries, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	series := &model.PriceSeries{Symbol: ticker, Currency: "USD", FetchedAt: time.Now()}
	if bars, ok := m.Data[ticker]; ok {
		series.Bars = bars
		return series, nil
	}
	if m.Data != nil {
		return series, nil
	}
	series.Bars = generateMockBars(ticker, m.basePrice(), m.days(r), m.end())
	return series, nil
}

func (m *MockFetcher) FetchMacro(ctx context.Context, key string, r model.Range) (*model.BenchmarkSeries, error) {
	series, err := m.FetchHistory(ctx, key, r)
	if err != nil {
		return nil, err
	}
	return series.Benchmark(), nil
}

func (m *MockFetcher) FetchFundamentals(_ context.Context, ticker string) (model.Fundamentals, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.Fundamentals{}, m.Err
	}
	if fd, ok := m.Fundamentals[ticker]; ok {
		return fd, nil
	}
	mcap := m.basePrice() * 1e9
	pe := 25.0
	return model.Fundamentals{Symbol: ticker, Available: true, Source: "mock", Currency: "USD", MarketCap: &mcap, TrailingPE: &pe}, nil
}

func (m *MockFetcher) basePrice() float64 {
	if m.Price > 0 {
		return m.Price
	}
	return 100
}

func (m *MockFetcher) days(r model.Range) int {
	if m.Days > 0 {
		return m.Days
	}
	end := m.end()
	since := r.Since(end)
	if since.IsZero() {
		return 2520
	}
	return businessDaysBetween(since, end)
}

func (m *MockFetcher) end() time.Time {
	if !m.End.IsZero() {
		return m.End
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// generateMockBars produces a deterministic wavy uptrend on business days ending at end.
// The ticker seeds the phase so different symbols are not perfectly correlated.
func generateMockBars(ticker string, basePrice float64, count int, end time.Time) []model.Bar {
	seed := 0.0
	for _, r := range ticker {
		seed += float64(r)
	}
	dates := make([]time.Time, 0, count)
	for d := end; len(dates) < count; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}

	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		x := float64(i)
		p := basePrice * (1 + x*0.0004 + 0.03*math.Sin(x/9+seed) + 0.01*math.Sin(x*1.7+seed))
		bars[i] = model.Bar{
			Date:     dates[count-1-i],
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			AdjClose: p,
			Volume:   1000000,
		}
	}
	return bars
}

func businessDaysBetween(from, to time.Time) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
