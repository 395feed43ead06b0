package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockLens/internal/model"
)

// FREDFetcher implements MacroFetcher using the keyless fredgraph CSV export.
type FREDFetcher struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

// NewFREDFetcher creates a new fetcher with optional proxy support.
func NewFREDFetcher(baseURL, proxyURL string, timeout time.Duration) *FREDFetcher {
	return &FREDFetcher{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		Now:     time.Now,
	}
}

func (f *FREDFetcher) Name() string { return "fred" }

// FetchMacro downloads series key (e.g. SP500) and keeps the rows inside r.
func (f *FREDFetcher) FetchMacro(ctx context.Context, key string, r model.Range) (*model.BenchmarkSeries, error) {
	endpoint := fmt.Sprintf("%s/graph/fredgraph.csv?id=%s", f.BaseURL, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fred fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fred: status %d, body: %s", resp.StatusCode, string(body))
	}

	points, err := parseFREDCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	return &model.BenchmarkSeries{Symbol: key, Points: filterRange(points, r, f.Now())}, nil
}

// parseFREDCSV reads "DATE,VALUE" rows. Missing observations are written as "." and skipped.
func parseFREDCSV(r io.Reader) ([]model.Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("fred: failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	points := make([]model.Point, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		raw := strings.TrimSpace(rec[1])
		if raw == "" || raw == "." {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("fred: bad date %q: %w", rec[0], err)
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("fred: bad value %q: %w", raw, err)
		}
		points = append(points, model.Point{Date: date, Close: val})
	}
	return points, nil
}

func filterRange(points []model.Point, r model.Range, now time.Time) []model.Point {
	since := r.Since(now)
	out := make([]model.Point, 0, len(points))
	for _, p := range points {
		if p.Date.Before(since) {
			continue
		}
		if r.Explicit() && p.Date.After(r.End) {
			continue
		}
		out = append(out, p)
	}
	return out
}
