package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"StockLens/internal/model"
)

// YahooFetcher implements Fetcher and FundamentalsFetcher using Yahoo Finance public endpoints.
type YahooFetcher struct {
	Client   *http.Client
	BaseURL  string // chart and quoteSummary host
	QuoteURL string // v7 quote host used as the degraded fundamentals source
	Now      func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, quoteURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if quoteURL == "" {
		quoteURL = baseURL
	}
	return &YahooFetcher{
		Client:   newHTTPClient(proxyURL, timeout),
		BaseURL:  baseURL,
		QuoteURL: quoteURL,
		Now:      time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the v8 chart API. Nulls decode to nil pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency  string `json:"currency"`
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// statusError is a non-200 answer; Yahoo reports unknown symbols as 404 with a JSON body.
type statusError struct {
	Code int
	Body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("yahoo: status %d, body: %.200s", e.Code, string(e.Body))
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

func (f *YahooFetcher) chartURL(symbol string, r model.Range) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	if r.Explicit() {
		q.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(r.End.Unix(), 10))
	} else {
		period := r.Period
		if period == "" {
			period = "1y"
		}
		q.Set("range", period)
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(symbol), q.Encode())
}

func (f *YahooFetcher) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{Code: resp.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// FetchHistory returns unadjusted daily OHLCV plus the adjusted close column.
// Rows with any null price or volume are dropped.
func (f *YahooFetcher) FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error) {
	series := &model.PriceSeries{Symbol: ticker, FetchedAt: f.Now()}

	var chart yahooChart
	if err := f.getJSON(ctx, f.chartURL(ticker, r), &chart); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return series, nil
		}
		return nil, err
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return series, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return series, nil
	}
	result := chart.Chart.Result[0]
	series.Currency = result.Meta.Currency
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return series, nil
	}

	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		v, ok5 := at(quote.Volume, i)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			continue
		}
		a, ok := at(adj, i)
		if !ok {
			a = math.NaN()
		}
		bars = append(bars, model.Bar{
			Date:     tradingDate(ts, result.Meta.GMTOffset),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			AdjClose: a,
			Volume:   v,
		})
	}
	series.Bars = normalizeBars(bars)
	return series, nil
}

// tradingDate maps a bar timestamp to midnight UTC of the exchange-local date.
func tradingDate(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeBars sorts ascending and keeps the last row for each date.
func normalizeBars(bars []model.Bar) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
