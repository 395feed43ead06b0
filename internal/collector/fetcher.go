package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"StockLens/internal/model"
)

// Fetcher loads daily price history for one ticker.
type Fetcher interface {
	Name() string
	FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error)
}

// MacroFetcher loads a single-column macroeconomic series by key.
type MacroFetcher interface {
	Name() string
	FetchMacro(ctx context.Context, key string, r model.Range) (*model.BenchmarkSeries, error)
}

// FundamentalsFetcher loads a quote/fundamentals snapshot.
type FundamentalsFetcher interface {
	Name() string
	FetchFundamentals(ctx context.Context, ticker string) (model.Fundamentals, error)
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
