package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/cache"
	"StockLens/internal/logging"
	"StockLens/internal/model"
)

const chartBody = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","gmtoffset":-14400},
"timestamp":[1704288600,1704202200,1704375000,1704375000,1704461400],
"indicators":{"quote":[{"open":[11,10,12,12.5,null],"high":[11.5,10.5,12.5,13,14],"low":[10.5,9.5,11.5,12,13],
"close":[11.2,10.2,12.2,12.8,13.5],"volume":[100,200,300,350,400]}],
"adjclose":[{"adjclose":[11.1,10.1,null,12.7,13.4]}]}}],"error":null}}`

func newYahooServer(t *testing.T, handler http.HandlerFunc) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooFetcher(srv.URL, srv.URL, "", 5*time.Second)
}

func TestYahooFetcher_FetchHistory(t *testing.T) {
	var gotQuery string
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartBody))
	})

	series, err := f.FetchHistory(context.Background(), "AAPL", model.PeriodRange("5y"))
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "range=5y")
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Equal(t, "USD", series.Currency)

	// null open dropped, duplicate date collapsed to the later row, sorted ascending
	require.Equal(t, 3, series.Len())
	assert.Equal(t, 10.2, series.Bars[0].Close)
	assert.Equal(t, 11.2, series.Bars[1].Close)
	assert.Equal(t, 12.8, series.Bars[2].Close)
	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.Bars[i].Date.After(series.Bars[i-1].Date))
	}
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.Bars[0].Date)
}

func TestYahooFetcher_ExplicitRangeWins(t *testing.T) {
	var gotQuery string
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartBody))
	})
	r := model.Range{
		Period: "1y",
		Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := f.FetchHistory(context.Background(), "AAPL", r)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "period1=1577836800")
	assert.NotContains(t, gotQuery, "range=")
}

func TestYahooFetcher_UnknownSymbolIsEmpty(t *testing.T) {
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})
	series, err := f.FetchHistory(context.Background(), "NOPE", model.PeriodRange("1y"))
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestYahooFetcher_ServerError(t *testing.T) {
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := f.FetchHistory(context.Background(), "AAPL", model.PeriodRange("1y"))
	assert.Error(t, err)
}

func TestYahooFetcher_Fundamentals(t *testing.T) {
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/"):
			w.Write([]byte(`{"quoteSummary":{"result":[{
"summaryDetail":{"marketCap":{"raw":2.5e12},"trailingPE":{"raw":30.1},"dividendYield":{"raw":0.0052},"exDividendDate":{"raw":1704067200},"currency":"USD"},
"defaultKeyStatistics":{"trailingEps":{"raw":6.1},"beta":{"raw":1.25}},
"financialData":{"targetMeanPrice":{"raw":210}},
"price":{"shortName":"Apple Inc."}}],"error":null}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	fd, err := f.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, fd.Available)
	assert.Equal(t, "Apple Inc.", fd.ShortName)
	require.NotNil(t, fd.DividendYield)
	assert.InDelta(t, 0.52, *fd.DividendYield, 1e-9)
	require.NotNil(t, fd.Beta)
	assert.Equal(t, 1.25, *fd.Beta)
	assert.Nil(t, fd.DividendRate)
	require.NotNil(t, fd.ExDividend)
	assert.Equal(t, "Jan 01, 2024", fd.ExDividend.Format("Jan 02, 2006"))
}

func TestCollector_FundamentalsFallbackChain(t *testing.T) {
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v7/finance/quote":
			w.Write([]byte(`{"quoteResponse":{"result":[{"shortName":"Infosys","currency":"INR","marketCap":6.1e12,"trailingAnnualDividendYield":0.025,"dividendDate":1706745600}],"error":null}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	c := NewCollector(f, nil, nil, logging.Discard(), f, QuoteFallback{Yahoo: f})

	fd := c.FetchFundamentals(context.Background(), "infy.ns")
	assert.True(t, fd.Available)
	assert.Equal(t, "quote", fd.Source)
	assert.Equal(t, "INFY.NS", fd.Symbol)
	require.NotNil(t, fd.DividendYield)
	assert.InDelta(t, 2.5, *fd.DividendYield, 1e-9)
	assert.Nil(t, fd.ExDividend, "payment date is not an ex-dividend date")
}

func TestQuoteFallback_ExDividendDate(t *testing.T) {
	f := newYahooServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[{"currency":"USD","dividendDate":1706745600,"exDividendDate":1704067200}],"error":null}}`))
	})

	fd, err := QuoteFallback{Yahoo: f}.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, fd.ExDividend)
	assert.Equal(t, "Jan 01, 2024", fd.ExDividend.Format("Jan 02, 2006"))
}

func TestCollector_FundamentalsAllFail(t *testing.T) {
	mock := &MockFetcher{Err: errors.New("down")}
	c := NewCollector(mock, nil, nil, logging.Discard(), mock)

	fd := c.FetchFundamentals(context.Background(), "AAPL")
	assert.False(t, fd.Available)
	assert.Equal(t, "AAPL", fd.Symbol)
	assert.Nil(t, fd.MarketCap)
}

func TestCollector_MemoizesByNormalizedKey(t *testing.T) {
	mock := &MockFetcher{Days: 30}
	store := cache.NewMemoryStore()
	c := NewCollector(mock, nil, store, logging.Discard())
	ctx := context.Background()

	first, err := c.FetchHistory(ctx, " aapl ", model.PeriodRange("1y"))
	require.NoError(t, err)
	second, err := c.FetchHistory(ctx, "AAPL", model.PeriodRange("1y"))
	require.NoError(t, err)

	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Bars[0].Close, second.Bars[0].Close)

	_, err = c.FetchHistory(ctx, "AAPL", model.PeriodRange("5y"))
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount(), "different range is a different key")
}

func TestCollector_EmptyResultCachedErrorsNot(t *testing.T) {
	mock := &MockFetcher{Data: map[string][]model.Bar{}}
	c := NewCollector(mock, nil, nil, logging.Discard())
	ctx := context.Background()

	series, err := c.FetchHistory(ctx, "ZZZZ", model.PeriodRange("1y"))
	require.NoError(t, err)
	assert.True(t, series.Empty())
	_, _ = c.FetchHistory(ctx, "ZZZZ", model.PeriodRange("1y"))
	assert.Equal(t, 1, mock.CallCount())

	failing := &MockFetcher{Err: errors.New("timeout")}
	c = NewCollector(failing, nil, nil, logging.Discard())
	_, err = c.FetchHistory(ctx, "AAPL", model.PeriodRange("1y"))
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "AAPL", fe.Ticker)
	_, _ = c.FetchHistory(ctx, "AAPL", model.PeriodRange("1y"))
	assert.Equal(t, 2, failing.CallCount())
}

func TestCollector_ConcurrentCallsShareFetch(t *testing.T) {
	mock := &MockFetcher{Days: 10, Delay: 50 * time.Millisecond}
	c := NewCollector(mock, nil, nil, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchHistory(context.Background(), "MSFT", model.PeriodRange("1y"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, mock.CallCount())
}

func TestCollector_BenchmarkUsesAdjustedClose(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock := &MockFetcher{Data: map[string][]model.Bar{
		"^GSPC": {
			{Date: d, Close: 10, AdjClose: 9},
			{Date: d.AddDate(0, 0, 3), Close: 11, AdjClose: math.NaN()},
		},
	}}
	c := NewCollector(mock, nil, nil, logging.Discard())

	bs, err := c.FetchBenchmark(context.Background(), "^gspc", model.PeriodRange("5y"))
	require.NoError(t, err)
	require.Equal(t, 2, bs.Len())
	assert.Equal(t, 9.0, bs.Points[0].Close)
	assert.Equal(t, 11.0, bs.Points[1].Close)
}

func TestFREDFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/fredgraph.csv", r.URL.Path)
		assert.Equal(t, "SP500", r.URL.Query().Get("id"))
		w.Write([]byte("observation_date,SP500\n2015-01-02,2058.20\n2024-01-02,4742.83\n2024-01-03,.\n2024-01-04,4688.68\n"))
	}))
	defer srv.Close()

	f := NewFREDFetcher(srv.URL, "", time.Second)
	f.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	c := NewCollector(&MockFetcher{}, f, nil, logging.Discard())

	series, err := c.FetchMacro(context.Background(), "sp500", model.PeriodRange("5y"))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 4742.83, series.Points[0].Close)
	assert.Equal(t, 4688.68, series.Points[1].Close)
}

func TestCollector_NoMacroProvider(t *testing.T) {
	c := NewCollector(&MockFetcher{}, nil, nil, logging.Discard())
	_, err := c.FetchMacro(context.Background(), "SP500", model.PeriodRange("5y"))
	var fe *model.FetchError
	assert.ErrorAs(t, err, &fe)
}
