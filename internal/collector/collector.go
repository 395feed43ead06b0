package collector

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"StockLens/internal/cache"
	"StockLens/internal/model"
)

// Collector is the memoizing data-access layer shared by every view.
// Successful results, empty ones included, are cached; provider errors are not.
// Concurrent identical requests share one upstream call.
type Collector struct {
	prices       Fetcher
	macro        MacroFetcher
	fundamentals []FundamentalsFetcher
	store        cache.Store
	group        singleflight.Group
	log          *logrus.Entry
}

// NewCollector wires the providers. fundamentals are tried in order.
func NewCollector(prices Fetcher, macro MacroFetcher, store cache.Store, logger logrus.FieldLogger, fundamentals ...FundamentalsFetcher) *Collector {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &Collector{
		prices:       prices,
		macro:        macro,
		fundamentals: fundamentals,
		store:        store,
		log:          logger.WithField("component", "collector"),
	}
}

// FetchHistory returns daily OHLCV history for ticker over r.
// An empty series comes back with a nil error; callers check Empty().
func (c *Collector) FetchHistory(ctx context.Context, ticker string, r model.Range) (*model.PriceSeries, error) {
	ticker = model.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, model.Invalid("ticker", "must not be empty")
	}
	key := model.CacheKey("history", ticker, r)

	var out model.PriceSeries
	err := c.memo(ctx, key, &out, func() (any, error) {
		series, err := c.prices.FetchHistory(ctx, ticker, r)
		if err != nil {
			return nil, &model.FetchError{Ticker: ticker, Err: err}
		}
		series.Symbol = ticker
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Empty() {
		c.log.WithFields(logrus.Fields{"ticker": ticker, "range": r.Key()}).Warn("no price rows returned")
	}
	return &out, nil
}

// FetchBenchmark returns the adjusted-close column of an index over r.
func (c *Collector) FetchBenchmark(ctx context.Context, ticker string, r model.Range) (*model.BenchmarkSeries, error) {
	series, err := c.FetchHistory(ctx, ticker, r)
	if err != nil {
		return nil, err
	}
	return series.Benchmark(), nil
}

// FetchMacro returns a macroeconomic series by its provider key.
func (c *Collector) FetchMacro(ctx context.Context, seriesKey string, r model.Range) (*model.BenchmarkSeries, error) {
	seriesKey = model.NormalizeTicker(seriesKey)
	if c.macro == nil {
		return nil, &model.FetchError{Ticker: seriesKey, Err: fmt.Errorf("no macro provider configured")}
	}
	key := model.CacheKey("macro", seriesKey, r)

	var out model.BenchmarkSeries
	err := c.memo(ctx, key, &out, func() (any, error) {
		series, err := c.macro.FetchMacro(ctx, seriesKey, r)
		if err != nil {
			return nil, &model.FetchError{Ticker: seriesKey, Err: err}
		}
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchFundamentals never fails: it tries each source in order and falls back
// to the explicit empty record.
func (c *Collector) FetchFundamentals(ctx context.Context, ticker string) model.Fundamentals {
	ticker = model.NormalizeTicker(ticker)
	key := model.CacheKey("fundamentals", ticker, model.Range{})

	var out model.Fundamentals
	err := c.memo(ctx, key, &out, func() (any, error) {
		for _, src := range c.fundamentals {
			fd, err := src.FetchFundamentals(ctx, ticker)
			if err == nil {
				fd.Symbol = ticker
				return fd, nil
			}
			c.log.WithFields(logrus.Fields{"ticker": ticker, "source": src.Name()}).WithError(err).Warn("fundamentals source failed")
		}
		return nil, fmt.Errorf("no fundamentals source answered")
	})
	if err != nil {
		c.log.WithField("ticker", ticker).Warn("using empty fundamentals")
		return model.EmptyFundamentals(ticker)
	}
	return out
}

// memo is a read-through lookup. dest must be a pointer to the value type load returns.
func (c *Collector) memo(ctx context.Context, key string, dest any, load func() (any, error)) error {
	if data, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.WithField("key", key).WithError(err).Warn("cache read failed")
	} else if ok {
		if err := cache.Decode(data, dest); err == nil {
			return nil
		}
		c.log.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return data, nil
		}
		val, err := load()
		if err != nil {
			return nil, err
		}
		data, err := cache.Encode(val)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, data); err != nil {
			c.log.WithField("key", key).WithError(err).Warn("cache write failed")
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return cache.Decode(v.([]byte), dest)
}
