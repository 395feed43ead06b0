// Package app wires configuration into the shared data and analysis services
// used by both binaries.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"StockLens/internal/analysis"
	"StockLens/internal/cache"
	"StockLens/internal/capm"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/forecast"
)

// Services bundles everything built from one Config.
type Services struct {
	Collector *collector.Collector
	Analysis  *analysis.Service
	CAPM      *capm.Service
	Forecast  *forecast.Service

	closers []func() error
}

// Close releases the cache connection, if any.
func (s *Services) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build constructs the providers, the cache and the three services.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Services, error) {
	s := &Services{}

	store, err := s.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		prices       collector.Fetcher
		macro        collector.MacroFetcher
		fundamentals []collector.FundamentalsFetcher
	)
	if cfg.DataSource.UseMockFetcher {
		mock := &collector.MockFetcher{}
		prices, macro, fundamentals = mock, mock, []collector.FundamentalsFetcher{mock}
	} else {
		yahoo := collector.NewYahooFetcher(cfg.DataSource.YahooBaseURL, cfg.DataSource.YahooQuoteURL, cfg.Proxy, cfg.DataSource.Timeout)
		prices = yahoo
		macro = collector.NewFREDFetcher(cfg.DataSource.FREDBaseURL, cfg.Proxy, cfg.DataSource.Timeout)
		fundamentals = []collector.FundamentalsFetcher{yahoo, collector.QuoteFallback{Yahoo: yahoo}}
	}
	logger.WithFields(logrus.Fields{
		"prices": prices.Name(),
		"macro":  macro.Name(),
		"cache":  store.Name(),
	}).Info("data sources configured")

	s.Collector = collector.NewCollector(prices, macro, store, logger, fundamentals...)
	s.Analysis = analysis.NewService(s.Collector, logger)
	s.CAPM = capm.NewService(s.Collector, logger)
	s.Forecast = forecast.NewService(s.Collector, nil, logger)
	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (cache.Store, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryStore(), nil
	}
	client, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	s.closers = append(s.closers, client.Close)
	logger.WithField("addr", cfg.Cache.RedisAddr).Info("redis cache connected")
	return cache.NewRedisStore(client, cfg.Cache.TTL), nil
}
