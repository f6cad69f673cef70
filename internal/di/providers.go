package di

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/domain/repository"
	"TrendPulse/internal/handler/api"
	"TrendPulse/internal/service/cache"
	"TrendPulse/internal/service/provider"
	"TrendPulse/internal/service/ratelimit"
	"TrendPulse/internal/usecase"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/logger"
	"TrendPulse/pkg/metrics"
	"TrendPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lcfg := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lcfg.Level == "" {
		lcfg.Level = "info"
	}
	if lcfg.Format == "" {
		lcfg.Format = "json"
	}
	if lcfg.Output == "" {
		lcfg.Output = "stdout"
	}
	return logger.New(lcfg)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the shared upstream rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideProviderChain builds the ordered failover chain. Finnhub is
// primary; Yahoo joins the chain only when enabled.
func ProvideProviderChain(cfg *config.Config, log *logger.Logger, m repository.Metrics, limiter *ratelimit.Limiter) repository.MarketDataProvider {
	fh := cfg.Providers.Finnhub
	if fh.BaseURL == "" {
		fh.BaseURL = "https://finnhub.io/api/v1"
	}
	if fh.Timeout == 0 {
		fh.Timeout = 10 * time.Second
	}
	providers := []repository.MarketDataProvider{
		provider.NewFinnhub(fh.APIKey, fh.BaseURL, fh.Timeout, limiter, fh.RateCapacity, fh.RatePerSec),
	}

	yh := cfg.Providers.Yahoo
	if yh.Enabled {
		if yh.BaseURL == "" {
			yh.BaseURL = "https://query1.finance.yahoo.com"
		}
		if yh.Timeout == 0 {
			yh.Timeout = 10 * time.Second
		}
		providers = append(providers, provider.NewYahoo(yh.BaseURL, yh.Timeout, limiter, yh.RateCapacity, yh.RatePerSec))
	}

	return provider.NewChain(log, m, providers...)
}

// ProvideTradeStream creates the live trade stream, or nil when disabled.
func ProvideTradeStream(cfg *config.Config, log *logger.Logger, m repository.Metrics) *provider.TradeStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	st := cfg.Stream
	if st.ReconnectDelay == 0 {
		st.ReconnectDelay = 5 * time.Second
	}
	if st.PingInterval == 0 {
		st.PingInterval = 30 * time.Second
	}
	return provider.NewTradeStream(
		cfg.Providers.Finnhub.APIKey,
		st.WebSocketURL,
		st.Symbols,
		st.ReconnectDelay,
		st.PingInterval,
		log,
		m,
	)
}

// ProvideStore creates the staleness-aware computation cache.
func ProvideStore() *cache.Store {
	return cache.NewStore()
}

// ProvideRedisCache creates the shared response cache, or nil when
// Redis is disabled.
func ProvideRedisCache(cfg *config.Config, log *logger.Logger) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	r := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected", logger.String("addr", cfg.Redis.Addr))
	return r, nil
}

// ProvideOptions maps config onto the analysis pipeline options,
// filling gaps with dashboard defaults.
func ProvideOptions(cfg *config.Config) usecase.Options {
	opts := usecase.DefaultOptions()

	if len(cfg.Analysis.Timeframes) > 0 {
		tfs := make([]repository.Timeframe, 0, len(cfg.Analysis.Timeframes))
		for _, s := range cfg.Analysis.Timeframes {
			tfs = append(tfs, repository.NormalizeTimeframe(s))
		}
		opts.Timeframes = tfs
	}
	if cfg.Analysis.Lookback > 0 {
		opts.Lookback = cfg.Analysis.Lookback
	}
	if cfg.Analysis.Timeout > 0 {
		opts.Timeout = cfg.Analysis.Timeout
	}
	ttl := cfg.Analysis.CacheTTL
	if ttl.Quote > 0 {
		opts.TTL.Quote = ttl.Quote
	}
	if ttl.Intraday > 0 {
		opts.TTL.Intraday = ttl.Intraday
	}
	if ttl.Daily > 0 {
		opts.TTL.Daily = ttl.Daily
	}
	if ttl.Macro > 0 {
		opts.TTL.Macro = ttl.Macro
	}
	return opts
}

// ProvideAnalysisUseCase wires the per-timeframe pipeline.
func ProvideAnalysisUseCase(
	chain repository.MarketDataProvider,
	stream *provider.TradeStream,
	store *cache.Store,
	m repository.Metrics,
	log *logger.Logger,
	opts usecase.Options,
) *usecase.AnalysisUseCase {
	var qs repository.QuoteStream
	if stream != nil {
		qs = stream
	}
	return usecase.NewAnalysisUseCase(chain, qs, store, m, log, opts)
}

// ProvideSignalUseCase wires the aggregate signal pipeline.
func ProvideSignalUseCase(analysis *usecase.AnalysisUseCase, log *logger.Logger) *usecase.SignalUseCase {
	return usecase.NewSignalUseCase(analysis, log)
}

// ProvideHandler creates the HTTP handler with the optional response
// cache attached.
func ProvideHandler(
	log *logger.Logger,
	analysis *usecase.AnalysisUseCase,
	signals *usecase.SignalUseCase,
	redis *cache.RedisCache,
) xhttp.Handler {
	h := api.NewAnalysisHandler(log, analysis, signals)
	if redis != nil {
		h.SetResponseCache(redis)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	stream *provider.TradeStream,
	redis *cache.RedisCache,
) *server.App {
	var qs repository.QuoteStream
	if stream != nil {
		qs = stream
	}
	app := server.New(cfg, log, handler, qs, redis)
	if stream != nil {
		app.SetStreamRunner(stream.Run)
	}
	return app
}
