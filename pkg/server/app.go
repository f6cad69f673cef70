package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/cache"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	applogger "TrendPulse/pkg/logger"
)

// App encapsulates the application lifecycle: the optional trade
// stream, the HTTP server and the shared Redis client.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	stream     drepo.QuoteStream
	streamRun  func(context.Context)
	redis      *cache.RedisCache
	httpServer *xhttp.Server
}

// New creates a new App instance. stream and redis may be nil.
func New(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler, stream drepo.QuoteStream, redis *cache.RedisCache) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		handler: handler,
		stream:  stream,
		redis:   redis,
	}
}

// SetStreamRunner injects the stream read loop started alongside the
// server.
func (a *App) SetStreamRunner(run func(context.Context)) { a.streamRun = run }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.stream != nil {
		if err := a.stream.Connect(ctx); err != nil {
			// the stream is a freshness layer, not a dependency
			a.log.Warn("trade stream connect failed, continuing without live prices", applogger.Error(err))
		} else if err := a.stream.Subscribe(ctx); err != nil {
			a.log.Warn("trade stream subscribe failed", applogger.Error(err))
		} else if a.streamRun != nil {
			go a.streamRun(ctx)
			a.log.Info("trade stream started", applogger.Strings("symbols", a.cfg.Stream.Symbols))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("trade stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
