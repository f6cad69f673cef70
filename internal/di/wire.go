//go:build wireinject
// +build wireinject

package di

import (
	"TrendPulse/pkg/config"
	"TrendPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Upstream access
		ProvideLimiter,
		ProvideProviderChain,
		ProvideTradeStream,

		// Caches
		ProvideStore,
		ProvideRedisCache,

		// Use cases
		ProvideOptions,
		ProvideAnalysisUseCase,
		ProvideSignalUseCase,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
