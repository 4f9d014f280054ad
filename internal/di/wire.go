//go:build wireinject
// +build wireinject

package di

import (
	"QuantDesk/pkg/config"
	"QuantDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideBundledData,
		ProvideCredentialStore,
		ProvideCatalogSource,
		ProvideStateCache,
		ProvideStateStore,
		ProvideActivitySink,
		ProvideActivityPipeline,
		ProvideActivityRecorder,

		// Use cases
		ProvideSessionManager,
		ProvideRouteGuard,
		ProvideGridWorkspace,
		ProvideTrainingSimulator,

		// Transport
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
