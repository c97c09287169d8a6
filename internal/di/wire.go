//go:build wireinject
// +build wireinject

package di

import (
	"VariantMap/pkg/config"
	"VariantMap/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideBarSource,
		ProvideSQLiteStore,
		ProvideCachedMap,
		ProvideSinks,

		// Use cases
		ProvideMapBuilder,
		ProvideMapPublisher,
		ProvideMapRunner,
		ProvideRebuildQueue,
		ProvideMapQuery,

		// Transport
		ProvideMapHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
