//go:build wireinject
// +build wireinject

package di

import (
	"FeatureSnap/pkg/config"
	"FeatureSnap/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideKafkaProducer,

		// Stores and publishers
		ProvideCandleStore,
		ProvideSnapshotStore,
		ProvideFeatureSetStore,
		ProvideSnapshotPublisher,

		// Use cases
		ProvideFeatureSetsUseCase,
		ProvideSnapshotsUseCase,
		ProvideBackfillQueue,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
