//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/askcache/internal/bootstrap"
	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/config"
	httpiface "github.com/yanqian/askcache/internal/interface/http"
	"github.com/yanqian/askcache/pkg/logger"
	"github.com/yanqian/askcache/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewRecorder,
		provideCacheConfig,
		providePostgresPool,
		provideCacheBackend,
		provideCacheStore,
		provideValkeyClient,
		provideStatsStore,
		providePersistQueue,
		provideEntryWriter,
		provideChatGPTClient,
		provideEmbedder,
		provideAnswerer,
		provideObserver,
		qacache.NewService,
		provideHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
