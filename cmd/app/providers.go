package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/answerer"
	"github.com/yanqian/askcache/internal/infra/cachestore"
	"github.com/yanqian/askcache/internal/infra/config"
	"github.com/yanqian/askcache/internal/infra/embedder"
	"github.com/yanqian/askcache/internal/infra/llm/chatgpt"
	"github.com/yanqian/askcache/internal/infra/persistqueue"
	"github.com/yanqian/askcache/internal/infra/stats"
	httpiface "github.com/yanqian/askcache/internal/interface/http"
	"github.com/yanqian/askcache/pkg/metrics"
)

// cacheBackend pairs the selected store with the name reported by /dbcheck.
type cacheBackend struct {
	store qacache.Store
	name  string
}

func provideCacheConfig(cfg *config.Config) qacache.Config {
	return qacache.Config{
		Matching: qacache.MatchingConfig{
			FuzzyThreshold: cfg.Matching.FuzzyThreshold,
			LexicalFloor:   cfg.Matching.LexicalFloor,
			CandidateLimit: cfg.Matching.CandidateLimit,
			CosineFloor:    cfg.Matching.CosineFloor,
			OverlapFloor:   cfg.Matching.OverlapFloor,
			CosineWeight:   cfg.Matching.CosineWeight,
			OverlapWeight:  cfg.Matching.OverlapWeight,
		},
		LongTTL:  cfg.Cache.LongTTL,
		ShortTTL: cfg.Cache.ShortTTL,
		TimeSensitive: qacache.TimeSensitiveConfig{
			Policy:   cfg.TimeSensitive.Policy,
			Keywords: cfg.TimeSensitive.Keywords,
		},
		Semantic: qacache.SemanticConfig{
			Enabled:    cfg.Semantic.Enabled,
			Dimensions: cfg.Semantic.Dimensions,
		},
		AsyncPersist: cfg.Persist.Async,
		TopTrending:  cfg.Cache.TopTrending,
	}
}

// providePostgresPool returns nil when no DSN is set or the database is
// unreachable; the cache then runs from memory.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory cache store")
		return nil, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory cache store", "error", err)
		return nil, noop
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory cache store", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory cache store", "error", err)
		pool.Close()
		return nil, noop
	}
	return pool, pool.Close
}

func provideCacheBackend(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) cacheBackend {
	if pool == nil {
		return cacheBackend{store: cachestore.NewMemoryStore(), name: "memory"}
	}
	if cfg.Postgres.EnsureSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cachestore.EnsureSchema(ctx, pool, cfg.Semantic.Dimensions); err != nil {
			logger.Error("cache schema setup failed, using memory cache store", "error", err)
			return cacheBackend{store: cachestore.NewMemoryStore(), name: "memory"}
		}
	}
	logger.Info("postgres cache store enabled")
	return cacheBackend{store: cachestore.NewPostgresStore(pool), name: "postgres"}
}

func provideCacheStore(backend cacheBackend) qacache.Store {
	return backend.store
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.Valkey.Enabled {
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, using in-process counters", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using in-process counters", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using in-process counters", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey enabled", "addr", cfg.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}, nil
}

func provideStatsStore(cfg *config.Config, client valkey.Client) qacache.StatsStore {
	if client == nil {
		return stats.NewMemoryStore()
	}
	return stats.NewValkeyStore(client, cfg.Valkey.Prefix)
}

// providePersistQueue returns nil unless answers should be buffered in Valkey.
func providePersistQueue(cfg *config.Config, client valkey.Client, store qacache.Store, logger *slog.Logger) *persistqueue.ValkeyQueue {
	if cfg.Persist.Queue != config.QueueValkey {
		return nil
	}
	if client == nil {
		logger.Warn("valkey persist queue requested without valkey, writing inline")
		return nil
	}
	return persistqueue.NewValkeyQueue(client, cfg.Persist.QueueKey, persistqueue.NewImmediate(store), logger)
}

func provideEntryWriter(queue *persistqueue.ValkeyQueue, store qacache.Store) qacache.EntryWriter {
	if queue != nil {
		return queue
	}
	return persistqueue.NewImmediate(store)
}

// provideChatGPTClient builds the single OpenAI SDK client shared by the
// answerer, embedder and web search. It returns nil without an API key.
func provideChatGPTClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		logger.Warn("llm client disabled", "error", err)
		return nil
	}
	return client
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) qacache.Embedder {
	if !cfg.Semantic.Enabled {
		return nil
	}
	switch cfg.Semantic.Embedder {
	case config.EmbedderDeterministic:
		return embedder.NewDeterministicEmbedder(cfg.Semantic.Dimensions)
	default:
		if client == nil {
			logger.Warn("semantic matching disabled, no llm client for embeddings")
			return nil
		}
		return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, cfg.Semantic.Dimensions, logger)
	}
}

func provideAnswerer(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) qacache.Answerer {
	if client == nil {
		return answerer.Unconfigured{}
	}
	var web *answerer.WebSearch
	if cfg.LLM.WebSearch.Enabled {
		web = answerer.NewWebSearch(client, cfg.LLM.WebSearch.Model)
	}
	return answerer.NewChatAnswerer(answerer.Config{
		Model:       cfg.LLM.Model,
		Prompt:      cfg.LLM.Prompt,
		Temperature: cfg.LLM.Temperature,
	}, client, web, logger)
}

func provideObserver(recorder *metrics.Recorder) qacache.Observer {
	return recorder
}

func provideHandler(svc qacache.Service, backend cacheBackend, logger *slog.Logger) *httpiface.Handler {
	return httpiface.NewHandler(svc, backend.name, logger)
}
