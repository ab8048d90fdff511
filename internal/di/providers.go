package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FeatureSnap/internal/domain/repository"
	"FeatureSnap/internal/handler/api"
	internalrepo "FeatureSnap/internal/repository"
	"FeatureSnap/internal/usecase"
	pkgcache "FeatureSnap/pkg/cache"
	pkgch "FeatureSnap/pkg/clickhouse"
	"FeatureSnap/pkg/config"
	xhttp "FeatureSnap/pkg/http"
	pkgkafka "FeatureSnap/pkg/kafka"
	applogger "FeatureSnap/pkg/logger"
	"FeatureSnap/pkg/metrics"
	"FeatureSnap/pkg/queue"
	"FeatureSnap/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" || cfg.Environment == "local" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            pair String, interval String, open_time DateTime64(3, 'UTC'),
            open Float64, high Float64, low Float64, close Float64, volume Float64
        ) ENGINE=MergeTree ORDER BY (pair, interval, open_time)`, candlesTable(cfg)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            pair String, interval String, feature_set_version_id String,
            captured_at DateTime64(3, 'UTC'), schema_fingerprint String,
            features String, warmup UInt8, is_complete UInt8,
            source_window_start DateTime64(3, 'UTC'), source_window_end DateTime64(3, 'UTC'),
            updated_at DateTime64(3, 'UTC')
        ) ENGINE=ReplacingMergeTree(updated_at)
        ORDER BY (pair, interval, feature_set_version_id, captured_at)`, snapshotsTable(cfg)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id String, label String, description String, config String,
            updated_at DateTime64(3, 'UTC')
        ) ENGINE=ReplacingMergeTree(updated_at) ORDER BY (id)`, featureSetsTable(cfg)),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache creates the shared Redis cache. Returns nil when Redis is
// disabled; consumers treat a nil cache as "feature off".
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	cache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCandleStore creates the ClickHouse candle reader.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.CandleStore {
	store := internalrepo.NewCHCandleStore(chClient, candlesTable(cfg))
	store.SetLogger(l)
	return store
}

// ProvideSnapshotStore creates the ClickHouse snapshot store.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.SnapshotStore {
	store := internalrepo.NewCHSnapshotStore(chClient, snapshotsTable(cfg))
	store.SetLogger(l)
	return store
}

// ProvideFeatureSetStore creates the ClickHouse feature set store.
func ProvideFeatureSetStore(chClient *pkgch.Client, cfg *config.Config) repository.FeatureSetStore {
	return internalrepo.NewCHFeatureSetStore(chClient, featureSetsTable(cfg))
}

// ProvideSnapshotPublisher creates the Kafka event publisher, nil without a
// producer so the write path still works with events off.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideFeatureSetsUseCase creates the feature set resolution use case.
// Configs are resolved on every Ensure call, so the cache is layered with a
// memory L1 in front of Redis.
func ProvideFeatureSetsUseCase(store repository.FeatureSetStore, cache *pkgcache.RedisCache, cfg *config.Config) *usecase.FeatureSetsUseCase {
	opts := []usecase.FeatureSetsOption{}
	if cache != nil {
		opts = append(opts, usecase.WithConfigCache(pkgcache.NewLayeredCache(cache), cfg.Snapshots.ConfigCacheTTL))
	}
	return usecase.NewFeatureSetsUseCase(store, opts...)
}

// ProvideSnapshotsUseCase creates the snapshot engine use case.
func ProvideSnapshotsUseCase(
	candles repository.CandleStore,
	snapshots repository.SnapshotStore,
	featureSets *usecase.FeatureSetsUseCase,
	m repository.Metrics,
	publisher repository.SnapshotPublisher,
	cache *pkgcache.RedisCache,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SnapshotsUseCase {
	opts := []usecase.SnapshotsOption{usecase.WithSnapshotsLogger(l)}
	if publisher != nil {
		opts = append(opts, usecase.WithSnapshotPublisher(publisher))
	}
	if cache != nil {
		opts = append(opts, usecase.WithEnsureLock(cache, cfg.Snapshots.LockTTL))
	}
	return usecase.NewSnapshotsUseCase(candles, snapshots, featureSets, m, opts...)
}

// ProvideBackfillQueue creates the Redis-backed worker queue, nil when
// backfills are disabled or Redis is unavailable.
func ProvideBackfillQueue(
	cfg *config.Config,
	l *applogger.Logger,
	cache *pkgcache.RedisCache,
	snapshots *usecase.SnapshotsUseCase,
) *queue.RedisQueue {
	if !cfg.Backfill.Enabled || cache == nil {
		return nil
	}
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Backfill.Workers,
		RetryLimit: cfg.Backfill.MaxRetries,
		RetryDelay: cfg.Backfill.Backoff,
	}
	opts := []queue.RedisQueueOption{}
	if cfg.Backfill.Queue != "" {
		opts = append(opts, queue.WithKeyPrefix(cfg.Backfill.Queue))
	}
	q := queue.NewRedisQueue(l, qcfg, cache.Client(), queue.ModeProducerConsumer, opts...)
	q.RegisterJob(usecase.NewBackfillJob(snapshots))
	return q
}

// ProvideHandler creates the HTTP handler surface.
func ProvideHandler(
	l *applogger.Logger,
	snapshots *usecase.SnapshotsUseCase,
	featureSets *usecase.FeatureSetsUseCase,
	backfill *queue.RedisQueue,
) xhttp.Handler {
	var enqueuer api.BackfillEnqueuer
	if backfill != nil {
		enqueuer = backfill
	}
	return api.NewSnapshotsEchoHandler(l, snapshots, featureSets, enqueuer)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	backfill *queue.RedisQueue,
	publisher repository.SnapshotPublisher,
) *server.App {
	app := server.New(cfg, l, handler, chClient)
	if backfill != nil {
		app.SetBackfillQueue(backfill)
	}
	if publisher != nil {
		app.SetPublisher(publisher)
	}
	return app
}

func candlesTable(cfg *config.Config) string {
	return qualifiedTable(cfg, cfg.ClickHouse.CandlesTable, "candles")
}

func snapshotsTable(cfg *config.Config) string {
	return qualifiedTable(cfg, cfg.ClickHouse.SnapshotsTable, "feature_snapshots")
}

func featureSetsTable(cfg *config.Config) string {
	return qualifiedTable(cfg, cfg.ClickHouse.FeatureSetsTable, "feature_set_versions")
}

func qualifiedTable(cfg *config.Config, name, def string) string {
	if name == "" {
		name = def
	}
	return cfg.ClickHouse.Database + "." + name
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
