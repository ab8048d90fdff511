package repository

import (
	"context"
	"time"

	"FeatureSnap/internal/domain/models"
)

// CandleStore provides ordered read access to raw OHLCV candles. Both queries
// return rows ascending by open time with inclusive bounds. ListTimestamps is
// the cheap variant used by gap detection to avoid pulling full OHLCV for
// ranges that are already cached.
type CandleStore interface {
	ListTimestamps(ctx context.Context, pair, interval string, start, end time.Time) ([]time.Time, error)
	ListCandles(ctx context.Context, pair, interval string, start, end time.Time) ([]models.Candle, error)
}

// SnapshotStore persists feature snapshots. UpsertBatch must be idempotent on
// the (pair, interval, feature_set_version_id, captured_at) primary key;
// writing the same row twice is a no-op for readers.
type SnapshotStore interface {
	ListByRange(ctx context.Context, pair, interval, featureSetVersionID string, start, end time.Time) ([]models.FeatureSnapshot, error)
	UpsertBatch(ctx context.Context, rows []models.FeatureSnapshot) error
}

// FeatureSetStore resolves and manages persisted feature set versions.
type FeatureSetStore interface {
	Get(ctx context.Context, id string) (*models.FeatureSetVersion, error)
	FindByLabel(ctx context.Context, label string) (*models.FeatureSetVersion, error)
	Insert(ctx context.Context, v *models.FeatureSetVersion) error
	List(ctx context.Context) ([]models.FeatureSetVersion, error)
}

// SnapshotPublisher emits computed snapshot rows for downstream consumers.
// Publishing is advisory; failures must never fail the write path.
type SnapshotPublisher interface {
	PublishBatch(ctx context.Context, rows []models.FeatureSnapshot) error
	Close() error
}

// Metrics records operational counters for the snapshot engine.
type Metrics interface {
	RecordSnapshotsComputed(pair, interval string, n int)
	RecordGapsDetected(pair, interval string, n int)
	RecordWarmupRows(pair, interval string, n int)
	RecordStoreLatency(op string, seconds float64)
	RecordError(kind string)
}
