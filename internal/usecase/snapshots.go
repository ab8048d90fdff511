package usecase

import (
	"context"
	"fmt"
	"time"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	"FeatureSnap/internal/services/features"
	pkgcache "FeatureSnap/pkg/cache"
	applogger "FeatureSnap/pkg/logger"
)

// SnapshotsUseCase orchestrates the read-gap-detect-compute-write cycle for
// feature snapshots. It holds no lock across store calls; concurrent Ensure
// calls for overlapping ranges may duplicate work but never diverge, because
// computation is a pure function of (candle history, config) and the snapshot
// store upsert is idempotent per primary key.
type SnapshotsUseCase struct {
	candles     domrepo.CandleStore
	snapshots   domrepo.SnapshotStore
	featureSets *FeatureSetsUseCase
	publisher   domrepo.SnapshotPublisher
	metrics     domrepo.Metrics
	locker      pkgcache.Service
	logger      *applogger.Logger
	lockTTL     time.Duration
}

// SnapshotsOption configures SnapshotsUseCase.
type SnapshotsOption func(*SnapshotsUseCase)

// WithSnapshotPublisher attaches an advisory event publisher.
func WithSnapshotPublisher(p domrepo.SnapshotPublisher) SnapshotsOption {
	return func(uc *SnapshotsUseCase) { uc.publisher = p }
}

// WithEnsureLock enables a best-effort distributed lock around the compute
// phase. Missing the lock never blocks the call; it only sheds redundant
// recomputation between racing workers.
func WithEnsureLock(c pkgcache.Service, ttl time.Duration) SnapshotsOption {
	return func(uc *SnapshotsUseCase) {
		uc.locker = c
		if ttl > 0 {
			uc.lockTTL = ttl
		}
	}
}

// WithSnapshotsLogger injects a structured logger.
func WithSnapshotsLogger(l *applogger.Logger) SnapshotsOption {
	return func(uc *SnapshotsUseCase) { uc.logger = l }
}

func NewSnapshotsUseCase(
	candles domrepo.CandleStore,
	snapshots domrepo.SnapshotStore,
	featureSets *FeatureSetsUseCase,
	metrics domrepo.Metrics,
	opts ...SnapshotsOption,
) *SnapshotsUseCase {
	uc := &SnapshotsUseCase{
		candles:     candles,
		snapshots:   snapshots,
		featureSets: featureSets,
		metrics:     metrics,
		lockTTL:     2 * time.Minute,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// EnsureParams identifies one requested snapshot window.
type EnsureParams struct {
	Pair                string
	Interval            string
	FeatureSetVersionID string
	StartAt             time.Time
	EndAt               time.Time
}

func (p *EnsureParams) validate() error {
	if p.Pair == "" {
		return fmt.Errorf("pair required")
	}
	p.Interval = domrepo.NormalizeInterval(p.Interval)
	if _, err := domrepo.IntervalDuration(p.Interval); err != nil {
		return err
	}
	if p.StartAt.After(p.EndAt) {
		return fmt.Errorf("start_at must be <= end_at")
	}
	return nil
}

// List returns persisted snapshots for the window without computing anything.
func (uc *SnapshotsUseCase) List(ctx context.Context, p EnsureParams) ([]models.FeatureSnapshot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rows, err := uc.snapshots.ListByRange(ctx, p.Pair, p.Interval, p.FeatureSetVersionID, p.StartAt, p.EndAt)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return rows, nil
}

// Ensure guarantees a persisted snapshot exists for every candle timestamp in
// [StartAt, EndAt] and returns the full merged range. Only missing timestamps
// are computed; enough lookback history is fetched so stateful indicators are
// seeded identically to a from-scratch backfill.
func (uc *SnapshotsUseCase) Ensure(ctx context.Context, p EnsureParams) ([]models.FeatureSnapshot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	cfg, err := uc.featureSets.GetConfig(ctx, p.FeatureSetVersionID)
	if err != nil {
		return nil, fmt.Errorf("resolve feature set %q: %w", p.FeatureSetVersionID, err)
	}
	fingerprint := features.SchemaFingerprint(cfg)

	existing, err := uc.snapshots.ListByRange(ctx, p.Pair, p.Interval, p.FeatureSetVersionID, p.StartAt, p.EndAt)
	if err != nil {
		return nil, fmt.Errorf("list existing snapshots: %w", err)
	}
	existingByTime := make(map[int64]struct{}, len(existing))
	for _, row := range existing {
		existingByTime[row.CapturedAt.UnixMilli()] = struct{}{}
	}

	candleTimes, err := uc.candles.ListTimestamps(ctx, p.Pair, p.Interval, p.StartAt, p.EndAt)
	if err != nil {
		return nil, fmt.Errorf("list candle timestamps: %w", err)
	}

	missing := make(map[int64]struct{})
	earliestMissing := time.Time{}
	for _, ts := range candleTimes {
		if _, ok := existingByTime[ts.UnixMilli()]; ok {
			continue
		}
		missing[ts.UnixMilli()] = struct{}{}
		if earliestMissing.IsZero() || ts.Before(earliestMissing) {
			earliestMissing = ts
		}
	}
	if uc.metrics != nil {
		uc.metrics.RecordGapsDetected(p.Pair, p.Interval, len(missing))
	}
	if len(missing) == 0 {
		return existing, nil
	}

	if uc.locker != nil {
		lockKey := fmt.Sprintf("ensure:%s:%s:%s", p.Pair, p.Interval, p.FeatureSetVersionID)
		if ok, lockErr := uc.locker.TryLock(ctx, lockKey, uc.lockTTL); lockErr == nil && ok {
			defer func() { _ = uc.locker.Unlock(context.WithoutCancel(ctx), lockKey) }()
		}
		// Lock misses fall through: losing the race just means redundant
		// computation, the idempotent upsert keeps the data consistent.
	}

	indicators := features.Normalize(cfg)
	lookback := features.MaxLookback(indicators)
	intervalDur, err := domrepo.IntervalDuration(p.Interval)
	if err != nil {
		return nil, err
	}
	fetchStart := earliestMissing.Add(-time.Duration(lookback) * intervalDur)

	candles, err := uc.candles.ListCandles(ctx, p.Pair, p.Interval, fetchStart, p.EndAt)
	if err != nil {
		return nil, fmt.Errorf("list candles: %w", err)
	}
	if len(candles) == 0 {
		// Fail-soft: the window has gaps but no candle data to fill them.
		// Return what is cached; never write placeholder rows.
		if uc.logger != nil {
			uc.logger.Warn("ensure snapshots: no candles for required range",
				applogger.String("pair", p.Pair),
				applogger.String("interval", p.Interval),
				applogger.String("feature_set", p.FeatureSetVersionID),
				applogger.Int("missing", len(missing)),
			)
		}
		if uc.metrics != nil {
			uc.metrics.RecordError("no_candles")
		}
		return existing, nil
	}

	rows := features.BuildRows(features.BuildParams{
		Pair:                p.Pair,
		Interval:            p.Interval,
		FeatureSetVersionID: p.FeatureSetVersionID,
		SchemaFingerprint:   fingerprint,
		Candles:             candles,
		Config:              cfg,
	})

	// Lookback context forces recomputing some cached timestamps; only rows
	// filling an actual gap are written back.
	upsertRows := make([]models.FeatureSnapshot, 0, len(missing))
	warmupRows := 0
	for _, row := range rows {
		if _, ok := missing[row.CapturedAt.UnixMilli()]; !ok {
			continue
		}
		upsertRows = append(upsertRows, row)
		if row.Warmup {
			warmupRows++
		}
	}

	if len(upsertRows) > 0 {
		start := time.Now()
		if err := uc.snapshots.UpsertBatch(ctx, upsertRows); err != nil {
			if uc.metrics != nil {
				uc.metrics.RecordError("upsert")
			}
			return nil, fmt.Errorf("upsert snapshots: %w", err)
		}
		if uc.metrics != nil {
			uc.metrics.RecordStoreLatency("upsert_snapshots", time.Since(start).Seconds())
			uc.metrics.RecordSnapshotsComputed(p.Pair, p.Interval, len(upsertRows))
			uc.metrics.RecordWarmupRows(p.Pair, p.Interval, warmupRows)
		}
		uc.publish(ctx, upsertRows)
	}

	merged, err := uc.snapshots.ListByRange(ctx, p.Pair, p.Interval, p.FeatureSetVersionID, p.StartAt, p.EndAt)
	if err != nil {
		return nil, fmt.Errorf("re-read snapshots: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info("ensure snapshots ok",
			applogger.String("pair", p.Pair),
			applogger.String("interval", p.Interval),
			applogger.Int("computed", len(upsertRows)),
			applogger.Int("total", len(merged)),
		)
	}
	return merged, nil
}

// publish emits freshly computed rows for downstream consumers. Advisory
// only: failures are logged and counted, never surfaced.
func (uc *SnapshotsUseCase) publish(ctx context.Context, rows []models.FeatureSnapshot) {
	if uc.publisher == nil || len(rows) == 0 {
		return
	}
	if err := uc.publisher.PublishBatch(ctx, rows); err != nil {
		if uc.logger != nil {
			uc.logger.Warn("snapshot publish failed", applogger.Error(err))
		}
		if uc.metrics != nil {
			uc.metrics.RecordError("publish")
		}
	}
}
