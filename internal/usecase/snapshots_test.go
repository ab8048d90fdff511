package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	"FeatureSnap/internal/services/features"
)

type fakeCandleStore struct {
	candles    []models.Candle
	lastFetchS time.Time
	lastFetchE time.Time
}

func (f *fakeCandleStore) ListTimestamps(_ context.Context, _, _ string, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, c := range f.candles {
		if !c.OpenTime.Before(start) && !c.OpenTime.After(end) {
			out = append(out, c.OpenTime)
		}
	}
	return out, nil
}

func (f *fakeCandleStore) ListCandles(_ context.Context, _, _ string, start, end time.Time) ([]models.Candle, error) {
	f.lastFetchS, f.lastFetchE = start, end
	var out []models.Candle
	for _, c := range f.candles {
		if !c.OpenTime.Before(start) && !c.OpenTime.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeSnapshotStore struct {
	rows        map[int64]models.FeatureSnapshot
	upsertCalls int
	upsertRows  int
	failUpsert  bool
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{rows: make(map[int64]models.FeatureSnapshot)}
}

func (f *fakeSnapshotStore) ListByRange(_ context.Context, _, _, _ string, start, end time.Time) ([]models.FeatureSnapshot, error) {
	var out []models.FeatureSnapshot
	for _, row := range f.rows {
		if !row.CapturedAt.Before(start) && !row.CapturedAt.After(end) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

func (f *fakeSnapshotStore) UpsertBatch(_ context.Context, rows []models.FeatureSnapshot) error {
	if f.failUpsert {
		return errors.New("clickhouse unavailable")
	}
	f.upsertCalls++
	f.upsertRows += len(rows)
	for _, row := range rows {
		f.rows[row.CapturedAt.UnixMilli()] = row
	}
	return nil
}

type fakeFeatureSetStore struct {
	versions map[string]*models.FeatureSetVersion
}

func (f *fakeFeatureSetStore) Get(_ context.Context, id string) (*models.FeatureSetVersion, error) {
	return f.versions[id], nil
}

func (f *fakeFeatureSetStore) FindByLabel(_ context.Context, label string) (*models.FeatureSetVersion, error) {
	for _, v := range f.versions {
		if v.Label == label {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeFeatureSetStore) Insert(_ context.Context, v *models.FeatureSetVersion) error {
	f.versions[v.ID] = v
	return nil
}

func (f *fakeFeatureSetStore) List(_ context.Context) ([]models.FeatureSetVersion, error) {
	var out []models.FeatureSetVersion
	for _, v := range f.versions {
		out = append(out, *v)
	}
	return out, nil
}

func minuteCandles(n int, start float64, step float64) []models.Candle {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: 100,
		}
	}
	return out
}

func sma20Version(id string) *models.FeatureSetVersion {
	return &models.FeatureSetVersion{
		ID:    id,
		Label: "core",
		Config: models.FeatureSetConfig{
			Technical: models.TechnicalConfig{
				Enabled:    true,
				Indicators: []models.IndicatorDef{{Name: "sma", Params: map[string]float64{"period": 20}}},
			},
		},
	}
}

func newTestUseCase(candles domrepo.CandleStore, snaps *fakeSnapshotStore, sets *fakeFeatureSetStore) *SnapshotsUseCase {
	return NewSnapshotsUseCase(candles, snaps, NewFeatureSetsUseCase(sets), nil)
}

// buildRowsForTest pre-computes rows the same way the engine would, for
// seeding the fake store.
func buildRowsForTest(candles []models.Candle, versionID string) []models.FeatureSnapshot {
	cfg := sma20Version(versionID).Config
	return features.BuildRows(features.BuildParams{
		Pair:                "BTC-USDT",
		Interval:            "1m",
		FeatureSetVersionID: versionID,
		SchemaFingerprint:   features.SchemaFingerprint(cfg),
		Candles:             candles,
		Config:              cfg,
	})
}

func TestEnsureFullRangeScenario(t *testing.T) {
	candles := &fakeCandleStore{candles: minuteCandles(40, 2300.0, 0.1)}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(candles, snaps, sets)

	p := EnsureParams{
		Pair:                "Gold-USDT",
		Interval:            "1m",
		FeatureSetVersionID: "fsv-1",
		StartAt:             candles.candles[0].OpenTime,
		EndAt:               candles.candles[39].OpenTime,
	}
	rows, err := uc.Ensure(context.Background(), p)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(rows) != 40 {
		t.Fatalf("expected 40 snapshots, got %d", len(rows))
	}
	for i := 0; i < 19; i++ {
		if !rows[i].Warmup {
			t.Fatalf("row %d: expected warmup", i)
		}
		if rows[i].Features["sma_20"] != 0 {
			t.Fatalf("row %d: warmup sma must be 0", i)
		}
	}
	// Snapshot 20 carries the mean of closes 1..20.
	want := 0.0
	for i := 0; i < 20; i++ {
		want += 2300.0 + 0.1*float64(i)
	}
	want /= 20
	got := rows[19].Features["sma_20"]
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("snapshot 20: expected sma %v, got %v", want, got)
	}
}

func TestEnsureIdempotent(t *testing.T) {
	candles := &fakeCandleStore{candles: minuteCandles(40, 2300.0, 0.1)}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(candles, snaps, sets)

	p := EnsureParams{
		Pair: "Gold-USDT", Interval: "1m", FeatureSetVersionID: "fsv-1",
		StartAt: candles.candles[0].OpenTime, EndAt: candles.candles[39].OpenTime,
	}
	first, err := uc.Ensure(context.Background(), p)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	callsAfterFirst := snaps.upsertCalls

	second, err := uc.Ensure(context.Background(), p)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if snaps.upsertCalls != callsAfterFirst {
		t.Fatalf("second ensure must not write, calls %d -> %d", callsAfterFirst, snaps.upsertCalls)
	}
	if len(first) != len(second) {
		t.Fatalf("result size changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		for k, v := range first[i].Features {
			if second[i].Features[k] != v {
				t.Fatalf("row %d field %s differs: %v vs %v", i, k, v, second[i].Features[k])
			}
		}
	}
}

func TestEnsureFillsOnlyGaps(t *testing.T) {
	all := minuteCandles(120, 100, 1)
	candles := &fakeCandleStore{candles: all}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(candles, snaps, sets)

	// Pre-populate 100 of the 120 timestamps; the last 20 are the gap.
	pre := buildRowsForTest(all[:100], "fsv-1")
	for _, row := range pre {
		snaps.rows[row.CapturedAt.UnixMilli()] = row
	}

	rows, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m", FeatureSetVersionID: "fsv-1",
		StartAt: all[0].OpenTime, EndAt: all[119].OpenTime,
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(rows) != 120 {
		t.Fatalf("expected merged 120 rows, got %d", len(rows))
	}
	if snaps.upsertRows != 20 {
		t.Fatalf("expected exactly 20 rows written, got %d", snaps.upsertRows)
	}
}

func TestEnsureLookbackExtendedFetch(t *testing.T) {
	all := minuteCandles(200, 100, 1)
	candles := &fakeCandleStore{candles: all}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(candles, snaps, sets)

	// Everything cached except one timestamp near the end.
	pre := buildRowsForTest(all, "fsv-1")
	missingIdx := 150
	for i, row := range pre {
		if i == missingIdx {
			continue
		}
		snaps.rows[row.CapturedAt.UnixMilli()] = row
	}

	_, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m", FeatureSetVersionID: "fsv-1",
		StartAt: all[0].OpenTime, EndAt: all[199].OpenTime,
	})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if snaps.upsertRows != 1 {
		t.Fatalf("expected 1 row written, got %d", snaps.upsertRows)
	}
	// Lookback for sma(20) is the floor 34: the fetch starts 34 minutes
	// before the missing candle, not at the window start.
	wantStart := all[missingIdx].OpenTime.Add(-34 * time.Minute)
	if !candles.lastFetchS.Equal(wantStart) {
		t.Fatalf("expected fetch start %v, got %v", wantStart, candles.lastFetchS)
	}
	if !candles.lastFetchE.Equal(all[199].OpenTime) {
		t.Fatalf("expected fetch end %v, got %v", all[199].OpenTime, candles.lastFetchE)
	}
}

func TestEnsureNoCandlesFailSoft(t *testing.T) {
	all := minuteCandles(10, 100, 1)
	// Timestamps exist but full candle fetch yields nothing (e.g. retention
	// purged the range between the two queries).
	candles := &fakeCandleStore{candles: all}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(&splitBrainCandleStore{fakeCandleStore: candles}, snaps, sets)

	rows, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m", FeatureSetVersionID: "fsv-1",
		StartAt: all[0].OpenTime, EndAt: all[9].OpenTime,
	})
	if err != nil {
		t.Fatalf("no-candles must not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected only pre-existing rows (none), got %d", len(rows))
	}
	if snaps.upsertCalls != 0 {
		t.Fatalf("no rows may be written without candle data")
	}
}

// splitBrainCandleStore lists timestamps but returns no candle bodies.
type splitBrainCandleStore struct {
	*fakeCandleStore
}

func (s *splitBrainCandleStore) ListCandles(context.Context, string, string, time.Time, time.Time) ([]models.Candle, error) {
	return nil, nil
}

func TestEnsureUnknownFeatureSetIsHardError(t *testing.T) {
	candles := &fakeCandleStore{candles: minuteCandles(10, 100, 1)}
	snaps := newFakeSnapshotStore()
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}}
	uc := newTestUseCase(candles, snaps, sets)

	_, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m", FeatureSetVersionID: "nope",
		StartAt: time.Now().Add(-time.Hour), EndAt: time.Now(),
	})
	if !errors.Is(err, ErrFeatureSetNotFound) {
		t.Fatalf("expected ErrFeatureSetNotFound, got %v", err)
	}
}

func TestEnsureUpsertFailurePropagates(t *testing.T) {
	candles := &fakeCandleStore{candles: minuteCandles(10, 100, 1)}
	snaps := newFakeSnapshotStore()
	snaps.failUpsert = true
	sets := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{"fsv-1": sma20Version("fsv-1")}}
	uc := newTestUseCase(candles, snaps, sets)

	_, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m", FeatureSetVersionID: "fsv-1",
		StartAt: candles.candles[0].OpenTime, EndAt: candles.candles[9].OpenTime,
	})
	if err == nil {
		t.Fatalf("upsert failure must fail the ensure call")
	}
}

func TestEnsureRejectsUnknownInterval(t *testing.T) {
	uc := newTestUseCase(&fakeCandleStore{}, newFakeSnapshotStore(), &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}})
	_, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1w",
		StartAt: time.Now().Add(-time.Hour), EndAt: time.Now(),
	})
	if err == nil {
		t.Fatalf("unsupported interval must be rejected")
	}
}

func TestEnsureDefaultConfigForEmptyVersion(t *testing.T) {
	candles := &fakeCandleStore{candles: minuteCandles(5, 100, 1)}
	snaps := newFakeSnapshotStore()
	uc := newTestUseCase(candles, snaps, &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}})

	rows, err := uc.Ensure(context.Background(), EnsureParams{
		Pair: "BTC-USDT", Interval: "1m",
		StartAt: candles.candles[0].OpenTime, EndAt: candles.candles[4].OpenTime,
	})
	if err != nil {
		t.Fatalf("empty version id resolves the default config: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
}
