package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	pkgch "FeatureSnap/pkg/clickhouse"
	applogger "FeatureSnap/pkg/logger"
)

// upsertChunkSize bounds a single INSERT payload. Chunk boundaries don't
// affect correctness; each snapshot row is one atomic write.
const upsertChunkSize = 2000

// CHSnapshotStore implements SnapshotStore on a ReplacingMergeTree table.
// An "upsert" is a plain insert; the engine collapses duplicate primary keys
// keeping the newest updated_at, and reads use FINAL, which together give
// last-write-wins idempotency without client-side locking.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSnapshotStore(ch *pkgch.Client, table string) *CHSnapshotStore {
	return &CHSnapshotStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSnapshotStore) ListByRange(ctx context.Context, pair, interval, featureSetVersionID string, start, end time.Time) ([]models.FeatureSnapshot, error) {
	began := time.Now()
	q := fmt.Sprintf(`
        SELECT pair, interval, feature_set_version_id, captured_at,
               schema_fingerprint, features, warmup, is_complete,
               source_window_start, source_window_end
        FROM %s FINAL
        WHERE pair = ? AND interval = ? AND feature_set_version_id = ?
          AND captured_at >= ? AND captured_at <= ?
        ORDER BY captured_at ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, pair, interval, featureSetVersionID, start, end)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_snapshots query error",
				applogger.String("pair", pair),
				applogger.String("interval", interval),
				applogger.String("feature_set", featureSetVersionID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.FeatureSnapshot, 0, 1024)
	for rows.Next() {
		var row models.FeatureSnapshot
		var featuresJSON string
		var warmup, isComplete uint8
		if err := rows.Scan(
			&row.Pair, &row.Interval, &row.FeatureSetVersionID, &row.CapturedAt,
			&row.SchemaFingerprint, &featuresJSON, &warmup, &isComplete,
			&row.SourceWindowStart, &row.SourceWindowEnd,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &row.Features); err != nil {
			return nil, fmt.Errorf("decode features for %s@%s: %w", pair, row.CapturedAt, err)
		}
		row.Warmup = warmup != 0
		row.IsComplete = isComplete != 0
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse list_snapshots ok",
			applogger.String("pair", pair),
			applogger.String("interval", interval),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return out, nil
}

func (s *CHSnapshotStore) UpsertBatch(ctx context.Context, snapshots []models.FeatureSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	began := time.Now()
	now := time.Now().UTC()

	for start := 0; start < len(snapshots); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(snapshots) {
			end = len(snapshots)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, row := range snapshots[start:end] {
			featuresJSON, err := json.Marshal(row.Features)
			if err != nil {
				return fmt.Errorf("encode features for %s@%s: %w", row.Pair, row.CapturedAt, err)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				row.Pair,
				row.Interval,
				row.FeatureSetVersionID,
				row.CapturedAt,
				row.SchemaFingerprint,
				string(featuresJSON),
				boolToUInt8(row.Warmup),
				boolToUInt8(row.IsComplete),
				row.SourceWindowStart,
				row.SourceWindowEnd,
				now,
			)
		}

		q := fmt.Sprintf(`INSERT INTO %s
            (pair, interval, feature_set_version_id, captured_at, schema_fingerprint,
             features, warmup, is_complete, source_window_start, source_window_end, updated_at)
            VALUES %s`, s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse upsert_snapshots error",
					applogger.Int("chunk_start", start),
					applogger.Int("chunk_rows", end-start),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("upsert snapshots: %w", err)
		}
	}

	if s.l != nil {
		s.l.Info("clickhouse upsert_snapshots ok",
			applogger.Int("rows", len(snapshots)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ domrepo.SnapshotStore = (*CHSnapshotStore)(nil)
