package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	pkgch "FeatureSnap/pkg/clickhouse"
	applogger "FeatureSnap/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse. Candles are
// written by the ingestion pipeline; this store only reads.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

// ListTimestamps returns only the candle open times in range, ascending.
// Gap detection calls this instead of ListCandles so cached ranges never pull
// full OHLCV rows.
func (s *CHCandleStore) ListTimestamps(ctx context.Context, pair, interval string, start, end time.Time) ([]time.Time, error) {
	q := fmt.Sprintf(`
        SELECT open_time
        FROM %s
        WHERE pair = ? AND interval = ? AND open_time >= ? AND open_time <= ?
        ORDER BY open_time ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, pair, interval, start, end)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_timestamps query error",
				applogger.String("pair", pair),
				applogger.String("interval", interval),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list candle timestamps: %w", err)
	}
	defer rows.Close()

	out := make([]time.Time, 0, 1024)
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// ListCandles returns full OHLCV rows in range, ascending, inclusive bounds.
func (s *CHCandleStore) ListCandles(ctx context.Context, pair, interval string, start, end time.Time) ([]models.Candle, error) {
	began := time.Now()
	q := fmt.Sprintf(`
        SELECT open_time, pair, interval, open, high, low, close, volume
        FROM %s
        WHERE pair = ? AND interval = ? AND open_time >= ? AND open_time <= ?
        ORDER BY open_time ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, pair, interval, start, end)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_candles query error",
				applogger.String("pair", pair),
				applogger.String("interval", interval),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.OpenTime, &c.Pair, &c.Interval, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse list_candles scan error",
					applogger.String("pair", pair),
					applogger.String("interval", interval),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse list_candles ok",
			applogger.String("pair", pair),
			applogger.String("interval", interval),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return out, nil
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
