package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	pkgch "FeatureSnap/pkg/clickhouse"
)

// CHFeatureSetStore persists feature set versions in ClickHouse. The table is
// tiny (one row per registered config); ReplacingMergeTree keyed by id gives
// last-write-wins updates like the snapshot table.
type CHFeatureSetStore struct {
	db    *sql.DB
	table string
}

func NewCHFeatureSetStore(ch *pkgch.Client, table string) *CHFeatureSetStore {
	return &CHFeatureSetStore{db: ch.DB(), table: table}
}

func (s *CHFeatureSetStore) Get(ctx context.Context, id string) (*models.FeatureSetVersion, error) {
	q := fmt.Sprintf(`
        SELECT id, label, description, config
        FROM %s FINAL
        WHERE id = ?
        LIMIT 1
    `, s.table)
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *CHFeatureSetStore) FindByLabel(ctx context.Context, label string) (*models.FeatureSetVersion, error) {
	q := fmt.Sprintf(`
        SELECT id, label, description, config
        FROM %s FINAL
        WHERE label = ?
        ORDER BY updated_at DESC
        LIMIT 1
    `, s.table)
	return s.scanOne(s.db.QueryRowContext(ctx, q, label))
}

func (s *CHFeatureSetStore) Insert(ctx context.Context, v *models.FeatureSetVersion) error {
	configJSON, err := json.Marshal(v.Config)
	if err != nil {
		return fmt.Errorf("encode feature set config: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, label, description, config, updated_at) VALUES (?, ?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, v.ID, v.Label, v.Description, string(configJSON), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert feature set version: %w", err)
	}
	return nil
}

func (s *CHFeatureSetStore) List(ctx context.Context) ([]models.FeatureSetVersion, error) {
	q := fmt.Sprintf(`
        SELECT id, label, description, config
        FROM %s FINAL
        ORDER BY updated_at DESC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list feature set versions: %w", err)
	}
	defer rows.Close()

	var out []models.FeatureSetVersion
	for rows.Next() {
		var v models.FeatureSetVersion
		var configJSON string
		if err := rows.Scan(&v.ID, &v.Label, &v.Description, &configJSON); err != nil {
			return nil, fmt.Errorf("scan feature set version: %w", err)
		}
		if err := json.Unmarshal([]byte(configJSON), &v.Config); err != nil {
			return nil, fmt.Errorf("decode feature set config %s: %w", v.ID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *CHFeatureSetStore) scanOne(row *sql.Row) (*models.FeatureSetVersion, error) {
	var v models.FeatureSetVersion
	var configJSON string
	if err := row.Scan(&v.ID, &v.Label, &v.Description, &configJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan feature set version: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &v.Config); err != nil {
		return nil, fmt.Errorf("decode feature set config %s: %w", v.ID, err)
	}
	return &v, nil
}

var _ domrepo.FeatureSetStore = (*CHFeatureSetStore)(nil)
