package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	pkgcache "FeatureSnap/pkg/cache"
)

// ErrFeatureSetNotFound is returned when a feature set version id does not
// resolve. Nothing can be computed without a config, so callers must treat
// this as a hard failure.
var ErrFeatureSetNotFound = errors.New("feature set version not found")

// FeatureSetsUseCase resolves, caches, and registers feature set versions.
type FeatureSetsUseCase struct {
	store    domrepo.FeatureSetStore
	cache    pkgcache.Service
	cacheTTL time.Duration
}

// FeatureSetsOption configures FeatureSetsUseCase.
type FeatureSetsOption func(*FeatureSetsUseCase)

// WithConfigCache caches resolved configs; feature set definitions change
// rarely and every Ensure call resolves one.
func WithConfigCache(c pkgcache.Service, ttl time.Duration) FeatureSetsOption {
	return func(uc *FeatureSetsUseCase) {
		uc.cache = c
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

func NewFeatureSetsUseCase(store domrepo.FeatureSetStore, opts ...FeatureSetsOption) *FeatureSetsUseCase {
	uc := &FeatureSetsUseCase{store: store, cacheTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// GetConfig resolves a feature set version id to its config. An empty id
// resolves to the default config rather than an error, matching how training
// jobs run before any version is registered.
func (uc *FeatureSetsUseCase) GetConfig(ctx context.Context, id string) (models.FeatureSetConfig, error) {
	if id == "" {
		return models.DefaultFeatureSetConfig(), nil
	}

	cacheKey := "featureset:" + id
	if uc.cache != nil {
		var cached models.FeatureSetConfig
		if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	version, err := uc.store.Get(ctx, id)
	if err != nil {
		return models.FeatureSetConfig{}, fmt.Errorf("get feature set version: %w", err)
	}
	if version == nil {
		return models.FeatureSetConfig{}, fmt.Errorf("%w: %s", ErrFeatureSetNotFound, id)
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, cacheKey, version.Config, uc.cacheTTL)
	}
	return version.Config, nil
}

// Resolve returns the stored version matching the config's label, inserting a
// new one when absent.
func (uc *FeatureSetsUseCase) Resolve(ctx context.Context, cfg models.FeatureSetConfig) (*models.FeatureSetVersion, error) {
	label := cfg.Label()
	existing, err := uc.store.FindByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("find feature set by label: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	desc, _ := json.Marshal(map[string]bool{"news": cfg.IncludeNews, "ocr": cfg.IncludeOcr})
	version := &models.FeatureSetVersion{
		ID:          uuid.NewString(),
		Label:       label,
		Description: string(desc),
		Config:      cfg,
	}
	if err := uc.store.Insert(ctx, version); err != nil {
		return nil, fmt.Errorf("insert feature set version: %w", err)
	}
	return version, nil
}

// ListVersions returns all registered feature set versions.
func (uc *FeatureSetsUseCase) ListVersions(ctx context.Context) ([]models.FeatureSetVersion, error) {
	versions, err := uc.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feature set versions: %w", err)
	}
	return versions, nil
}
