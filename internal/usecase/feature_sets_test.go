package usecase

import (
	"context"
	"testing"

	"FeatureSnap/internal/domain/models"
)

func TestGetConfigEmptyIDResolvesDefault(t *testing.T) {
	uc := NewFeatureSetsUseCase(&fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}})
	cfg, err := uc.GetConfig(context.Background(), "")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if !cfg.IncludeNews || cfg.IncludeOcr {
		t.Fatalf("expected default config news=true ocr=false, got %+v", cfg)
	}
}

func TestGetConfigUnknownID(t *testing.T) {
	uc := NewFeatureSetsUseCase(&fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}})
	if _, err := uc.GetConfig(context.Background(), "missing"); err == nil {
		t.Fatalf("expected hard error for unknown version id")
	}
}

func TestResolveReusesExistingLabel(t *testing.T) {
	store := &fakeFeatureSetStore{versions: map[string]*models.FeatureSetVersion{}}
	uc := NewFeatureSetsUseCase(store)
	cfg := models.FeatureSetConfig{IncludeNews: true}

	first, err := uc.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Label != "core+news" {
		t.Fatalf("expected label core+news, got %s", first.Label)
	}

	second, err := uc.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resolve must reuse the stored version, got new id %s", second.ID)
	}
	if len(store.versions) != 1 {
		t.Fatalf("expected a single stored version, got %d", len(store.versions))
	}
}

func TestFeatureSetLabel(t *testing.T) {
	cases := []struct {
		cfg  models.FeatureSetConfig
		want string
	}{
		{models.FeatureSetConfig{}, "core"},
		{models.FeatureSetConfig{IncludeNews: true}, "core+news"},
		{models.FeatureSetConfig{IncludeNews: true, IncludeOcr: true}, "core+news+ocr"},
		{models.FeatureSetConfig{IncludeOcr: true}, "core+ocr"},
	}
	for _, c := range cases {
		if got := c.cfg.Label(); got != c.want {
			t.Fatalf("expected %s, got %s", c.want, got)
		}
	}
}
