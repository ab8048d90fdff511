package features

import (
	"testing"

	"FeatureSnap/internal/domain/models"
)

func TestMaxLookbackFloor(t *testing.T) {
	if got := MaxLookback(nil); got != 34 {
		t.Fatalf("expected floor 34, got %d", got)
	}
}

func TestMaxLookbackTakesLargestParam(t *testing.T) {
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "sma", Params: map[string]float64{"period": 50}},
			},
		},
	}
	if got := MaxLookback(Normalize(cfg)); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestMaxLookbackSmallPeriodsKeepFloor(t *testing.T) {
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "rsi", Params: map[string]float64{"period": 14}},
			},
		},
	}
	if got := MaxLookback(Normalize(cfg)); got != 34 {
		t.Fatalf("expected floor 34, got %d", got)
	}
}
