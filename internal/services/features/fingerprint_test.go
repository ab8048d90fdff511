package features

import (
	"testing"

	"FeatureSnap/internal/domain/models"
)

func TestSchemaFingerprintOrderIndependent(t *testing.T) {
	a := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "sma", Params: map[string]float64{"period": 20}},
				{Name: "rsi", Params: map[string]float64{"period": 14}},
			},
		},
	}
	b := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "RSI", Params: map[string]float64{"Period": 14}},
				{Name: "sma", Params: map[string]float64{"period": 20}},
			},
		},
	}
	if SchemaFingerprint(a) != SchemaFingerprint(b) {
		t.Fatalf("fingerprint must not depend on indicator order or key case")
	}
}

func TestSchemaFingerprintDistinguishesParams(t *testing.T) {
	a := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled:    true,
			Indicators: []models.IndicatorDef{{Name: "sma", Params: map[string]float64{"period": 20}}},
		},
	}
	b := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled:    true,
			Indicators: []models.IndicatorDef{{Name: "sma", Params: map[string]float64{"period": 50}}},
		},
	}
	if SchemaFingerprint(a) == SchemaFingerprint(b) {
		t.Fatalf("different parameterizations must produce different fingerprints")
	}
}

func TestSchemaFingerprintDistinguishesFlags(t *testing.T) {
	a := models.FeatureSetConfig{IncludeNews: true}
	b := models.FeatureSetConfig{IncludeNews: false}
	if SchemaFingerprint(a) == SchemaFingerprint(b) {
		t.Fatalf("flag changes must change the fingerprint")
	}
}

func TestSchemaFingerprintDuplicateIndicators(t *testing.T) {
	// Two sma defs with different periods are a legal config and must both
	// contribute to the hash.
	one := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled:    true,
			Indicators: []models.IndicatorDef{{Name: "sma", Params: map[string]float64{"period": 20}}},
		},
	}
	two := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "sma", Params: map[string]float64{"period": 20}},
				{Name: "sma", Params: map[string]float64{"period": 50}},
			},
		},
	}
	if SchemaFingerprint(one) == SchemaFingerprint(two) {
		t.Fatalf("adding an indicator must change the fingerprint")
	}
}
