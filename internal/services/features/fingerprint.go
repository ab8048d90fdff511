package features

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"FeatureSnap/internal/domain/models"
)

// canonicalIndicator is the hashed form of one indicator: lowercased name and
// lowercased numeric params. encoding/json writes map keys sorted, so the
// params serialization is already order-free.
type canonicalIndicator struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

type canonicalConfig struct {
	Version     string               `json:"version"`
	IncludeNews bool                 `json:"news"`
	IncludeOcr  bool                 `json:"ocr"`
	Enabled     bool                 `json:"enabled"`
	Indicators  []canonicalIndicator `json:"indicators"`
}

// SchemaFingerprint derives the content hash identifying a logical feature
// set configuration. Indicator list order does not affect the result; an
// unstable fingerprint here would silently fragment the snapshot cache.
func SchemaFingerprint(cfg models.FeatureSetConfig) string {
	normalized := Normalize(cfg)
	indicators := make([]canonicalIndicator, 0, len(normalized))
	for _, ind := range normalized {
		params := ind.Params
		if params == nil {
			params = map[string]float64{}
		}
		indicators = append(indicators, canonicalIndicator{Name: ind.Name, Params: params})
	}
	sort.Slice(indicators, func(i, j int) bool {
		if indicators[i].Name != indicators[j].Name {
			return indicators[i].Name < indicators[j].Name
		}
		li, _ := json.Marshal(indicators[i].Params)
		lj, _ := json.Marshal(indicators[j].Params)
		return string(li) < string(lj)
	})

	payload, _ := json.Marshal(canonicalConfig{
		Version:     cfg.Version,
		IncludeNews: cfg.IncludeNews,
		IncludeOcr:  cfg.IncludeOcr,
		Enabled:     cfg.Technical.Enabled,
		Indicators:  indicators,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
