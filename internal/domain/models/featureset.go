package models

import "strings"

// IndicatorDef declares one configured indicator. Names and parameter keys are
// matched case-insensitively; normalization happens in the features package.
type IndicatorDef struct {
	Name        string             `json:"name" yaml:"name"`
	Params      map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
	OutputNames []string           `json:"outputNames,omitempty" yaml:"outputNames,omitempty"`
}

// TechnicalConfig toggles indicator computation and lists the indicator set.
type TechnicalConfig struct {
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Indicators []IndicatorDef `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

// FeatureSetConfig declares which features a snapshot run computes. Two
// configs are cache-equal iff their schema fingerprints match.
type FeatureSetConfig struct {
	Version     string          `json:"version,omitempty" yaml:"version,omitempty"`
	IncludeNews bool            `json:"includeNews" yaml:"includeNews"`
	IncludeOcr  bool            `json:"includeOcr" yaml:"includeOcr"`
	Technical   TechnicalConfig `json:"technical" yaml:"technical"`
}

// Label builds the human-readable feature set label, e.g. "core+news+ocr".
func (c FeatureSetConfig) Label() string {
	parts := []string{"core"}
	if c.IncludeNews {
		parts = append(parts, "news")
	}
	if c.IncludeOcr {
		parts = append(parts, "ocr")
	}
	return strings.Join(parts, "+")
}

// DefaultFeatureSetConfig is used when no feature set version id is supplied.
func DefaultFeatureSetConfig() FeatureSetConfig {
	return FeatureSetConfig{IncludeNews: true, IncludeOcr: false}
}

// FeatureSetVersion is a persisted, addressable feature set definition.
type FeatureSetVersion struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Config      FeatureSetConfig `json:"config"`
}
