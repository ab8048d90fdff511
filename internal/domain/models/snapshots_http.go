package models

// Requests for snapshot HTTP endpoints. Defined in domain for consistency and reuse.

type EnsureSnapshotsRequest struct {
	Pair                string `query:"pair" json:"pair" validate:"required"`
	Interval            string `query:"interval" json:"interval" default:"1m" validate:"required"`
	FeatureSetVersionID string `query:"feature_set_version_id" json:"feature_set_version_id"`
	StartAt             string `query:"start_at" json:"start_at" validate:"required"`
	EndAt               string `query:"end_at" json:"end_at" validate:"required"`
}

type ListSnapshotsRequest struct {
	Pair                string `query:"pair" json:"pair" validate:"required"`
	Interval            string `query:"interval" json:"interval" default:"1m" validate:"required"`
	FeatureSetVersionID string `query:"feature_set_version_id" json:"feature_set_version_id"`
	StartAt             string `query:"start_at" json:"start_at"`
	EndAt               string `query:"end_at" json:"end_at"`
	Limit               int    `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

type ResolveFeatureSetRequest struct {
	IncludeNews bool            `json:"includeNews"`
	IncludeOcr  bool            `json:"includeOcr"`
	Technical   TechnicalConfig `json:"technical"`
}
