package models

import "time"

// FeatureSnapshot is one persisted feature vector derived from a single candle.
// Primary key is (pair, interval, feature_set_version_id, captured_at); rows
// with the same key may be overwritten, last write wins. Field names are part
// of the storage/wire contract.
type FeatureSnapshot struct {
	Pair                string             `json:"pair"`
	Interval            string             `json:"interval"`
	FeatureSetVersionID string             `json:"feature_set_version_id"`
	CapturedAt          time.Time          `json:"captured_at"`
	SchemaFingerprint   string             `json:"schema_fingerprint"`
	Features            map[string]float64 `json:"features"`
	Warmup              bool               `json:"warmup"`
	IsComplete          bool               `json:"is_complete"`
	SourceWindowStart   time.Time          `json:"source_window_start"`
	SourceWindowEnd     time.Time          `json:"source_window_end"`
}

// Key returns the identity of the snapshot within one (pair, interval,
// feature set) partition, which is just its capture timestamp.
func (s *FeatureSnapshot) Key() time.Time { return s.CapturedAt }
