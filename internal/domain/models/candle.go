package models

import "time"

// Candle represents one finalized OHLCV bar for a (pair, interval) bucket.
// Candles are immutable once written by the ingestion pipeline; this service
// only reads them.
type Candle struct {
	OpenTime time.Time
	Pair     string
	Interval string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
