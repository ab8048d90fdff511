package features

import (
	"math"
	"strings"

	"FeatureSnap/internal/domain/models"
)

// Kind identifies a known indicator. Unknown names map to KindUnknown and are
// skipped by the builder, which keeps old engines forward-compatible with
// configs that declare indicators they don't implement yet.
type Kind int

const (
	KindUnknown Kind = iota
	KindSMA
	KindEMA
	KindRSI
	KindATR
	KindMACD
	KindBBands
	KindVWAP
)

// ParseKind maps a case-insensitive indicator name to its Kind.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sma":
		return KindSMA
	case "ema":
		return KindEMA
	case "rsi":
		return KindRSI
	case "atr":
		return KindATR
	case "macd":
		return KindMACD
	case "bbands":
		return KindBBands
	case "vwap":
		return KindVWAP
	default:
		return KindUnknown
	}
}

// Avg returns the arithmetic mean, 0 for an empty slice.
func Avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std returns the population standard deviation, 0 for fewer than 2 samples.
func Std(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Avg(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// window returns up to count values ending at index, clamped at the start of
// the series.
func window(values []float64, index, count int) []float64 {
	if count <= 0 || index < 0 || index >= len(values) {
		return nil
	}
	start := index - count + 1
	if start < 0 {
		start = 0
	}
	return values[start : index+1]
}

// SMA is the arithmetic mean of the last period closes ending at index.
// ok=false when fewer than period closes are available.
func SMA(closes []float64, period, index int) (float64, bool) {
	w := window(closes, index, period)
	if len(w) < period {
		return 0, false
	}
	return Avg(w), true
}

// emaAt iterates an EMA over a window of max(period*4, period) values ending
// at index, seeded with the first value of that window. This matches the
// persisted data; do not reseed with an SMA.
func emaAt(values []float64, period, index int) float64 {
	if index < 0 || index >= len(values) {
		return 0
	}
	if period <= 1 {
		return values[index]
	}
	alpha := 2.0 / float64(period+1)
	span := period * 4
	if span < period {
		span = period
	}
	w := window(values, index, span)
	if len(w) == 0 {
		return 0
	}
	ema := w[0]
	for i := 1; i < len(w); i++ {
		ema = alpha*w[i] + (1-alpha)*ema
	}
	return ema
}

// EMA returns the exponential moving average ending at index. ok=false while
// fewer than period closes exist.
func EMA(closes []float64, period, index int) (float64, bool) {
	if index+1 < period {
		return 0, false
	}
	return emaAt(closes, period, index), true
}

// RSI uses simple averages of gains/losses over the last period+1 closes
// (not Wilder smoothing; downstream models depend on this exact formula).
// A gains-only window returns exactly 100.
func RSI(closes []float64, period, index int) (float64, bool) {
	w := window(closes, index, period+1)
	if len(w) < period+1 {
		return 0, false
	}
	gains := 0.0
	losses := 0.0
	for i := 1; i < len(w); i++ {
		delta := w[i] - w[i-1]
		if delta >= 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// ATR is the simple arithmetic mean of the true range over the last period
// bars (not Wilder smoothing). ok=false with fewer than period true-range
// samples; index 0 has no previous close and never produces a value.
func ATR(highs, lows, closes []float64, period, index int) (float64, bool) {
	if index <= 0 || index >= len(closes) {
		return 0, false
	}
	start := index - period + 1
	if start < 1 {
		start = 1
	}
	trs := make([]float64, 0, index-start+1)
	for i := start; i <= index; i++ {
		prevClose := closes[i-1]
		tr := highs[i] - lows[i]
		if v := math.Abs(highs[i] - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(lows[i] - prevClose); v > tr {
			tr = v
		}
		trs = append(trs, tr)
	}
	if len(trs) < period {
		return 0, false
	}
	return Avg(trs), true
}

// MACDValue bundles the three MACD outputs.
type MACDValue struct {
	MACD   float64
	Signal float64
	Hist   float64
}

// MACD rebuilds the fast-slow EMA difference series from index 0 and runs the
// signal EMA over it. ok=false until index+1 >= slow+signal bars exist.
func MACD(closes []float64, fast, slow, signal, index int) (MACDValue, bool) {
	if index+1 < slow+signal {
		return MACDValue{}, false
	}
	series := make([]float64, 0, index+1)
	for i := 0; i <= index; i++ {
		series = append(series, emaAt(closes, fast, i)-emaAt(closes, slow, i))
	}
	macd := series[len(series)-1]
	sig := emaAt(series, signal, len(series)-1)
	return MACDValue{MACD: macd, Signal: sig, Hist: macd - sig}, true
}

// BBandsValue bundles the Bollinger band outputs.
type BBandsValue struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BBands computes middle = SMA(period) and bands at dev population standard
// deviations. ok=false with fewer than period closes.
func BBands(closes []float64, period, index int, dev float64) (BBandsValue, bool) {
	w := window(closes, index, period)
	if len(w) < period {
		return BBandsValue{}, false
	}
	middle := Avg(w)
	sigma := Std(w)
	return BBandsValue{
		Upper:  middle + dev*sigma,
		Middle: middle,
		Lower:  middle - dev*sigma,
	}, true
}

// VWAP is the volume-weighted average of typical price (H+L+C)/3 over the
// trailing period bars. ok=false on a short window; a zero-volume window
// yields 0 without the warmup flag.
func VWAP(candles []models.Candle, period, index int) (float64, bool) {
	if period <= 0 || index < 0 || index >= len(candles) {
		return 0, false
	}
	start := index - period + 1
	if start < 0 {
		start = 0
	}
	w := candles[start : index+1]
	if len(w) < period {
		return 0, false
	}
	num := 0.0
	den := 0.0
	for _, c := range w {
		typical := (c.High + c.Low + c.Close) / 3
		num += typical * c.Volume
		den += c.Volume
	}
	if den <= 0 {
		return 0, true
	}
	return num / den, true
}
