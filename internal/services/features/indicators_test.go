package features

import (
	"math"
	"testing"
	"time"

	"FeatureSnap/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func candlesFromCloses(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   10,
		}
	}
	return out
}

func TestSMAKnownValue(t *testing.T) {
	closes := []float64{10, 20, 30}
	v, ok := SMA(closes, 3, 2)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almostEqual(v, 20) {
		t.Fatalf("expected 20, got %v", v)
	}
}

func TestSMAWarmup(t *testing.T) {
	closes := []float64{10, 20}
	if _, ok := SMA(closes, 3, 1); ok {
		t.Fatalf("expected warmup with 2 of 3 closes")
	}
}

func TestEMAWarmupBoundary(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if _, ok := EMA(closes, 3, 1); ok {
		t.Fatalf("expected warmup at index 1 for period 3")
	}
	if _, ok := EMA(closes, 3, 2); !ok {
		t.Fatalf("expected value at index 2 for period 3")
	}
}

func TestEMASeededFromFirstWindowValue(t *testing.T) {
	// period 2, window = max(2*4, 2) = 8 values; seed is the first close in
	// the window, then alpha = 2/3 iterated forward.
	closes := []float64{10, 20, 30}
	alpha := 2.0 / 3.0
	want := closes[0]
	want = alpha*closes[1] + (1-alpha)*want
	want = alpha*closes[2] + (1-alpha)*want
	got, ok := EMA(closes, 2, 2)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almostEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRSIWarmup(t *testing.T) {
	closes := make([]float64, 14) // period+1 = 15 needed
	for i := range closes {
		closes[i] = float64(i)
	}
	if _, ok := RSI(closes, 14, len(closes)-1); ok {
		t.Fatalf("expected warmup with 14 of 15 closes")
	}
}

func TestRSIGainsOnlyIsExactly100(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	v, ok := RSI(closes, 14, 14)
	if !ok {
		t.Fatalf("expected ok")
	}
	if v != 100 {
		t.Fatalf("expected exactly 100, got %v", v)
	}
}

func TestRSISimpleAverageFormula(t *testing.T) {
	// period 2 over closes [10, 12, 11, 13]: deltas at index 3 window are
	// -1, +2 → avgGain=1, avgLoss=0.5, rs=2, rsi=100-100/3.
	closes := []float64{10, 12, 11, 13}
	v, ok := RSI(closes, 2, 3)
	if !ok {
		t.Fatalf("expected ok")
	}
	want := 100 - 100.0/3.0
	if !almostEqual(v, want) {
		t.Fatalf("expected %v, got %v", want, v)
	}
}

func TestATRSimpleAverage(t *testing.T) {
	highs := []float64{11, 13, 12}
	lows := []float64{9, 10, 10}
	closes := []float64{10, 12, 11}
	// tr[1] = max(3, |13-10|, |10-10|) = 3; tr[2] = max(2, |12-12|, |10-12|) = 2
	v, ok := ATR(highs, lows, closes, 2, 2)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almostEqual(v, 2.5) {
		t.Fatalf("expected 2.5, got %v", v)
	}
}

func TestATRWarmup(t *testing.T) {
	highs := []float64{11, 13}
	lows := []float64{9, 10}
	closes := []float64{10, 12}
	if _, ok := ATR(highs, lows, closes, 2, 0); ok {
		t.Fatalf("index 0 has no previous close")
	}
	if _, ok := ATR(highs, lows, closes, 2, 1); ok {
		t.Fatalf("expected warmup with a single true-range sample")
	}
}

func TestMACDWarmupBoundary(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	// slow+signal = 26+9 = 35 bars needed.
	if _, ok := MACD(closes, 12, 26, 9, 33); ok {
		t.Fatalf("expected warmup at index 33")
	}
	v, ok := MACD(closes, 12, 26, 9, 34)
	if !ok {
		t.Fatalf("expected value at index 34")
	}
	if !almostEqual(v.Hist, v.MACD-v.Signal) {
		t.Fatalf("hist must equal macd-signal, got %v vs %v", v.Hist, v.MACD-v.Signal)
	}
}

func TestMACDDeterministic(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/3)*5
	}
	a, _ := MACD(closes, 12, 26, 9, 49)
	b, _ := MACD(closes, 12, 26, 9, 49)
	if a != b {
		t.Fatalf("macd must be a pure function of its inputs: %v vs %v", a, b)
	}
}

func TestBBandsPopulationStddev(t *testing.T) {
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// Population stddev of this series is exactly 2, mean 5.
	v, ok := BBands(closes, 8, 7, 2)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almostEqual(v.Middle, 5) {
		t.Fatalf("expected middle 5, got %v", v.Middle)
	}
	if !almostEqual(v.Upper, 9) || !almostEqual(v.Lower, 1) {
		t.Fatalf("expected bands 9/1, got %v/%v", v.Upper, v.Lower)
	}
}

func TestBBandsWarmup(t *testing.T) {
	if _, ok := BBands([]float64{1, 2}, 3, 1, 2); ok {
		t.Fatalf("expected warmup with 2 of 3 closes")
	}
}

func TestVWAPWeightsByVolume(t *testing.T) {
	candles := []models.Candle{
		{High: 12, Low: 8, Close: 10, Volume: 1},  // typical 10
		{High: 22, Low: 18, Close: 20, Volume: 3}, // typical 20
	}
	v, ok := VWAP(candles, 2, 1)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almostEqual(v, 17.5) {
		t.Fatalf("expected 17.5, got %v", v)
	}
}

func TestVWAPZeroVolumeWindow(t *testing.T) {
	candles := []models.Candle{
		{High: 12, Low: 8, Close: 10, Volume: 0},
		{High: 22, Low: 18, Close: 20, Volume: 0},
	}
	v, ok := VWAP(candles, 2, 1)
	if !ok {
		t.Fatalf("zero volume is a value, not warmup")
	}
	if v != 0 {
		t.Fatalf("expected 0 for zero-volume window, got %v", v)
	}
}

func TestVWAPShortWindowIsWarmup(t *testing.T) {
	candles := candlesFromCloses([]float64{10})
	if _, ok := VWAP(candles, 2, 0); ok {
		t.Fatalf("expected warmup with 1 of 2 bars")
	}
}

func TestParseKindCaseInsensitive(t *testing.T) {
	if ParseKind("SMA") != KindSMA {
		t.Fatalf("expected case-insensitive parse")
	}
	if ParseKind(" macd ") != KindMACD {
		t.Fatalf("expected trimmed parse")
	}
	if ParseKind("supertrend") != KindUnknown {
		t.Fatalf("expected unknown kind")
	}
}
