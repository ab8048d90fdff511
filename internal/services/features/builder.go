package features

import (
	"fmt"
	"math"
	"strings"

	"FeatureSnap/internal/domain/models"
)

// baseWindow is the trailing window for the built-in volatility and
// volume_avg features.
const baseWindow = 20

// reservedFields are zero-valued placeholders populated by enrichment
// collaborators outside this engine. They are always emitted so the vector
// shape stays stable across schema versions that later fill them.
var reservedFields = []string{
	"spread",
	"ideas_score",
	"signals_score",
	"news_score",
	"ocr_score",
	"news_confidence_avg",
	"ocr_confidence_avg",
	"ocr_text_length_avg",
	"aux_score",
}

// Indicator is a normalized indicator definition: lowercased name, lowercased
// numeric params, and a resolved Kind. Unknown names keep KindUnknown and pass
// through normalization so skipping them is an explicit compute branch.
type Indicator struct {
	Kind   Kind
	Name   string
	Params map[string]float64
}

// Normalize extracts the effective indicator list from a feature set config.
// Returns nil when technical indicators are disabled.
func Normalize(cfg models.FeatureSetConfig) []Indicator {
	if !cfg.Technical.Enabled {
		return nil
	}
	out := make([]Indicator, 0, len(cfg.Technical.Indicators))
	for _, def := range cfg.Technical.Indicators {
		name := strings.ToLower(strings.TrimSpace(def.Name))
		if name == "" {
			continue
		}
		params := make(map[string]float64, len(def.Params))
		for k, v := range def.Params {
			params[strings.ToLower(k)] = v
		}
		out = append(out, Indicator{Kind: ParseKind(name), Name: name, Params: params})
	}
	return out
}

// Series holds one candle slice with its per-component views, so indicator
// functions don't re-extract columns at every index.
type Series struct {
	Candles []models.Candle
	Closes  []float64
	Highs   []float64
	Lows    []float64
	Volumes []float64
}

// NewSeries builds column views over candles.
func NewSeries(candles []models.Candle) Series {
	s := Series{
		Candles: candles,
		Closes:  make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Closes[i] = c.Close
		s.Highs[i] = c.High
		s.Lows[i] = c.Low
		s.Volumes[i] = c.Volume
	}
	return s
}

func paramOr(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return def
}

func periodOr(params map[string]float64, def float64) int {
	p := int(paramOr(params, "period", def))
	if p < 1 {
		p = 1
	}
	return p
}

// Compute produces the full feature vector for one candle index: configured
// indicator outputs, the always-present base scalars, and the reserved zero
// fields. The second return is the warmup flag: true when any configured
// indicator lacked enough history at this index.
func Compute(indicators []Indicator, s Series, index int) (map[string]float64, bool) {
	features := make(map[string]float64, len(indicators)*2+baseWindow/2)
	warmup := false

	for _, ind := range indicators {
		switch ind.Kind {
		case KindSMA:
			period := periodOr(ind.Params, 14)
			v, ok := SMA(s.Closes, period, index)
			features[fmt.Sprintf("sma_%d", period)] = v
			warmup = warmup || !ok
		case KindEMA:
			period := periodOr(ind.Params, 14)
			v, ok := EMA(s.Closes, period, index)
			features[fmt.Sprintf("ema_%d", period)] = v
			warmup = warmup || !ok
		case KindRSI:
			period := periodOr(ind.Params, 14)
			v, ok := RSI(s.Closes, period, index)
			features[fmt.Sprintf("rsi_%d", period)] = v
			warmup = warmup || !ok
		case KindATR:
			period := periodOr(ind.Params, 14)
			v, ok := ATR(s.Highs, s.Lows, s.Closes, period, index)
			features[fmt.Sprintf("atr_%d", period)] = v
			warmup = warmup || !ok
		case KindMACD:
			fast := int(paramOr(ind.Params, "fastperiod", 12))
			if fast < 1 {
				fast = 1
			}
			slow := int(paramOr(ind.Params, "slowperiod", 26))
			if slow < fast+1 {
				slow = fast + 1
			}
			sig := int(paramOr(ind.Params, "signalperiod", 9))
			if sig < 1 {
				sig = 1
			}
			v, ok := MACD(s.Closes, fast, slow, sig, index)
			features[fmt.Sprintf("macd_%d_%d_%d", fast, slow, sig)] = v.MACD
			features[fmt.Sprintf("macd_signal_%d_%d_%d", fast, slow, sig)] = v.Signal
			features[fmt.Sprintf("macd_hist_%d_%d_%d", fast, slow, sig)] = v.Hist
			warmup = warmup || !ok
		case KindBBands:
			period := periodOr(ind.Params, 14)
			dev := paramOr(ind.Params, "nbdevup", paramOr(ind.Params, "dev", 2))
			v, ok := BBands(s.Closes, period, index, dev)
			features[fmt.Sprintf("bbands_upper_%d", period)] = v.Upper
			features[fmt.Sprintf("bbands_mid_%d", period)] = v.Middle
			features[fmt.Sprintf("bbands_lower_%d", period)] = v.Lower
			warmup = warmup || !ok
		case KindVWAP:
			period := periodOr(ind.Params, 14)
			v, ok := VWAP(s.Candles, period, index)
			features[fmt.Sprintf("vwap_%d", period)] = v
			warmup = warmup || !ok
		case KindUnknown:
			// Configured indicator this engine doesn't know. Skipped on
			// purpose: configs may add indicators before every deployment
			// understands them.
		}
	}

	last := s.Candles[index]
	prevIdx := index - 1
	if prevIdx < 0 {
		prevIdx = 0
	}
	prev := s.Candles[prevIdx]
	change := 0.0
	if prev.Close != 0 {
		change = (last.Close - prev.Close) / prev.Close
	}
	features["last_price"] = last.Close
	features["price_change"] = change
	features["volatility"] = rollingReturnStd(s.Closes, index, baseWindow)
	features["volume_avg"] = Avg(window(s.Volumes, index, baseWindow))
	for _, name := range reservedFields {
		features[name] = 0
	}
	return features, warmup
}

// rollingReturnStd is the population stddev of 1-bar returns over the
// trailing count closes. The first element of the window contributes a zero
// return; this asymmetry is part of the persisted numeric contract.
func rollingReturnStd(closes []float64, index, count int) float64 {
	w := window(closes, index, count)
	if len(w) < 2 {
		return 0
	}
	returns := make([]float64, len(w))
	for i := 1; i < len(w); i++ {
		if w[i-1] != 0 {
			returns[i] = (w[i] - w[i-1]) / w[i-1]
		}
	}
	return Std(returns)
}

// BuildParams carries everything needed to turn one candle slice into
// snapshot rows.
type BuildParams struct {
	Pair                string
	Interval            string
	FeatureSetVersionID string
	SchemaFingerprint   string
	Candles             []models.Candle
	Config              models.FeatureSetConfig
}

// BuildRows computes one FeatureSnapshot per candle. captured_at equals the
// candle open time; source_window_start points lookback candles earlier,
// clamped to the start of the slice.
func BuildRows(p BuildParams) []models.FeatureSnapshot {
	indicators := Normalize(p.Config)
	lookback := MaxLookback(indicators)
	series := NewSeries(p.Candles)

	rows := make([]models.FeatureSnapshot, 0, len(p.Candles))
	for i, candle := range p.Candles {
		vector, warmup := Compute(indicators, series, i)
		startIdx := i - lookback
		if startIdx < 0 {
			startIdx = 0
		}
		rows = append(rows, models.FeatureSnapshot{
			Pair:                p.Pair,
			Interval:            p.Interval,
			FeatureSetVersionID: p.FeatureSetVersionID,
			CapturedAt:          candle.OpenTime,
			SchemaFingerprint:   p.SchemaFingerprint,
			Features:            vector,
			Warmup:              warmup,
			IsComplete:          !warmup,
			SourceWindowStart:   p.Candles[startIdx].OpenTime,
			SourceWindowEnd:     candle.OpenTime,
		})
	}
	return rows
}
