package features

import (
	"testing"

	"FeatureSnap/internal/domain/models"
)

func smaConfig(period float64) models.FeatureSetConfig {
	return models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "sma", Params: map[string]float64{"period": period}},
			},
		},
	}
}

func TestNormalizeLowercasesAndFilters(t *testing.T) {
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "SMA", Params: map[string]float64{"Period": 20}},
				{Name: "  "},
				{Name: "supertrend", Params: map[string]float64{"period": 10}},
			},
		},
	}
	got := Normalize(cfg)
	if len(got) != 2 {
		t.Fatalf("expected 2 indicators, got %d", len(got))
	}
	if got[0].Name != "sma" || got[0].Kind != KindSMA {
		t.Fatalf("unexpected first indicator %+v", got[0])
	}
	if got[0].Params["period"] != 20 {
		t.Fatalf("expected lowercased param key, got %v", got[0].Params)
	}
	if got[1].Kind != KindUnknown {
		t.Fatalf("unknown indicators must survive normalization")
	}
}

func TestNormalizeDisabledTechnical(t *testing.T) {
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled:    false,
			Indicators: []models.IndicatorDef{{Name: "sma"}},
		},
	}
	if got := Normalize(cfg); len(got) != 0 {
		t.Fatalf("disabled technical config must yield no indicators, got %d", len(got))
	}
}

func TestComputeWarmupZeroFills(t *testing.T) {
	candles := candlesFromCloses([]float64{10, 11, 12})
	series := NewSeries(candles)
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "rsi", Params: map[string]float64{"period": 14}},
			},
		},
	}
	vector, warmup := Compute(Normalize(cfg), series, 2)
	if !warmup {
		t.Fatalf("expected warmup with 3 closes for rsi(14)")
	}
	if vector["rsi_14"] != 0 {
		t.Fatalf("warmup fields must be zero, got %v", vector["rsi_14"])
	}
}

func TestComputeSkipsUnknownIndicator(t *testing.T) {
	candles := candlesFromCloses([]float64{10, 11, 12})
	series := NewSeries(candles)
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "supertrend", Params: map[string]float64{"period": 10}},
			},
		},
	}
	vector, warmup := Compute(Normalize(cfg), series, 2)
	if warmup {
		t.Fatalf("unknown indicators must not set warmup")
	}
	for name := range vector {
		if name == "supertrend_10" {
			t.Fatalf("unknown indicator must not emit fields")
		}
	}
}

func TestComputeBaseAndReservedFields(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 110})
	series := NewSeries(candles)
	vector, _ := Compute(nil, series, 1)
	if vector["last_price"] != 110 {
		t.Fatalf("expected last_price 110, got %v", vector["last_price"])
	}
	if !almostEqual(vector["price_change"], 0.1) {
		t.Fatalf("expected 10%% change, got %v", vector["price_change"])
	}
	if vector["volume_avg"] != 10 {
		t.Fatalf("expected volume_avg 10, got %v", vector["volume_avg"])
	}
	for _, name := range reservedFields {
		v, ok := vector[name]
		if !ok {
			t.Fatalf("reserved field %s missing", name)
		}
		if v != 0 {
			t.Fatalf("reserved field %s must be zero, got %v", name, v)
		}
	}
}

func TestComputePriceChangeAtIndexZero(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 110})
	series := NewSeries(candles)
	vector, _ := Compute(nil, series, 0)
	if vector["price_change"] != 0 {
		t.Fatalf("first bar has no previous close, expected 0 change, got %v", vector["price_change"])
	}
}

func TestBuildRowsScenarioGoldUSDT(t *testing.T) {
	// 40 one-minute candles, closes 2300.0 .. 2300.39 stepping 0.1/min,
	// sma(20): first 19 rows warmup, row 20 onward the true trailing mean.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 2300.0 + 0.1*float64(i)
	}
	candles := candlesFromCloses(closes)
	cfg := smaConfig(20)
	rows := BuildRows(BuildParams{
		Pair:                "Gold-USDT",
		Interval:            "1m",
		FeatureSetVersionID: "fsv-1",
		SchemaFingerprint:   SchemaFingerprint(cfg),
		Candles:             candles,
		Config:              cfg,
	})
	if len(rows) != 40 {
		t.Fatalf("expected 40 rows, got %d", len(rows))
	}
	for i := 0; i < 19; i++ {
		if !rows[i].Warmup || rows[i].IsComplete {
			t.Fatalf("row %d: expected warmup", i)
		}
		if rows[i].Features["sma_20"] != 0 {
			t.Fatalf("row %d: warmup sma must be 0, got %v", i, rows[i].Features["sma_20"])
		}
	}
	for i := 19; i < 40; i++ {
		if rows[i].Warmup || !rows[i].IsComplete {
			t.Fatalf("row %d: expected complete", i)
		}
		want := Avg(closes[i-19 : i+1])
		if !almostEqual(rows[i].Features["sma_20"], want) {
			t.Fatalf("row %d: expected sma %v, got %v", i, want, rows[i].Features["sma_20"])
		}
	}
	// Snapshot 20 (index 19) is the mean of closes 1..20.
	if want := Avg(closes[0:20]); !almostEqual(rows[19].Features["sma_20"], want) {
		t.Fatalf("snapshot 20: expected %v, got %v", want, rows[19].Features["sma_20"])
	}
}

func TestBuildRowsWindowBounds(t *testing.T) {
	candles := candlesFromCloses([]float64{1, 2, 3})
	cfg := smaConfig(2)
	rows := BuildRows(BuildParams{
		Pair:     "BTC-USDT",
		Interval: "1m",
		Candles:  candles,
		Config:   cfg,
	})
	for i, row := range rows {
		if !row.CapturedAt.Equal(candles[i].OpenTime) {
			t.Fatalf("row %d: captured_at must equal candle open_time", i)
		}
		if !row.SourceWindowEnd.Equal(candles[i].OpenTime) {
			t.Fatalf("row %d: source_window_end must equal open_time", i)
		}
		// Lookback (floor 34) exceeds the slice, so the window start clamps
		// to the first candle.
		if !row.SourceWindowStart.Equal(candles[0].OpenTime) {
			t.Fatalf("row %d: expected clamped window start", i)
		}
	}
}

func TestBuildRowsDeterministic(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50 + float64(i%7)
	}
	candles := candlesFromCloses(closes)
	cfg := models.FeatureSetConfig{
		Technical: models.TechnicalConfig{
			Enabled: true,
			Indicators: []models.IndicatorDef{
				{Name: "macd", Params: map[string]float64{"fastperiod": 12, "slowperiod": 26, "signalperiod": 9}},
				{Name: "bbands", Params: map[string]float64{"period": 20, "dev": 2}},
			},
		},
	}
	p := BuildParams{Pair: "ETH-USDT", Interval: "1m", Candles: candles, Config: cfg}
	a := BuildRows(p)
	b := BuildRows(p)
	for i := range a {
		for k, v := range a[i].Features {
			if b[i].Features[k] != v {
				t.Fatalf("row %d field %s: %v vs %v", i, k, v, b[i].Features[k])
			}
		}
	}
}
