package features

// lookbackFloor covers the built-in 20-bar volatility/volume windows with
// margin. Under-sizing a lookback never errors; it degrades the affected rows
// to warmup=true.
const lookbackFloor = 34

// MaxLookback returns the number of candles that must precede the earliest
// requested timestamp for every configured indicator to be computable without
// warmup. It is the maximum parameter value across all indicators with a
// floor of lookbackFloor — a heuristic ceiling, not a per-indicator exact
// bound.
func MaxLookback(indicators []Indicator) int {
	max := float64(lookbackFloor)
	for _, ind := range indicators {
		for _, v := range ind.Params {
			if v > max {
				max = v
			}
		}
	}
	return int(max)
}
