package indicators

// anySeriesInputs lists the input sources valid for indicators that
// operate on a single derived series (close/open/high/low/volume/
// hlc3/ohlc4, or another indicator's output), i.e. everything except
// composite indicators that always read full OHLC regardless of
// input_source.
var anySeriesInputs = []InputSource{
	InputClose, InputOpen, InputHigh, InputLow, InputVolume, InputHLC3, InputOHLC4, InputIndicator,
}

func periodParam(required bool, def int) ParamSpec {
	return ParamSpec{Name: "period", Type: ParamInt, Required: required, Default: def}
}

// defaultEntries returns the indicator set this core ships. Grounded on
// the Wilder-style smoothing in the teacher's
// internal/domain/indicators/technical.go (RSI, ATR), generalized here
// from a single trailing value into a full per-bar array, plus standard
// SMA/EMA/Bollinger/MACD/Donchian and two sparse swing-pivot indicators
// exercising the forward-fill path.
func defaultEntries() []Entry {
	return []Entry{
		{
			Type:          "sma",
			AllowedInputs: anySeriesInputs,
			Params:        []ParamSpec{periodParam(true, 0)},
			Warmup:        func(p map[string]any) int { return intParam(p, "period", 1) - 1 },
			Compute:       func(s Series, p map[string]any) (map[string][]float64, error) { return computeSMA(s, p) },
		},
		{
			Type:          "ema",
			AllowedInputs: anySeriesInputs,
			Params:        []ParamSpec{periodParam(true, 0)},
			Warmup:        func(p map[string]any) int { return intParam(p, "period", 1) - 1 },
			Compute:       func(s Series, p map[string]any) (map[string][]float64, error) { return computeEMA(s, p) },
		},
		{
			Type:          "rsi",
			AllowedInputs: anySeriesInputs,
			Params:        []ParamSpec{periodParam(true, 0)},
			Warmup:        func(p map[string]any) int { return intParam(p, "period", 1) },
			Compute:       func(s Series, p map[string]any) (map[string][]float64, error) { return computeRSI(s, p) },
		},
		{
			Type:          "atr",
			AllowedInputs: []InputSource{InputClose},
			Params:        []ParamSpec{periodParam(true, 0)},
			Warmup:        func(p map[string]any) int { return intParam(p, "period", 1) },
			Compute:       func(s Series, p map[string]any) (map[string][]float64, error) { return computeATR(s, p) },
		},
		{
			Type:           "bbands",
			AllowedInputs:  anySeriesInputs,
			Params:         []ParamSpec{periodParam(true, 0), {Name: "mult", Type: ParamFloat, Required: false, Default: 2.0}},
			MultiOutput:    true,
			OutputSuffixes: []string{"upper", "middle", "lower"},
			Warmup:         func(p map[string]any) int { return intParam(p, "period", 1) - 1 },
			Compute:        func(s Series, p map[string]any) (map[string][]float64, error) { return computeBBands(s, p) },
		},
		{
			Type:          "macd",
			AllowedInputs: anySeriesInputs,
			Params: []ParamSpec{
				{Name: "fast", Type: ParamInt, Required: false, Default: 12},
				{Name: "slow", Type: ParamInt, Required: false, Default: 26},
				{Name: "signal", Type: ParamInt, Required: false, Default: 9},
			},
			MultiOutput:    true,
			OutputSuffixes: []string{"macd", "signal", "hist"},
			Warmup: func(p map[string]any) int {
				slow := intParam(p, "slow", 26)
				signal := intParam(p, "signal", 9)
				return slow + signal - 2
			},
			Compute: func(s Series, p map[string]any) (map[string][]float64, error) { return computeMACD(s, p) },
		},
		{
			Type:           "donchian",
			AllowedInputs:  []InputSource{InputClose},
			Params:         []ParamSpec{periodParam(true, 0)},
			MultiOutput:    true,
			OutputSuffixes: []string{"upper", "lower", "mid"},
			Warmup:         func(p map[string]any) int { return intParam(p, "period", 1) - 1 },
			Compute:        func(s Series, p map[string]any) (map[string][]float64, error) { return computeDonchian(s, p) },
		},
		{
			Type:          "swing_high",
			AllowedInputs: []InputSource{InputHigh, InputClose},
			Params: []ParamSpec{
				{Name: "left", Type: ParamInt, Required: false, Default: 2},
				{Name: "right", Type: ParamInt, Required: false, Default: 2},
			},
			Sparse: true,
			Warmup: func(p map[string]any) int { return intParam(p, "left", 2) + intParam(p, "right", 2) },
			Compute: func(s Series, p map[string]any) (map[string][]float64, error) {
				return computeSwingHigh(s, p)
			},
		},
		{
			Type:          "swing_low",
			AllowedInputs: []InputSource{InputLow, InputClose},
			Params: []ParamSpec{
				{Name: "left", Type: ParamInt, Required: false, Default: 2},
				{Name: "right", Type: ParamInt, Required: false, Default: 2},
			},
			Sparse: true,
			Warmup: func(p map[string]any) int { return intParam(p, "left", 2) + intParam(p, "right", 2) },
			Compute: func(s Series, p map[string]any) (map[string][]float64, error) {
				return computeSwingLow(s, p)
			},
		},
	}
}
