package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func intParam(params map[string]any, name string, def int) int {
	if v, ok := params[name]; ok {
		switch t := v.(type) {
		case int:
			return t
		case float64:
			return int(t)
		}
	}
	return def
}

func floatParam(params map[string]any, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		}
	}
	return def
}

// computeSMA is a plain simple moving average over Primary.
func computeSMA(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	n := len(s.Primary)
	out := nanSlice(n)
	if period <= 0 || n < period {
		return map[string][]float64{"value": out}, nil
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.Primary[i]
		if i >= period {
			sum -= s.Primary[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return map[string][]float64{"value": out}, nil
}

// computeEMA seeds with an SMA over the first period bars, then applies
// standard EMA smoothing, matching the Wilder-style seed-then-smooth
// shape used throughout internal/domain/indicators/technical.go.
func computeEMA(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	n := len(s.Primary)
	out := nanSlice(n)
	if period <= 0 || n < period {
		return map[string][]float64{"value": out}, nil
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += s.Primary[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema
	alpha := 2.0 / float64(period+1)
	for i := period; i < n; i++ {
		ema = s.Primary[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return map[string][]float64{"value": out}, nil
}

// computeRSI is Wilder's RSI, generalized from CalculateRSI (teacher's
// technical.go) into a full array instead of a single trailing value.
func computeRSI(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	n := len(s.Primary)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return map[string][]float64{"value": out}, nil
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := s.Primary[i] - s.Primary[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	setRSI := func(idx int, gain, loss float64) {
		if loss == 0 {
			if gain == 0 {
				out[idx] = 50.0
			} else {
				out[idx] = 100.0
			}
			return
		}
		rs := gain / loss
		out[idx] = 100.0 - 100.0/(1.0+rs)
	}
	setRSI(period, avgGain, avgLoss)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < n; i++ {
		avgGain = avgGain*(1-alpha) + gains[i]*alpha
		avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
		setRSI(i, avgGain, avgLoss)
	}
	return map[string][]float64{"value": out}, nil
}

// computeATR is Wilder's ATR, generalized from CalculateATR.
func computeATR(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	n := len(s.Close)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return map[string][]float64{"value": out}, nil
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := s.High[i] - s.Low[i]
		hc := math.Abs(s.High[i] - s.Close[i-1])
		lc := math.Abs(s.Low[i] - s.Close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	out[period] = atr

	alpha := 1.0 / float64(period)
	for i := period + 1; i < n; i++ {
		atr = atr*(1-alpha) + tr[i]*alpha
		out[i] = atr
	}
	return map[string][]float64{"value": out}, nil
}

// computeBBands is an SMA middle band with +/- mult*stddev envelopes.
func computeBBands(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	mult := floatParam(params, "mult", 2.0)
	n := len(s.Primary)
	upper, middle, lower := nanSlice(n), nanSlice(n), nanSlice(n)
	if period <= 0 || n < period {
		return map[string][]float64{"upper": upper, "middle": middle, "lower": lower}, nil
	}
	for i := period - 1; i < n; i++ {
		window := s.Primary[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(period)
		sd := math.Sqrt(variance)
		middle[i] = mean
		upper[i] = mean + mult*sd
		lower[i] = mean - mult*sd
	}
	return map[string][]float64{"upper": upper, "middle": middle, "lower": lower}, nil
}

func emaFrom(series []float64, period, startIdx int) []float64 {
	n := len(series)
	out := nanSlice(n)
	if startIdx+period > n {
		return out
	}
	sum := 0.0
	for i := startIdx; i < startIdx+period; i++ {
		sum += series[i]
	}
	ema := sum / float64(period)
	idx := startIdx + period - 1
	out[idx] = ema
	alpha := 2.0 / float64(period+1)
	for i := idx + 1; i < n; i++ {
		ema = series[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}

// computeMACD follows the standard fast/slow EMA difference with a
// signal-line EMA of the MACD line.
func computeMACD(s Series, params map[string]any) (map[string][]float64, error) {
	fast := intParam(params, "fast", 12)
	slow := intParam(params, "slow", 26)
	signal := intParam(params, "signal", 9)
	n := len(s.Primary)

	fastEMA := emaFrom(s.Primary, fast, 0)
	slowEMA := emaFrom(s.Primary, slow, 0)

	macd := nanSlice(n)
	firstMACDIdx := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
			if firstMACDIdx == -1 {
				firstMACDIdx = i
			}
		}
	}

	signalLine := nanSlice(n)
	hist := nanSlice(n)
	if firstMACDIdx >= 0 {
		sig := emaFrom(macd, signal, firstMACDIdx)
		for i := 0; i < n; i++ {
			signalLine[i] = sig[i]
			if !math.IsNaN(macd[i]) && !math.IsNaN(sig[i]) {
				hist[i] = macd[i] - sig[i]
			}
		}
	}
	return map[string][]float64{"macd": macd, "signal": signalLine, "hist": hist}, nil
}

// computeDonchian is a rolling channel high/low/mid over period bars.
func computeDonchian(s Series, params map[string]any) (map[string][]float64, error) {
	period := intParam(params, "period", 0)
	n := len(s.High)
	upper, lower, mid := nanSlice(n), nanSlice(n), nanSlice(n)
	if period <= 0 || n < period {
		return map[string][]float64{"upper": upper, "lower": lower, "mid": mid}, nil
	}
	for i := period - 1; i < n; i++ {
		hi, lo := s.High[i-period+1], s.Low[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if s.High[j] > hi {
				hi = s.High[j]
			}
			if s.Low[j] < lo {
				lo = s.Low[j]
			}
		}
		upper[i] = hi
		lower[i] = lo
		mid[i] = (hi + lo) / 2
	}
	return map[string][]float64{"upper": upper, "lower": lower, "mid": mid}, nil
}

// computeSwingHigh marks confirmed local maxima (left/right bars strictly
// lower) — a sparse, structure-like feature per spec §4.1/§9. A pivot at
// index i is written at i+right, the first bar at which it is confirmed.
func computeSwingHigh(s Series, params map[string]any) (map[string][]float64, error) {
	return computeSwing(s.Primary, params, true)
}

// computeSwingLow marks confirmed local minima.
func computeSwingLow(s Series, params map[string]any) (map[string][]float64, error) {
	return computeSwing(s.Primary, params, false)
}

func computeSwing(primary []float64, params map[string]any, high bool) (map[string][]float64, error) {
	left := intParam(params, "left", 2)
	right := intParam(params, "right", 2)
	n := len(primary)
	out := nanSlice(n)
	for i := left; i < n-right; i++ {
		isPivot := true
		for j := i - left; j <= i+right; j++ {
			if j == i {
				continue
			}
			if high && primary[j] >= primary[i] {
				isPivot = false
				break
			}
			if !high && primary[j] <= primary[i] {
				isPivot = false
				break
			}
		}
		if isPivot {
			out[i+right] = primary[i]
		}
	}
	return map[string][]float64{"value": out}, nil
}
