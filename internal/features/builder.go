// Package features builds per-TF feature frames from an IdeaCard's
// declared FeatureSpecs (spec §4.2, component C5): topologically orders
// specs that read from other indicator outputs, computes each through
// the C4 registry, canonicalizes multi-output columns, and tracks the
// first valid index per column so downstream consumers never read a
// warmup-contaminated value.
package features

import (
	"math"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/ohlcv"
)

// Frame is the computed column set for one TF: every declared feature's
// canonical output columns, indexed by close-timestamp position in Bars.
type Frame struct {
	Bars         []ohlcv.Bar
	Columns      map[string][]float64
	FirstValid   map[string]int
	Sparse       map[string]bool
	MaxWarmup    int
}

// Get returns the value at bar index i for column key, or NaN if i is
// before the column's first valid index or out of range.
func (f *Frame) Get(key string, i int) float64 {
	col, ok := f.Columns[key]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Build computes every FeatureSpec declared on tfc against bars, in an
// order that resolves any input_source=indicator dependency before the
// spec that consumes it.
func Build(tfc *ideacard.TFConfig, bars []ohlcv.Bar, reg *indicators.Registry) (*Frame, error) {
	ordered, err := topoSort(tfc.FeatureSpecs)
	if err != nil {
		return nil, err
	}

	n := len(bars)
	frame := &Frame{
		Bars:       bars,
		Columns:    make(map[string][]float64),
		FirstValid: make(map[string]int),
		Sparse:     make(map[string]bool),
	}

	open, high, low, closeS, vol := splitSeries(bars)

	for _, fs := range ordered {
		entry, err := reg.Lookup(fs.IndicatorType)
		if err != nil {
			return nil, err
		}

		series := indicators.Series{Open: open, High: high, Low: low, Close: closeS, Volume: vol}
		switch fs.InputSource {
		case ideacard.InputOpen:
			series.Primary = open
		case ideacard.InputHigh:
			series.Primary = high
		case ideacard.InputLow:
			series.Primary = low
		case ideacard.InputClose:
			series.Primary = closeS
		case ideacard.InputVolume:
			series.Primary = vol
		case ideacard.InputHLC3:
			series.Primary = hlc3(bars)
		case ideacard.InputOHLC4:
			series.Primary = ohlc4(bars)
		case ideacard.InputIndicator:
			col, ok := frame.Columns[fs.InputIndicatorKey]
			if !ok {
				return nil, corerr.Newf(corerr.IndicatorNotDeclared, "feature %q references undeclared input_indicator_key %q", fs.OutputKey, fs.InputIndicatorKey).
					With(map[string]any{"output_key": fs.OutputKey, "input_indicator_key": fs.InputIndicatorKey})
			}
			series.Primary = col
		}

		raw, err := entry.Compute(series, fs.Params)
		if err != nil {
			return nil, corerr.Wrap(corerr.IndicatorNaN, err, "computing "+fs.IndicatorType)
		}

		keys, err := reg.CanonicalOutputKeys(fs.IndicatorType, fs.OutputKey)
		if err != nil {
			return nil, err
		}
		rawKeys := entry.OutputSuffixes
		if !entry.MultiOutput {
			rawKeys = []string{"value"}
		}
		if len(rawKeys) != len(keys) {
			return nil, corerr.Newf(corerr.MissingDeclaredOutputs, "indicator %q declares %d outputs, registry expects %d", fs.IndicatorType, len(rawKeys), len(keys))
		}

		warmup, err := reg.WarmupBars(fs.IndicatorType, fs.Params)
		if err != nil {
			return nil, err
		}
		if warmup > frame.MaxWarmup {
			frame.MaxWarmup = warmup
		}

		for idx, canonKey := range keys {
			rawKey := "value"
			if entry.MultiOutput {
				rawKey = rawKeys[idx]
			}
			col, ok := raw[rawKey]
			if !ok {
				return nil, corerr.Newf(corerr.MissingDeclaredOutputs, "indicator %q did not produce output %q", fs.IndicatorType, rawKey).
					With(map[string]any{"indicator_type": fs.IndicatorType, "missing_output": rawKey})
			}
			if len(col) != n {
				return nil, corerr.Newf(corerr.FeatureLengthMismatch, "column %q length %d != bar count %d", canonKey, len(col), n).
					With(map[string]any{"column": canonKey, "got": len(col), "want": n})
			}
			if _, exists := frame.Columns[canonKey]; exists {
				return nil, corerr.Newf(corerr.CanonicalCollision, "canonical column %q already produced by another feature_spec", canonKey).
					With(map[string]any{"column": canonKey})
			}

			if entry.Sparse {
				forwardFill(col)
			}

			frame.Columns[canonKey] = col
			frame.FirstValid[canonKey] = firstValidIndex(col)
			frame.Sparse[canonKey] = entry.Sparse
		}
	}

	return frame, nil
}

func firstValidIndex(col []float64) int {
	for i, v := range col {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(col)
}

// forwardFill carries the last non-NaN value forward, used for sparse
// structure-like indicators (swing pivots) so a consumer always sees the
// most recent confirmed value rather than a gap.
func forwardFill(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
}

func splitSeries(bars []ohlcv.Bar) (open, high, low, close, vol []float64) {
	n := len(bars)
	open = make([]float64, n)
	high = make([]float64, n)
	low = make([]float64, n)
	close = make([]float64, n)
	vol = make([]float64, n)
	for i, b := range bars {
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
		vol[i] = b.Volume
	}
	return
}

func hlc3(bars []ohlcv.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = (b.High + b.Low + b.Close) / 3
	}
	return out
}

func ohlc4(bars []ohlcv.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = (b.Open + b.High + b.Low + b.Close) / 4
	}
	return out
}

// topoSort orders FeatureSpecs so that any spec with input_source=indicator
// is placed after the spec declaring that output_key. Returns
// RULE_COMPILE_ERROR on a cycle and INDICATOR_NOT_DECLARED on an
// unresolvable reference.
func topoSort(specs []ideacard.FeatureSpec) ([]ideacard.FeatureSpec, error) {
	byKey := make(map[string]*ideacard.FeatureSpec, len(specs))
	for i := range specs {
		byKey[specs[i].OutputKey] = &specs[i]
	}

	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	var ordered []ideacard.FeatureSpec

	var visit func(fs *ideacard.FeatureSpec) error
	visit = func(fs *ideacard.FeatureSpec) error {
		switch visited[fs.OutputKey] {
		case 2:
			return nil
		case 1:
			return corerr.Newf(corerr.RuleCompileError, "cyclic feature dependency at %q", fs.OutputKey).
				With(map[string]any{"output_key": fs.OutputKey})
		}
		visited[fs.OutputKey] = 1
		if fs.InputSource == ideacard.InputIndicator {
			dep, ok := byKey[fs.InputIndicatorKey]
			if !ok {
				return corerr.Newf(corerr.IndicatorNotDeclared, "feature %q depends on undeclared %q", fs.OutputKey, fs.InputIndicatorKey).
					With(map[string]any{"output_key": fs.OutputKey, "input_indicator_key": fs.InputIndicatorKey})
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		visited[fs.OutputKey] = 2
		ordered = append(ordered, *fs)
		return nil
	}

	for i := range specs {
		if err := visit(&specs[i]); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
