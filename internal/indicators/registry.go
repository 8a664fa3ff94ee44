// Package indicators is the single source of truth for supported
// indicator types (spec §4.1, component C4): required inputs, permitted
// params, output keys, multi-output canonicalization, and warmup
// formulas. Nothing outside this package decides whether an indicator
// type is valid or how its outputs are named.
package indicators

import (
	"sort"

	"github.com/cryptorun/btcore/internal/corerr"
)

// InputSource enumerates what a FeatureSpec computes from. Defined here
// (not in ideacard) so the registry has no reverse dependency on the
// IdeaCard model; ideacard imports this type.
type InputSource string

const (
	InputClose     InputSource = "close"
	InputOpen      InputSource = "open"
	InputHigh      InputSource = "high"
	InputLow       InputSource = "low"
	InputVolume    InputSource = "volume"
	InputHLC3      InputSource = "hlc3"
	InputOHLC4     InputSource = "ohlc4"
	InputIndicator InputSource = "indicator"
)

// ParamType enumerates the permitted scalar types for a param value.
type ParamType string

const (
	ParamInt   ParamType = "int"
	ParamFloat ParamType = "float"
	ParamBool  ParamType = "bool"
)

// ParamSpec declares one permitted parameter name/type/default.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	Default  any
}

// WarmupFunc computes the number of leading invalid bars for a given,
// already-validated params map.
type WarmupFunc func(params map[string]any) int

// ComputeFunc computes raw output columns from an input series (and,
// for multi-series indicators, the full bar OHLCV columns). Returns a
// map of raw output name -> array, same length as the input.
type ComputeFunc func(input Series, params map[string]any) (map[string][]float64, error)

// Series bundles the per-bar numeric columns an indicator may need.
// Indicators that only need one series (e.g. RSI on close) read a single
// field; indicators needing true range (ATR) read High/Low/Close.
type Series struct {
	Open, High, Low, Close, Volume []float64
	Primary                        []float64 // the input_source-selected series
}

// Entry is one registry row: a single indicator type's full contract.
type Entry struct {
	Type           string
	AllowedInputs  []InputSource
	Params         []ParamSpec
	MultiOutput    bool
	OutputSuffixes []string // empty for single-output; e.g. ["upper","middle","lower"] for bbands
	Sparse         bool     // structure-like; forward-filled rather than always-valid after first_valid_idx
	Warmup         WarmupFunc
	Compute        ComputeFunc
}

// Registry is the table-driven indicator catalog.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds the default registry with the indicator set this
// core ships: sma, ema, rsi, atr, bbands, macd, donchian, swing_high,
// swing_low.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	for _, e := range defaultEntries() {
		r.entries[e.Type] = e
	}
	return r
}

// Lookup returns the registry entry for an indicator type, or
// UNSUPPORTED_INDICATOR_TYPE if unknown — never a silent fallback.
func (r *Registry) Lookup(indicatorType string) (Entry, error) {
	e, ok := r.entries[indicatorType]
	if !ok {
		return Entry{}, corerr.Newf(corerr.UnsupportedIndicatorType, "unknown indicator type %q", indicatorType).
			With(map[string]any{"indicator_type": indicatorType})
	}
	return e, nil
}

// Validate checks that inputSource and params are acceptable for
// indicatorType, returning INVALID_INDICATOR_PARAMS with the offending
// field named in context on failure.
func (r *Registry) Validate(indicatorType string, params map[string]any, inputSource InputSource) error {
	e, err := r.Lookup(indicatorType)
	if err != nil {
		return err
	}

	allowed := false
	for _, a := range e.AllowedInputs {
		if a == inputSource {
			allowed = true
			break
		}
	}
	if !allowed {
		return corerr.Newf(corerr.InvalidIndicatorParams, "input_source %q not allowed for indicator %q", inputSource, indicatorType).
			With(map[string]any{"indicator_type": indicatorType, "input_source": string(inputSource)})
	}

	declared := make(map[string]ParamSpec, len(e.Params))
	for _, p := range e.Params {
		declared[p.Name] = p
	}
	for _, p := range e.Params {
		if p.Required {
			if _, ok := params[p.Name]; !ok {
				return corerr.Newf(corerr.InvalidIndicatorParams, "missing required param %q for indicator %q", p.Name, indicatorType).
					With(map[string]any{"indicator_type": indicatorType, "param": p.Name})
			}
		}
	}
	for name := range params {
		if _, ok := declared[name]; !ok {
			return corerr.Newf(corerr.InvalidIndicatorParams, "unknown param %q for indicator %q", name, indicatorType).
				With(map[string]any{"indicator_type": indicatorType, "param": name})
		}
	}
	return nil
}

// CanonicalOutputKeys enumerates the deterministic output column names
// for a given output_key base: a single-output indicator maps to
// exactly {base}; a multi-output indicator maps to {base_suffix, ...}
// for each declared suffix, in declared order.
func (r *Registry) CanonicalOutputKeys(indicatorType, outputKeyBase string) ([]string, error) {
	e, err := r.Lookup(indicatorType)
	if err != nil {
		return nil, err
	}
	if !e.MultiOutput {
		return []string{outputKeyBase}, nil
	}
	keys := make([]string, 0, len(e.OutputSuffixes))
	for _, s := range e.OutputSuffixes {
		keys = append(keys, outputKeyBase+"_"+s)
	}
	return keys, nil
}

// WarmupBars reports the registry-declared warmup for a validated params
// map.
func (r *Registry) WarmupBars(indicatorType string, params map[string]any) (int, error) {
	e, err := r.Lookup(indicatorType)
	if err != nil {
		return 0, err
	}
	return e.Warmup(params), nil
}

// Types lists all registered indicator type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
