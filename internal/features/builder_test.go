package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

func syntheticBars(n int, start float64) []ohlcv.Bar {
	bars := make([]ohlcv.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		price += 1
		bars[i] = ohlcv.Bar{
			Symbol: "BTCUSDT", TF: timeframe.TF1h,
			TSOpen: int64(i) * 3600000, TSClose: int64(i+1) * 3600000,
			Open: price - 1, High: price + 1, Low: price - 2, Close: price, Volume: 100,
		}
	}
	return bars
}

func TestBuildSingleOutputFeature(t *testing.T) {
	reg := indicators.NewRegistry()
	bars := syntheticBars(30, 100)
	tfc := &ideacard.TFConfig{
		TF: timeframe.TF1h,
		FeatureSpecs: []ideacard.FeatureSpec{
			{IndicatorType: "sma", OutputKey: "sma_5", Params: map[string]any{"period": 5}, InputSource: ideacard.InputClose},
		},
	}
	frame, err := Build(tfc, bars, reg)
	require.NoError(t, err)
	assert.Equal(t, 4, frame.FirstValid["sma_5"])
	assert.True(t, math.IsNaN(frame.Get("sma_5", 3)))
	assert.False(t, math.IsNaN(frame.Get("sma_5", 4)))
}

func TestBuildMultiOutputFeature(t *testing.T) {
	reg := indicators.NewRegistry()
	bars := syntheticBars(60, 100)
	tfc := &ideacard.TFConfig{
		TF: timeframe.TF1h,
		FeatureSpecs: []ideacard.FeatureSpec{
			{IndicatorType: "bbands", OutputKey: "bb_20", Params: map[string]any{"period": 20}, InputSource: ideacard.InputClose},
		},
	}
	frame, err := Build(tfc, bars, reg)
	require.NoError(t, err)
	_, hasUpper := frame.Columns["bb_20_upper"]
	_, hasMiddle := frame.Columns["bb_20_middle"]
	_, hasLower := frame.Columns["bb_20_lower"]
	assert.True(t, hasUpper)
	assert.True(t, hasMiddle)
	assert.True(t, hasLower)
}

func TestBuildResolvesIndicatorOnIndicatorDependency(t *testing.T) {
	reg := indicators.NewRegistry()
	bars := syntheticBars(40, 100)
	tfc := &ideacard.TFConfig{
		TF: timeframe.TF1h,
		FeatureSpecs: []ideacard.FeatureSpec{
			{IndicatorType: "sma", OutputKey: "sma_of_sma", Params: map[string]any{"period": 3},
				InputSource: ideacard.InputIndicator, InputIndicatorKey: "sma_5"},
			{IndicatorType: "sma", OutputKey: "sma_5", Params: map[string]any{"period": 5}, InputSource: ideacard.InputClose},
		},
	}
	frame, err := Build(tfc, bars, reg)
	require.NoError(t, err)
	assert.Contains(t, frame.Columns, "sma_of_sma")
	assert.Contains(t, frame.Columns, "sma_5")
}

func TestBuildRejectsCyclicDependency(t *testing.T) {
	reg := indicators.NewRegistry()
	bars := syntheticBars(10, 100)
	tfc := &ideacard.TFConfig{
		TF: timeframe.TF1h,
		FeatureSpecs: []ideacard.FeatureSpec{
			{IndicatorType: "sma", OutputKey: "a", Params: map[string]any{"period": 3}, InputSource: ideacard.InputIndicator, InputIndicatorKey: "b"},
			{IndicatorType: "sma", OutputKey: "b", Params: map[string]any{"period": 3}, InputSource: ideacard.InputIndicator, InputIndicatorKey: "a"},
		},
	}
	_, err := Build(tfc, bars, reg)
	require.Error(t, err)
}

func TestBuildForwardFillsSparseIndicator(t *testing.T) {
	reg := indicators.NewRegistry()
	bars := syntheticBars(20, 100)
	// introduce a clean peak so a swing high confirms mid-series
	bars[10].High = 500
	tfc := &ideacard.TFConfig{
		TF: timeframe.TF1h,
		FeatureSpecs: []ideacard.FeatureSpec{
			{IndicatorType: "swing_high", OutputKey: "swh", Params: map[string]any{"left": 2, "right": 2}, InputSource: ideacard.InputHigh},
		},
	}
	frame, err := Build(tfc, bars, reg)
	require.NoError(t, err)
	col := frame.Columns["swh"]
	assert.False(t, math.IsNaN(col[len(col)-1]), "trailing value should be forward-filled, not NaN")
}
