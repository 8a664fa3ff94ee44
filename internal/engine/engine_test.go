package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/engineconfig"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/indicators"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/ohlcv/memstore"
	"github.com/cryptorun/btcore/internal/timeframe"
)

func testCard() *ideacard.IdeaCard {
	rsiPeriod := 14
	atrPeriod := 14
	thirty := 30.0
	return &ideacard.IdeaCard{
		ID: "test", Symbol: "BTCUSDT",
		TFConfigs: ideacard.TFConfigs{
			Exec: ideacard.TFConfig{
				TF: timeframe.TF1h,
				FeatureSpecs: []ideacard.FeatureSpec{
					{IndicatorType: "rsi", OutputKey: "rsi_14", Params: map[string]any{"period": rsiPeriod}, InputSource: ideacard.InputClose},
					{IndicatorType: "atr", OutputKey: "atr_14", Params: map[string]any{"period": atrPeriod}, InputSource: ideacard.InputClose},
				},
			},
		},
		Rules: ideacard.Rules{
			EntryLong: &ideacard.RuleExpr{Kind: ideacard.RuleLeaf, Cond: &ideacard.Condition{
				Op: ideacard.OpLT, Left: ideacard.FeatureRef{Key: "rsi_14", Role: timeframe.RoleExec}, RightConst: &thirty,
			}},
		},
		Risk: ideacard.Risk{
			SL: ideacard.StopLossModel{ATRKey: "atr_14", ATRMult: 1.5},
			TP: ideacard.TakeProfitModel{RMultiple: 2.0},
			RiskPerTradePct: 1.0,
		},
		Account: ideacard.Account{
			InitialEquityUSDT: 10000, MaxLeverage: 5, MaintenanceMarginRate: 0.005,
			TakerFeeRate: 0.0006, MarkSource: ideacard.MarkSourceClose,
			MarginMode: "isolated", PositionMode: "one_way", InstrumentType: "linear_perp",
		},
		Stops: ideacard.Stops{EquityFloorUSDT: 100, StarvationBars: 100000},
		Sim:   ideacard.SimConfig{FundingEnabled: false},
	}
}

func TestEngineRunCompletesToEndOfData(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.GenerateSynthetic(memstore.SyntheticParams{
		Symbol: "BTCUSDT", TF: timeframe.TF1h, StartMS: 0, Bars: 500,
		StartPrice: 100, Volatility: 0.02, Seed: 1,
	}))
	bars, err := store.GetOHLCV(context.Background(), "BTCUSDT", timeframe.TF1h, 0, 1<<62)
	require.NoError(t, err)

	reg := indicators.NewRegistry()
	barsByRole := map[timeframe.Role][]ohlcv.Bar{timeframe.RoleExec: bars}
	eng, err := New(testCard(), reg, engineconfig.Default(), barsByRole, nil)
	require.NoError(t, err)

	result, err := eng.Run()
	require.NoError(t, err)

	assert.Equal(t, StopEndOfData, result.StopReason)
	assert.NotEmpty(t, result.EquityCurve)
	assert.False(t, eng.ex.Position().Open)
}

func TestEngineRejectsInsufficientSimBars(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.GenerateSynthetic(memstore.SyntheticParams{
		Symbol: "BTCUSDT", TF: timeframe.TF1h, StartMS: 0, Bars: 5,
		StartPrice: 100, Volatility: 0.02, Seed: 1,
	}))
	bars, err := store.GetOHLCV(context.Background(), "BTCUSDT", timeframe.TF1h, 0, 1<<62)
	require.NoError(t, err)

	reg := indicators.NewRegistry()
	barsByRole := map[timeframe.Role][]ohlcv.Bar{timeframe.RoleExec: bars}
	cfg := engineconfig.Default()
	cfg.MinSimBars = 1000
	_, err = New(testCard(), reg, cfg, barsByRole, nil)
	require.Error(t, err)
}
