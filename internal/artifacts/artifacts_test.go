package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/engine"
	"github.com/cryptorun/btcore/internal/exchange"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/preflight"
)

func sampleTrades() []exchange.Trade {
	return []exchange.Trade{
		{ID: 1, Side: exchange.SideLong, EntryPrice: 100, ExitPrice: 110, Qty: 1, EntryTS: 1000, ExitTS: 2000, PnLUSDT: 10, FeesUSDT: 0.1, ExitReason: "tp", MaxFavorableExcursion: 12, MaxAdverseExcursion: 2},
		{ID: 2, Side: exchange.SideShort, EntryPrice: 110, ExitPrice: 120, Qty: 1, EntryTS: 3000, ExitTS: 4000, PnLUSDT: -10, FeesUSDT: 0.1, ExitReason: "sl", MaxFavorableExcursion: 1, MaxAdverseExcursion: 10},
	}
}

func sampleCurve() []exchange.EquityPoint {
	return []exchange.EquityPoint{
		{TS: 1000, Equity: 1000},
		{TS: 2000, Equity: 1010},
		{TS: 3000, Equity: 1005},
		{TS: 4000, Equity: 995},
	}
}

func TestComputeMetricsBasic(t *testing.T) {
	ledger := exchange.Ledger{EquityUSDT: 995, FeesPaidUSDT: 0.2, FundingPaidUSDT: 0.05}
	m := Compute(sampleTrades(), sampleCurve(), ledger)

	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 50.0, m.WinRatePct, 1e-9)
	assert.InDelta(t, 1.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 0.0, m.TotalPnLUSDT, 1e-9)
	assert.InDelta(t, 0.2, m.TotalFeesUSDT, 1e-9)
	assert.True(t, m.MaxDrawdownUSDT > 0)
	require.Len(t, m.PnLDeciles, 2)
	assert.Equal(t, 1, m.PnLDeciles[0].TradeCount)
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := Compute(nil, nil, exchange.Ledger{})
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRatePct)
	assert.Equal(t, 0.0, m.Sharpe)
}

func TestHashesAreDeterministic(t *testing.T) {
	trades := sampleTrades()
	curve := sampleCurve()

	h1, err := ComputeTradesHash(trades)
	require.NoError(t, err)
	h2, err := ComputeTradesHash(trades)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)

	eq1, err := ComputeEquityHash(curve)
	require.NoError(t, err)
	assert.Len(t, eq1, 16)

	run1, err := ComputeRunHash("ideahash", h1, eq1)
	require.NoError(t, err)
	run2, err := ComputeRunHash("ideahash", h1, eq1)
	require.NoError(t, err)
	assert.Equal(t, run1, run2)
}

func TestHashChangesWithTradeOrder(t *testing.T) {
	trades := sampleTrades()
	reordered := []exchange.Trade{trades[1], trades[0]}

	h1, err := ComputeTradesHash(trades)
	require.NoError(t, err)
	h2, err := ComputeTradesHash(reordered)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestWriteRunArtifactsProducesManifestAndFiles(t *testing.T) {
	dir := t.TempDir()
	card := &ideacard.IdeaCard{
		IdeaHash: "deadbeefcafef00d",
		TFConfigs: ideacard.TFConfigs{
			Exec: ideacard.TFConfig{
				FeatureSpecs: []ideacard.FeatureSpec{
					{OutputKey: "sma_5", FeatureSpecID: "abc123"},
				},
			},
		},
	}
	result := &engine.Result{
		Trades:      sampleTrades(),
		EquityCurve: sampleCurve(),
		AccountCurve: []exchange.AccountCurvePoint{
			{TS: 1000, EquityUSDT: 1000, UsedMarginUSDT: 200, FreeMarginUSDT: 800, AvailableBalanceUSDT: 800, MaintenanceMarginUSDT: 10, HasPosition: true},
		},
		StopReason:      engine.StopEndOfData,
		BarsSimulated:   4,
		FinalLedger:     exchange.Ledger{EquityUSDT: 995},
		RejectionCounts: map[string]int{"INSUFFICIENT_MARGIN": 2, "ENTRIES_DISABLED": 1},
	}
	report := &preflight.Report{Passed: true, Checks: []preflight.Check{{Name: "data_coverage:exec", Passed: true, Message: "4 contiguous bars"}}}

	manifest, err := WriteRunArtifacts(dir, card, result, report, []string{"sma", "ema"}, "btcore-0.1")
	require.NoError(t, err)

	assert.Equal(t, "deadbeefcafef00d", manifest.IdeaHash)
	assert.Equal(t, "abc123", manifest.FeatureSpecIDs["sma_5"])
	assert.Equal(t, "end_of_data", manifest.StopReason)
	assert.Len(t, manifest.RunHash, 16)
	assert.Equal(t, 2, manifest.Metrics.RejectionCounts["INSUFFICIENT_MARGIN"])
	require.Len(t, manifest.Metrics.PnLDeciles, 2)

	for _, f := range []string{"trades.parquet", "equity.parquet", "account_curve.parquet", "result.json", "pipeline_signature.json", "preflight_report.json"} {
		info, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, "expected %s to exist", f)
		assert.Greater(t, info.Size(), int64(0))
	}
}
