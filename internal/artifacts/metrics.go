package artifacts

import (
	"math"

	"github.com/cryptorun/btcore/internal/exchange"
)

// Metrics is the summary report shape a run produces alongside its raw
// artifacts (a SUPPLEMENTED FEATURES item from SPEC_FULL.md). Generalized
// from the teacher's ad hoc mean/stddev/Sharpe/max-drawdown helpers
// (internal/backtest/march_aug/engine.go) from a post-hoc 48h-return
// analysis into a running-equity-curve and trade-ledger summary.
type Metrics struct {
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRatePct       float64
	ProfitFactor     float64
	TotalPnLUSDT     float64
	AvgPnLUSDT       float64
	AvgMFE           float64
	AvgMAE           float64
	Sharpe           float64
	MaxDrawdownUSDT  float64
	MaxDrawdownPct   float64
	TotalFeesUSDT    float64
	TotalFundingUSDT float64

	// RejectionCounts tallies rejected entry attempts by reason, set by
	// WriteRunArtifacts from exchange.Exchange.RejectionCounts (not
	// derivable from trades/curve alone).
	RejectionCounts map[string]int `json:"rejection_counts,omitempty"`

	// PnLDeciles buckets closed trades into up to 10 equal-count deciles
	// ordered by net PnL, ascending. Scoped to per-trade net_pnl since
	// this core has no standalone signal score.
	PnLDeciles []DecileBucket `json:"pnl_deciles,omitempty"`
}

// DecileBucket summarizes one PnL-ordered decile of closed trades.
type DecileBucket struct {
	Decile     int     `json:"decile"`
	TradeCount int     `json:"trade_count"`
	AvgPnLUSDT float64 `json:"avg_pnl_usdt"`
}

// Compute derives Metrics from a run's trades and equity curve.
func Compute(trades []exchange.Trade, curve []exchange.EquityPoint, ledger exchange.Ledger) Metrics {
	m := Metrics{TotalTrades: len(trades)}

	grossProfit, grossLoss := 0.0, 0.0
	mfeSum, maeSum := 0.0, 0.0
	returns := make([]float64, 0, len(trades))

	for _, tr := range trades {
		m.TotalPnLUSDT += tr.PnLUSDT
		mfeSum += tr.MaxFavorableExcursion
		maeSum += tr.MaxAdverseExcursion
		returns = append(returns, tr.PnLUSDT)
		if tr.PnLUSDT > 0 {
			m.WinningTrades++
			grossProfit += tr.PnLUSDT
		} else if tr.PnLUSDT < 0 {
			m.LosingTrades++
			grossLoss += -tr.PnLUSDT
		}
	}

	if m.TotalTrades > 0 {
		m.WinRatePct = 100 * float64(m.WinningTrades) / float64(m.TotalTrades)
		m.AvgPnLUSDT = m.TotalPnLUSDT / float64(m.TotalTrades)
		m.AvgMFE = mfeSum / float64(m.TotalTrades)
		m.AvgMAE = maeSum / float64(m.TotalTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	m.Sharpe = sharpe(returns)
	m.MaxDrawdownUSDT, m.MaxDrawdownPct = maxDrawdown(curve)
	m.TotalFeesUSDT = ledger.FeesPaidUSDT
	m.TotalFundingUSDT = ledger.FundingPaidUSDT
	m.PnLDeciles = pnlDeciles(trades)

	return m
}

// pnlDeciles mirrors the teacher's GenerateDecileAnalysis shape, bucketed
// by per-trade net PnL ascending instead of signal score (this core has
// no standalone score, only rule pass/fail).
func pnlDeciles(trades []exchange.Trade) []DecileBucket {
	n := len(trades)
	if n == 0 {
		return nil
	}
	sorted := make([]float64, n)
	for i, t := range trades {
		sorted[i] = t.PnLUSDT
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	numBuckets := 10
	if n < numBuckets {
		numBuckets = n
	}
	buckets := make([]DecileBucket, 0, numBuckets)
	base := n / numBuckets
	remainder := n % numBuckets
	idx := 0
	for d := 0; d < numBuckets; d++ {
		size := base
		if d < remainder {
			size++
		}
		sum := 0.0
		for k := 0; k < size; k++ {
			sum += sorted[idx+k]
		}
		buckets = append(buckets, DecileBucket{Decile: d + 1, TradeCount: size, AvgPnLUSDT: sum / float64(size)})
		idx += size
	}
	return buckets
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	avg := mean(values)
	sumSq := 0.0
	for _, v := range values {
		sumSq += (v - avg) * (v - avg)
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd
}

func maxDrawdown(curve []exchange.EquityPoint) (absUSDT, pct float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	maxDD := 0.0
	maxDDPct := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > maxDD {
			maxDD = dd
		}
		if peak > 0 {
			ddPct := 100 * dd / peak
			if ddPct > maxDDPct {
				maxDDPct = ddPct
			}
		}
	}
	return maxDD, maxDDPct
}
