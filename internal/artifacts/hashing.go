package artifacts

import (
	"github.com/cryptorun/btcore/internal/canonical"
	"github.com/cryptorun/btcore/internal/exchange"
)

// tradeToMap/equityToMap mirror the parquet row shapes (tradeRow/equityRow
// in parquet.go) so
// the hash is computed over exactly what gets persisted, field for field.
func tradeToMap(t exchange.Trade) map[string]any {
	return map[string]any{
		"id": t.ID, "side": string(t.Side), "entry_price": t.EntryPrice, "exit_price": t.ExitPrice,
		"qty": t.Qty, "entry_ts": t.EntryTS, "exit_ts": t.ExitTS, "pnl_usdt": t.PnLUSDT,
		"fees_usdt": t.FeesUSDT, "exit_reason": t.ExitReason,
		"mfe": t.MaxFavorableExcursion, "mae": t.MaxAdverseExcursion,
	}
}

func equityToMap(p exchange.EquityPoint) map[string]any {
	return map[string]any{
		"ts": p.TS, "equity": p.Equity,
		"drawdown_abs": p.DrawdownAbs, "drawdown_pct": p.DrawdownPct,
	}
}

// ComputeTradesHash hashes the canonical JSON of every trade, in fill
// order (order is semantically significant — it is not re-sorted).
func ComputeTradesHash(trades []exchange.Trade) (string, error) {
	rows := make([]any, len(trades))
	for i, t := range trades {
		rows[i] = tradeToMap(t)
	}
	data, err := canonical.JSON(rows)
	if err != nil {
		return "", err
	}
	return canonical.ShortHash(data, 16), nil
}

// ComputeEquityHash hashes the canonical JSON of the equity curve.
func ComputeEquityHash(curve []exchange.EquityPoint) (string, error) {
	rows := make([]any, len(curve))
	for i, p := range curve {
		rows[i] = equityToMap(p)
	}
	data, err := canonical.JSON(rows)
	if err != nil {
		return "", err
	}
	return canonical.ShortHash(data, 16), nil
}

// ComputeRunHash hashes the triple (idea_hash, trades_hash, equity_hash)
// into the single identity of a completed run.
func ComputeRunHash(ideaHash, tradesHash, equityHash string) (string, error) {
	payload := map[string]any{
		"idea_hash": ideaHash, "trades_hash": tradesHash, "equity_hash": equityHash,
	}
	data, err := canonical.JSON(payload)
	if err != nil {
		return "", err
	}
	return canonical.ShortHash(data, 16), nil
}
