package artifacts

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/exchange"
)

// tradeRow/equityRow are the on-disk column layouts. xitongsys/parquet-go
// derives the schema from struct tags, so these are the schema.
type tradeRow struct {
	ID         int64   `parquet:"name=id, type=INT64"`
	Side       string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	EntryPrice float64 `parquet:"name=entry_price, type=DOUBLE"`
	ExitPrice  float64 `parquet:"name=exit_price, type=DOUBLE"`
	Qty        float64 `parquet:"name=qty, type=DOUBLE"`
	EntryTS    int64   `parquet:"name=entry_ts, type=INT64"`
	ExitTS     int64   `parquet:"name=exit_ts, type=INT64"`
	PnLUSDT    float64 `parquet:"name=pnl_usdt, type=DOUBLE"`
	FeesUSDT   float64 `parquet:"name=fees_usdt, type=DOUBLE"`
	ExitReason string  `parquet:"name=exit_reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	MFE        float64 `parquet:"name=mfe, type=DOUBLE"`
	MAE        float64 `parquet:"name=mae, type=DOUBLE"`
}

type equityRow struct {
	TS          int64   `parquet:"name=ts, type=INT64"`
	Equity      float64 `parquet:"name=equity, type=DOUBLE"`
	DrawdownAbs float64 `parquet:"name=drawdown_abs, type=DOUBLE"`
	DrawdownPct float64 `parquet:"name=drawdown_pct, type=DOUBLE"`
}

type accountCurveRow struct {
	TS                    int64   `parquet:"name=ts, type=INT64"`
	EquityUSDT            float64 `parquet:"name=equity_usdt, type=DOUBLE"`
	UsedMarginUSDT        float64 `parquet:"name=used_margin_usdt, type=DOUBLE"`
	FreeMarginUSDT        float64 `parquet:"name=free_margin_usdt, type=DOUBLE"`
	AvailableBalanceUSDT  float64 `parquet:"name=available_balance_usdt, type=DOUBLE"`
	MaintenanceMarginUSDT float64 `parquet:"name=maintenance_margin_usdt, type=DOUBLE"`
	HasPosition           bool    `parquet:"name=has_position, type=BOOLEAN"`
	EntriesDisabled       bool    `parquet:"name=entries_disabled, type=BOOLEAN"`
}

// writeParquet writes rows (a slice of one of the row structs above) to
// path using snappy compression, via a temp-then-rename so a reader
// never observes a partially written file.
func writeParquet(path string, newRow func() any, rowCount int, set func(i int) any) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + "." + uuid.NewString() + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "opening parquet temp file")
	}
	pw, err := writer.NewParquetWriter(fw, newRow(), 4)
	if err != nil {
		_ = fw.Close()
		_ = os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "creating parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < rowCount; i++ {
		if err := pw.Write(set(i)); err != nil {
			_ = fw.Close()
			_ = os.Remove(tmp)
			return corerr.Wrap(corerr.ArtifactWriteFailed, err, "writing parquet row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		_ = os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "finalizing parquet footer")
	}
	if err := fw.Close(); err != nil {
		_ = os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "closing parquet file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactWriteFailed, err, "renaming parquet temp file into place")
	}
	return nil
}

// WriteTradesParquet writes the trade ledger to trades.parquet.
func WriteTradesParquet(path string, trades []exchange.Trade) error {
	return writeParquet(path, func() any { return new(tradeRow) }, len(trades), func(i int) any {
		t := trades[i]
		return tradeRow{
			ID: t.ID, Side: string(t.Side), EntryPrice: t.EntryPrice, ExitPrice: t.ExitPrice,
			Qty: t.Qty, EntryTS: t.EntryTS, ExitTS: t.ExitTS, PnLUSDT: t.PnLUSDT,
			FeesUSDT: t.FeesUSDT, ExitReason: t.ExitReason, MFE: t.MaxFavorableExcursion, MAE: t.MaxAdverseExcursion,
		}
	})
}

// WriteEquityParquet writes the equity curve to equity.parquet.
func WriteEquityParquet(path string, curve []exchange.EquityPoint) error {
	return writeParquet(path, func() any { return new(equityRow) }, len(curve), func(i int) any {
		p := curve[i]
		return equityRow{TS: p.TS, Equity: p.Equity, DrawdownAbs: p.DrawdownAbs, DrawdownPct: p.DrawdownPct}
	})
}

// WriteAccountCurveParquet writes the per-bar margin-usage snapshot to
// account_curve.parquet (spec §6 "Persisted run layout").
func WriteAccountCurveParquet(path string, points []exchange.AccountCurvePoint) error {
	return writeParquet(path, func() any { return new(accountCurveRow) }, len(points), func(i int) any {
		p := points[i]
		return accountCurveRow{
			TS: p.TS, EquityUSDT: p.EquityUSDT, UsedMarginUSDT: p.UsedMarginUSDT,
			FreeMarginUSDT: p.FreeMarginUSDT, AvailableBalanceUSDT: p.AvailableBalanceUSDT,
			MaintenanceMarginUSDT: p.MaintenanceMarginUSDT, HasPosition: p.HasPosition,
			EntriesDisabled: p.EntriesDisabled,
		}
	})
}
