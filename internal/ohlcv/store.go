// Package ohlcv defines the read-only OHLCV/funding query interface the
// core consumes (spec §6, component C2) and the Bar/FundingEvent data
// model (spec §3). Historical data ingestion lives outside the core; this
// package only narrows the query surface and provides adapters over it.
package ohlcv

import (
	"context"

	"github.com/cryptorun/btcore/internal/timeframe"
)

// Bar is one completed OHLCV candle. Immutable once constructed.
type Bar struct {
	Symbol   string
	TF       timeframe.TF
	TSOpen   int64 // epoch ms, UTC-naive
	TSClose  int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Valid checks the Bar invariants from spec §3.
func (b Bar) Valid() bool {
	if b.High < b.Open || b.High < b.Close {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	d, err := timeframe.Duration(b.TF)
	if err != nil {
		return false
	}
	return b.TSClose == b.TSOpen+d.Milliseconds()
}

// FundingEvent is a single funding-rate application point.
type FundingEvent struct {
	TS           int64 // epoch ms
	Rate         float64
	IntervalHours int
}

// Store is the narrow read-only query interface the core consumes.
// Implementations must return bars ordered ascending by TSOpen, normalize
// symbol to uppercase, and return an empty slice (never fabricate rows)
// when no data exists in range.
type Store interface {
	GetOHLCV(ctx context.Context, symbol string, tf timeframe.TF, startMS, endMS int64) ([]Bar, error)
	GetFunding(ctx context.Context, symbol string, startMS, endMS int64) ([]FundingEvent, error)
}
