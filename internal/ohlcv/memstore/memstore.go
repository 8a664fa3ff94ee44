// Package memstore provides a deterministic in-memory ohlcv.Store used by
// tests and by callers that already hold bars in memory. It replaces the
// teacher's rand.Seed-based MockDataSource with a fixed, seeded generator
// so that synthetic fixtures are bit-reproducible (spec §8 determinism).
package memstore

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// Store is a fixed, sorted slice-backed ohlcv.Store.
type Store struct {
	bars    map[string][]ohlcv.Bar // key: symbol|tf
	funding map[string][]ohlcv.FundingEvent
}

func New() *Store {
	return &Store{
		bars:    make(map[string][]ohlcv.Bar),
		funding: make(map[string][]ohlcv.FundingEvent),
	}
}

func key(symbol string, tf timeframe.TF) string { return symbol + "|" + string(tf) }

// PutBars installs a pre-built, ascending-by-TSOpen bar sequence.
func (s *Store) PutBars(symbol string, tf timeframe.TF, bars []ohlcv.Bar) {
	cp := make([]ohlcv.Bar, len(bars))
	copy(cp, bars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].TSOpen < cp[j].TSOpen })
	s.bars[key(symbol, tf)] = cp
}

// PutFunding installs a pre-built, ascending-by-TS funding sequence.
func (s *Store) PutFunding(symbol string, events []ohlcv.FundingEvent) {
	cp := make([]ohlcv.FundingEvent, len(events))
	copy(cp, events)
	sort.Slice(cp, func(i, j int) bool { return cp[i].TS < cp[j].TS })
	s.funding[symbol] = cp
}

func (s *Store) GetOHLCV(_ context.Context, symbol string, tf timeframe.TF, startMS, endMS int64) ([]ohlcv.Bar, error) {
	all := s.bars[key(symbol, tf)]
	var out []ohlcv.Bar
	for _, b := range all {
		if b.TSOpen >= startMS && b.TSOpen <= endMS {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetFunding(_ context.Context, symbol string, startMS, endMS int64) ([]ohlcv.FundingEvent, error) {
	all := s.funding[symbol]
	var out []ohlcv.FundingEvent
	for _, e := range all {
		if e.TS >= startMS && e.TS <= endMS {
			out = append(out, e)
		}
	}
	return out, nil
}

// SyntheticParams configures GenerateSynthetic's deterministic random walk.
type SyntheticParams struct {
	Symbol      string
	TF          timeframe.TF
	StartMS     int64
	Bars        int
	StartPrice  float64
	Volatility  float64 // stddev of per-bar log return
	Seed        int64
	FundingRate float64 // flat funding rate applied every 8h, 0 disables
}

// GenerateSynthetic builds a deterministic OHLCV sequence and, if
// FundingRate != 0, a matching funding series, and installs both.
// Grounded on march_aug/data_source.go's MockDataSource.GetMarketData,
// generalized to a single explicit rand.Source for reproducibility
// independent of global rand state.
func (s *Store) GenerateSynthetic(p SyntheticParams) error {
	if p.Bars <= 0 {
		return corerr.New(corerr.DataNotFound, "synthetic bar count must be positive")
	}
	stepMS, err := timeframe.DurationMS(p.TF)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(p.Seed))

	bars := make([]ohlcv.Bar, 0, p.Bars)
	price := p.StartPrice
	ts := p.StartMS
	for i := 0; i < p.Bars; i++ {
		logReturn := rng.NormFloat64() * p.Volatility
		open := price
		price = math.Max(price*math.Exp(logReturn), price*0.01)
		spread := p.Volatility * price
		high := math.Max(open, price) + rng.Float64()*spread
		low := math.Min(open, price) - rng.Float64()*spread
		if low <= 0 {
			low = math.Min(open, price) * 0.5
		}
		volume := 1000.0 * (0.5 + rng.Float64()*1.5)

		bars = append(bars, ohlcv.Bar{
			Symbol:  p.Symbol,
			TF:      p.TF,
			TSOpen:  ts,
			TSClose: ts + stepMS,
			Open:    open,
			High:    high,
			Low:     low,
			Close:   price,
			Volume:  volume,
		})
		ts += stepMS
	}
	s.PutBars(p.Symbol, p.TF, bars)

	if p.FundingRate != 0 {
		const eightHoursMS = int64(8 * 60 * 60 * 1000)
		var events []ohlcv.FundingEvent
		for t := p.StartMS; t <= ts; t += eightHoursMS {
			events = append(events, ohlcv.FundingEvent{TS: t, Rate: p.FundingRate, IntervalHours: 8})
		}
		s.PutFunding(p.Symbol, events)
	}
	return nil
}
