// Package postgres is a read-only ohlcv.Store backed by a Postgres table
// of already-ingested bars and funding events. It never writes; ingestion
// is explicitly out of scope for the core (spec §1). Reads are bounded to
// the engine's init-time construction window (spec §5 concurrency model:
// "no reads during the hot loop"), so the rate limiter and circuit
// breaker here guard a small number of bulk queries, not a hot path.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

var logger = log.With().Str("component", "ohlcv.postgres").Logger()

// Store queries a Postgres-backed bar table through a circuit breaker and
// a token-bucket limiter, matching the shape of infra/breakers.Breaker and
// infra/limits.PerKeyLimiter in the teacher repo.
type Store struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Config controls breaker/limiter tuning for bounded init-time reads.
type Config struct {
	BreakerName          string
	ConsecutiveFailTrip  uint32
	RequestsPerSecond    float64
	Burst                int
}

func DefaultConfig() Config {
	return Config{
		BreakerName:         "ohlcv-postgres",
		ConsecutiveFailTrip: 3,
		RequestsPerSecond:   20,
		Burst:               20,
	}
}

// Open wraps an existing *sqlx.DB (callers own connection lifecycle/DSN).
func Open(db *sqlx.DB, cfg Config) *Store {
	settings := gobreaker.Settings{
		Name: cfg.BreakerName,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailTrip
		},
	}
	return &Store{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

type barRow struct {
	Symbol  string  `db:"symbol"`
	TSOpen  int64   `db:"ts_open"`
	TSClose int64   `db:"ts_close"`
	Open    float64 `db:"open"`
	High    float64 `db:"high"`
	Low     float64 `db:"low"`
	Close   float64 `db:"close"`
	Volume  float64 `db:"volume"`
}

const selectBarsSQL = `
SELECT symbol, ts_open, ts_close, open, high, low, close, volume
FROM ohlcv_bars
WHERE symbol = $1 AND tf = $2 AND ts_open >= $3 AND ts_open <= $4
ORDER BY ts_open ASC`

func (s *Store) GetOHLCV(ctx context.Context, symbol string, tf timeframe.TF, startMS, endMS int64) ([]ohlcv.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, corerr.Wrap(corerr.DataNotFound, err, "rate limiter wait failed")
	}
	result, err := s.breaker.Execute(func() (any, error) {
		var rows []barRow
		err := s.db.SelectContext(ctx, &rows, selectBarsSQL, symbol, string(tf), startMS, endMS)
		return rows, err
	})
	if err != nil {
		logger.Error().Err(err).Str("symbol", symbol).Str("tf", string(tf)).Msg("ohlcv query failed")
		return nil, corerr.Wrap(corerr.DataNotFound, err, fmt.Sprintf("query bars for %s/%s", symbol, tf))
	}
	rows := result.([]barRow)
	bars := make([]ohlcv.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, ohlcv.Bar{
			Symbol: r.Symbol, TF: tf, TSOpen: r.TSOpen, TSClose: r.TSClose,
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	return bars, nil
}

type fundingRow struct {
	TS            int64   `db:"ts"`
	Rate          float64 `db:"rate"`
	IntervalHours int     `db:"interval_hours"`
}

const selectFundingSQL = `
SELECT ts, rate, interval_hours
FROM funding_events
WHERE symbol = $1 AND ts >= $2 AND ts <= $3
ORDER BY ts ASC`

func (s *Store) GetFunding(ctx context.Context, symbol string, startMS, endMS int64) ([]ohlcv.FundingEvent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, corerr.Wrap(corerr.DataNotFound, err, "rate limiter wait failed")
	}
	result, err := s.breaker.Execute(func() (any, error) {
		var rows []fundingRow
		err := s.db.SelectContext(ctx, &rows, selectFundingSQL, symbol, startMS, endMS)
		return rows, err
	})
	if err != nil {
		logger.Error().Err(err).Str("symbol", symbol).Msg("funding query failed")
		return nil, corerr.Wrap(corerr.DataNotFound, err, fmt.Sprintf("query funding for %s", symbol))
	}
	rows := result.([]fundingRow)
	events := make([]ohlcv.FundingEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, ohlcv.FundingEvent{TS: r.TS, Rate: r.Rate, IntervalHours: r.IntervalHours})
	}
	return events, nil
}
