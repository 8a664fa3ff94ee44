// Package rediscache is a read-through cache decorator in front of an
// ohlcv.Store, keyed by (symbol, tf, start, end). It exists to absorb
// repeat bounded init-time reads (spec §5: the core only reads at
// construction, never during the hot loop) across many backtest runs
// against the same data window, without caching writes — the core never
// writes bars.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// Store wraps an underlying ohlcv.Store with a Redis read-through cache.
type Store struct {
	next    ohlcv.Store
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
}

// Config tunes cache TTL and breaker trip threshold.
type Config struct {
	TTL                 time.Duration
	ConsecutiveFailTrip uint32
}

func DefaultConfig() Config {
	return Config{TTL: 6 * time.Hour, ConsecutiveFailTrip: 3}
}

func New(next ohlcv.Store, client *redis.Client, cfg Config) *Store {
	settings := gobreaker.Settings{
		Name: "ohlcv-rediscache",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailTrip
		},
	}
	return &Store{
		next:    next,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		ttl:     cfg.TTL,
	}
}

func barsKey(symbol string, tf timeframe.TF, startMS, endMS int64) string {
	return fmt.Sprintf("btcore:bars:%s:%s:%d:%d", symbol, tf, startMS, endMS)
}

func fundingKey(symbol string, startMS, endMS int64) string {
	return fmt.Sprintf("btcore:funding:%s:%d:%d", symbol, startMS, endMS)
}

func (s *Store) GetOHLCV(ctx context.Context, symbol string, tf timeframe.TF, startMS, endMS int64) ([]ohlcv.Bar, error) {
	key := barsKey(symbol, tf, startMS, endMS)

	if cached, ok := s.readCache(ctx, key); ok {
		var bars []ohlcv.Bar
		if err := json.Unmarshal(cached, &bars); err == nil {
			return bars, nil
		}
	}

	bars, err := s.next.GetOHLCV(ctx, symbol, tf, startMS, endMS)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, bars)
	return bars, nil
}

func (s *Store) GetFunding(ctx context.Context, symbol string, startMS, endMS int64) ([]ohlcv.FundingEvent, error) {
	key := fundingKey(symbol, startMS, endMS)

	if cached, ok := s.readCache(ctx, key); ok {
		var events []ohlcv.FundingEvent
		if err := json.Unmarshal(cached, &events); err == nil {
			return events, nil
		}
	}

	events, err := s.next.GetFunding(ctx, symbol, startMS, endMS)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, events)
	return events, nil
}

func (s *Store) readCache(ctx context.Context, key string) ([]byte, bool) {
	if s.client == nil {
		return nil, false
	}
	result, err := s.breaker.Execute(func() (any, error) {
		return s.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			_ = corerr.Wrap(corerr.DataNotFound, err, "redis read failed") // discarded, not fatal: the caller falls through to the underlying store
		}
		return nil, false
	}
	return result.([]byte), true
}

func (s *Store) writeCache(ctx context.Context, key string, v any) {
	if s.client == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = s.breaker.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, key, data, s.ttl).Err()
	})
}
