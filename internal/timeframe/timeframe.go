// Package timeframe models the canonical discrete timeframe set and the
// bar open/close arithmetic built on it (spec §3, component C1).
package timeframe

import (
	"time"

	"github.com/cryptorun/btcore/internal/corerr"
)

// TF is one of the eleven canonical timeframe strings.
type TF string

const (
	TF1m  TF = "1m"
	TF3m  TF = "3m"
	TF5m  TF = "5m"
	TF15m TF = "15m"
	TF30m TF = "30m"
	TF1h  TF = "1h"
	TF2h  TF = "2h"
	TF4h  TF = "4h"
	TF6h  TF = "6h"
	TF12h TF = "12h"
	TF1d  TF = "1d"
)

var durations = map[TF]time.Duration{
	TF1m:  time.Minute,
	TF3m:  3 * time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF2h:  2 * time.Hour,
	TF4h:  4 * time.Hour,
	TF6h:  6 * time.Hour,
	TF12h: 12 * time.Hour,
	TF1d:  24 * time.Hour,
}

// Valid reports whether tf is one of the closed set of supported
// timeframes.
func Valid(tf TF) bool {
	_, ok := durations[tf]
	return ok
}

// Duration returns the fixed step size for tf, or a RULE_COMPILE_ERROR if
// tf is not in the closed set.
func Duration(tf TF) (time.Duration, error) {
	d, ok := durations[tf]
	if !ok {
		return 0, corerr.Newf(corerr.RuleCompileError, "unsupported timeframe %q", string(tf)).
			With(map[string]any{"tf": string(tf)})
	}
	return d, nil
}

// DurationMS returns Duration(tf) as epoch-millisecond count.
func DurationMS(tf TF) (int64, error) {
	d, err := Duration(tf)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}

// Close computes ts_close = ts_open + duration(tf), all in UTC-naive epoch
// milliseconds.
func Close(tf TF, tsOpenMS int64) (int64, error) {
	d, err := DurationMS(tf)
	if err != nil {
		return 0, err
	}
	return tsOpenMS + d, nil
}

// CeilToClose returns the smallest ts_close of tf that is >= tsMS. It is
// used to align an arbitrary timestamp (e.g. a funding event) onto a TF's
// bar-close grid.
func CeilToClose(tf TF, tsMS int64) (int64, error) {
	d, err := DurationMS(tf)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return tsMS, nil
	}
	rem := tsMS % d
	if rem == 0 {
		return tsMS, nil
	}
	return tsMS + (d - rem), nil
}

// Roles are the three TF slots an IdeaCard may configure.
type Role string

const (
	RoleExec   Role = "exec"
	RoleMedTF  Role = "med_tf"
	RoleHighTF Role = "high_tf"
)
