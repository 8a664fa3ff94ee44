// Package feedstore holds the immutable, columnar per-TF feature frame
// the hot loop reads from (spec §4.3, component C6): bars and computed
// indicator columns laid out as parallel slices (struct-of-arrays), with
// binary-search lookup by close timestamp. Built once per backtest run
// from a features.Frame and never mutated afterward.
package feedstore

import (
	"sort"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/features"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// FeedStore is one TF's frozen bar + indicator column set.
type FeedStore struct {
	Symbol  string
	TF      timeframe.TF
	bars    []ohlcv.Bar
	closeTS []int64 // parallel to bars, for binary search

	columns    map[string][]float64
	firstValid map[string]int
	sparse     map[string]bool
}

// New builds a FeedStore from a computed feature frame. Returns
// FEATURE_LENGTH_MISMATCH if any column's length disagrees with the bar
// count — this should never happen if features.Build succeeded, but the
// store re-checks its own invariant rather than trusting the caller.
func New(symbol string, tf timeframe.TF, frame *features.Frame) (*FeedStore, error) {
	n := len(frame.Bars)
	closeTS := make([]int64, n)
	for i, b := range frame.Bars {
		closeTS[i] = b.TSClose
	}
	for key, col := range frame.Columns {
		if len(col) != n {
			return nil, corerr.Newf(corerr.FeatureLengthMismatch, "feedstore column %q has length %d, want %d", key, len(col), n).
				With(map[string]any{"column": key, "got": len(col), "want": n})
		}
	}

	return &FeedStore{
		Symbol:     symbol,
		TF:         tf,
		bars:       frame.Bars,
		closeTS:    closeTS,
		columns:    frame.Columns,
		firstValid: frame.FirstValid,
		sparse:     frame.Sparse,
	}, nil
}

// Len returns the number of bars in the store.
func (fs *FeedStore) Len() int { return len(fs.bars) }

// BarAt returns the bar at index i.
func (fs *FeedStore) BarAt(i int) ohlcv.Bar { return fs.bars[i] }

// IndexAtOrBeforeClose returns the largest index i such that
// bars[i].TSClose <= ts, or -1 if every bar closes after ts.
func (fs *FeedStore) IndexAtOrBeforeClose(ts int64) int {
	i := sort.Search(len(fs.closeTS), func(i int) bool { return fs.closeTS[i] > ts })
	return i - 1
}

// IndicatorKeys lists every canonical column name the store holds.
func (fs *FeedStore) IndicatorKeys() []string {
	keys := make([]string, 0, len(fs.columns))
	for k := range fs.columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetIndicator returns the value of key at bar index i, and whether i is
// at or past that column's first-valid index. A false result means the
// value is warmup-contaminated NaN and must not be trusted by a caller.
func (fs *FeedStore) GetIndicator(key string, i int) (float64, bool) {
	col, ok := fs.columns[key]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	fv, ok := fs.firstValid[key]
	if !ok || i < fv {
		return 0, false
	}
	return col[i], true
}

// IsSparse reports whether key was declared sparse (forward-filled) by
// its indicator type.
func (fs *FeedStore) IsSparse(key string) bool {
	return fs.sparse[key]
}
