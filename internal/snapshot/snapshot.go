// Package snapshot provides the per-bar runtime view the hot loop and
// rule evaluator read through (spec §4.4, component C7): an O(1)/O(log n)
// façade over the exec/med/high TF feedstores that resolves HTF/MTF
// forward-fill alignment, tracks staleness, and exposes both strict
// (hard-fail) and permissive (ok-bool) accessors.
package snapshot

import (
	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/feedstore"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

// FeatureRef mirrors ideacard.FeatureRef without importing ideacard, so
// this package stays a leaf the rule evaluator can build on top of.
type FeatureRef struct {
	Key    string
	Role   timeframe.Role
	Offset int
}

// View is advanced one exec bar at a time. It is not safe for concurrent
// use; a backtest run owns exactly one View.
type View struct {
	stores map[timeframe.Role]*feedstore.FeedStore

	roleIndex map[timeframe.Role]int
	staleBars map[timeframe.Role]int
}

// New builds a View over the given role->store mapping. RoleExec must be
// present; RoleMedTF/RoleHighTF are optional.
func New(stores map[timeframe.Role]*feedstore.FeedStore) (*View, error) {
	if _, ok := stores[timeframe.RoleExec]; !ok {
		return nil, corerr.New(corerr.MissingWarmupConfig, "snapshot view requires an exec-role feedstore")
	}
	return &View{
		stores:    stores,
		roleIndex: make(map[timeframe.Role]int),
		staleBars: make(map[timeframe.Role]int),
	}, nil
}

// Advance aligns every role to execIdx: RoleExec moves to execIdx
// directly; RoleMedTF/RoleHighTF move to the last bar whose close is <=
// the exec bar's close (forward-fill). StaleBars counts how many
// consecutive Advance calls have passed since a role's bar last changed.
func (v *View) Advance(execIdx int) error {
	execStore := v.stores[timeframe.RoleExec]
	if execIdx < 0 || execIdx >= execStore.Len() {
		return corerr.Newf(corerr.EndOfData, "exec index %d out of range [0,%d)", execIdx, execStore.Len())
	}
	v.roleIndex[timeframe.RoleExec] = execIdx
	v.staleBars[timeframe.RoleExec] = 0

	execCloseTS := execStore.BarAt(execIdx).TSClose

	for _, role := range []timeframe.Role{timeframe.RoleMedTF, timeframe.RoleHighTF} {
		store, ok := v.stores[role]
		if !ok {
			continue
		}
		idx := store.IndexAtOrBeforeClose(execCloseTS)
		prev, had := v.roleIndex[role]
		if had && prev == idx {
			v.staleBars[role]++
		} else {
			v.staleBars[role] = 0
		}
		v.roleIndex[role] = idx
	}
	return nil
}

// StaleBars reports how many Advance calls have elapsed since role's
// aligned bar last changed. 0 means the role's bar closed on this exec
// bar (or the role is RoleExec, which is never stale).
func (v *View) StaleBars(role timeframe.Role) int {
	return v.staleBars[role]
}

// CurrentIndex returns the aligned bar index for role, or -1 if the role
// has no bar at-or-before the current exec close (e.g. HTF history has
// not started yet).
func (v *View) CurrentIndex(role timeframe.Role) int {
	idx, ok := v.roleIndex[role]
	if !ok {
		return -1
	}
	return idx
}

// Bar returns the OHLCV bar for role at the given lookback offset from
// the current aligned index (offset 0 = current), strict: returns an
// error if the role is unconfigured or the offset runs off the front.
func (v *View) Bar(role timeframe.Role, offset int) (ohlcv.Bar, error) {
	store, ok := v.stores[role]
	if !ok {
		return ohlcv.Bar{}, corerr.Newf(corerr.IndicatorNotDeclared, "role %q is not configured", role).
			With(map[string]any{"role": string(role)})
	}
	idx := v.CurrentIndex(role) - offset
	if idx < 0 {
		return ohlcv.Bar{}, corerr.Newf(corerr.InsufficientCoverage, "role %q offset %d runs before bar 0", role, offset).
			With(map[string]any{"role": string(role), "offset": offset})
	}
	return store.BarAt(idx), nil
}

// Get resolves a FeatureRef strictly: missing role, unknown column,
// before-warmup read, or insufficient lookback all return an error
// rather than a sentinel value.
func (v *View) Get(ref FeatureRef) (float64, error) {
	if val, ok, isRaw := v.rawOHLCV(ref); isRaw {
		if !ok {
			return 0, corerr.Newf(corerr.InsufficientCoverage, "raw field %q on role %q offset %d unavailable", ref.Key, ref.Role, ref.Offset).
				With(map[string]any{"key": ref.Key, "role": string(ref.Role), "offset": ref.Offset})
		}
		return val, nil
	}

	store, ok := v.stores[ref.Role]
	if !ok {
		return 0, corerr.Newf(corerr.IndicatorNotDeclared, "role %q is not configured", ref.Role).
			With(map[string]any{"role": string(ref.Role)})
	}
	idx := v.CurrentIndex(ref.Role) - ref.Offset
	if idx < 0 {
		return 0, corerr.Newf(corerr.InsufficientCoverage, "feature %q on role %q offset %d runs before bar 0", ref.Key, ref.Role, ref.Offset).
			With(map[string]any{"key": ref.Key, "role": string(ref.Role), "offset": ref.Offset})
	}
	val, ok := store.GetIndicator(ref.Key, idx)
	if !ok {
		return 0, corerr.Newf(corerr.IndicatorNaN, "feature %q on role %q at index %d is not yet valid", ref.Key, ref.Role, idx).
			With(map[string]any{"key": ref.Key, "role": string(ref.Role), "index": idx})
	}
	return val, nil
}

// GetOK is the permissive counterpart to Get: it reports success via the
// bool rather than an error, for callers (diagnostics, preflight probes)
// that want to check availability without constructing a CoreError.
func (v *View) GetOK(ref FeatureRef) (float64, bool) {
	val, err := v.Get(ref)
	if err != nil {
		return 0, false
	}
	return val, true
}

func (v *View) rawOHLCV(ref FeatureRef) (value float64, ok bool, isRaw bool) {
	switch ref.Key {
	case "open", "high", "low", "close", "volume":
	default:
		return 0, false, false
	}
	b, err := v.Bar(ref.Role, ref.Offset)
	if err != nil {
		return 0, false, true
	}
	switch ref.Key {
	case "open":
		return b.Open, true, true
	case "high":
		return b.High, true, true
	case "low":
		return b.Low, true, true
	case "close":
		return b.Close, true, true
	case "volume":
		return b.Volume, true, true
	}
	return 0, false, true
}
