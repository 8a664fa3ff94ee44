package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/feedstore"
	"github.com/cryptorun/btcore/internal/features"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

func buildStore(t *testing.T, tf timeframe.TF, n int, stepMS int64, firstValid int) *feedstore.FeedStore {
	t.Helper()
	bars := make([]ohlcv.Bar, n)
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		bars[i] = ohlcv.Bar{
			TF: tf, TSOpen: int64(i) * stepMS, TSClose: int64(i+1) * stepMS,
			Open: 100, High: 101, Low: 99, Close: 100 + float64(i), Volume: 10,
		}
		col[i] = float64(i)
	}
	frame := &features.Frame{
		Bars: bars, Columns: map[string][]float64{"x": col},
		FirstValid: map[string]int{"x": firstValid}, Sparse: map[string]bool{"x": false},
	}
	fs, err := feedstore.New("BTCUSDT", tf, frame)
	require.NoError(t, err)
	return fs
}

func TestAdvanceAlignsHigherTFForwardFill(t *testing.T) {
	exec := buildStore(t, timeframe.TF15m, 16, 15*60*1000, 0)
	high := buildStore(t, timeframe.TF1h, 4, 3600*1000, 0)

	v, err := New(map[timeframe.Role]*feedstore.FeedStore{
		timeframe.RoleExec:   exec,
		timeframe.RoleHighTF: high,
	})
	require.NoError(t, err)

	require.NoError(t, v.Advance(0))
	assert.Equal(t, -1, v.CurrentIndex(timeframe.RoleHighTF))

	require.NoError(t, v.Advance(3))
	assert.Equal(t, 0, v.CurrentIndex(timeframe.RoleHighTF))
	assert.Equal(t, 0, v.StaleBars(timeframe.RoleHighTF))

	require.NoError(t, v.Advance(4))
	assert.Equal(t, 0, v.CurrentIndex(timeframe.RoleHighTF))
	assert.Equal(t, 1, v.StaleBars(timeframe.RoleHighTF))

	require.NoError(t, v.Advance(7))
	assert.Equal(t, 1, v.CurrentIndex(timeframe.RoleHighTF))
	assert.Equal(t, 0, v.StaleBars(timeframe.RoleHighTF))
}

func TestGetStrictFailsBeforeFirstValid(t *testing.T) {
	exec := buildStore(t, timeframe.TF1h, 10, 3600*1000, 3)
	v, err := New(map[timeframe.Role]*feedstore.FeedStore{timeframe.RoleExec: exec})
	require.NoError(t, err)
	require.NoError(t, v.Advance(1))

	_, err = v.Get(FeatureRef{Key: "x", Role: timeframe.RoleExec, Offset: 0})
	require.Error(t, err)

	_, ok := v.GetOK(FeatureRef{Key: "x", Role: timeframe.RoleExec, Offset: 0})
	assert.False(t, ok)
}

func TestGetRawOHLCVField(t *testing.T) {
	exec := buildStore(t, timeframe.TF1h, 10, 3600*1000, 0)
	v, err := New(map[timeframe.Role]*feedstore.FeedStore{timeframe.RoleExec: exec})
	require.NoError(t, err)
	require.NoError(t, v.Advance(5))

	val, err := v.Get(FeatureRef{Key: "close", Role: timeframe.RoleExec, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 105.0, val)
}

func TestGetOffsetBeforeBarZeroErrors(t *testing.T) {
	exec := buildStore(t, timeframe.TF1h, 10, 3600*1000, 0)
	v, err := New(map[timeframe.Role]*feedstore.FeedStore{timeframe.RoleExec: exec})
	require.NoError(t, err)
	require.NoError(t, v.Advance(1))

	_, err = v.Get(FeatureRef{Key: "close", Role: timeframe.RoleExec, Offset: 5})
	require.Error(t, err)
}
