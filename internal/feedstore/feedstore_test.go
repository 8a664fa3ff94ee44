package feedstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/features"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/timeframe"
)

func sampleFrame(n int) *features.Frame {
	bars := make([]ohlcv.Bar, n)
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		bars[i] = ohlcv.Bar{
			TSOpen: int64(i) * 3600000, TSClose: int64(i+1) * 3600000,
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 10,
		}
		col[i] = float64(i)
	}
	return &features.Frame{
		Bars:       bars,
		Columns:    map[string][]float64{"x": col},
		FirstValid: map[string]int{"x": 5},
		Sparse:     map[string]bool{"x": false},
	}
}

func TestIndexAtOrBeforeClose(t *testing.T) {
	fs, err := New("BTCUSDT", timeframe.TF1h, sampleFrame(10))
	require.NoError(t, err)

	assert.Equal(t, 0, fs.IndexAtOrBeforeClose(3600000))
	assert.Equal(t, -1, fs.IndexAtOrBeforeClose(100))
	assert.Equal(t, 9, fs.IndexAtOrBeforeClose(1<<40))
}

func TestGetIndicatorRespectsFirstValid(t *testing.T) {
	fs, err := New("BTCUSDT", timeframe.TF1h, sampleFrame(10))
	require.NoError(t, err)

	_, ok := fs.GetIndicator("x", 4)
	assert.False(t, ok)
	v, ok := fs.GetIndicator("x", 5)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestNewRejectsLengthMismatch(t *testing.T) {
	frame := sampleFrame(10)
	frame.Columns["bad"] = []float64{1, 2, 3}
	_, err := New("BTCUSDT", timeframe.TF1h, frame)
	require.Error(t, err)
}
