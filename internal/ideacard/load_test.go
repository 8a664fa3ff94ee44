package ideacard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/indicators"
)

const validCardYAML = `
id: rsi-pullback-v1
symbol: BTCUSDT
tf_configs:
  exec:
    tf: 15m
    feature_specs:
      - indicator_type: rsi
        output_key: rsi_14
        params: { period: 14 }
        input_source: close
      - indicator_type: atr
        output_key: atr_14
        params: { period: 14 }
        input_source: close
rules:
  entry_long:
    kind: cond
    cond:
      op: "<"
      left: { key: rsi_14, tf_role: exec, offset: 0 }
      right_const: 30
risk:
  sl: { atr_key: atr_14, atr_mult: 1.5 }
  tp: { r_multiple: 2.0 }
  risk_per_trade_pct: 1.0
account:
  initial_equity_usdt: 10000
  max_leverage: 5
  maintenance_margin_rate: 0.005
  taker_fee_rate: 0.0006
  mark_source: close
  margin_mode: isolated
  position_mode: one_way
  instrument_type: linear_perp
stops:
  equity_floor_usdt: 100
  starvation_bars: 500
sim:
  funding_enabled: true
`

func TestLoadBytesValidCard(t *testing.T) {
	reg := indicators.NewRegistry()
	card, err := LoadBytes([]byte(validCardYAML), reg)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", card.Symbol)
	assert.NotEmpty(t, card.IdeaHash)
	assert.Len(t, card.IdeaHash, 16)
	for _, fs := range card.TFConfigs.Exec.FeatureSpecs {
		assert.Len(t, fs.FeatureSpecID, 12)
	}
}

func TestLoadBytesRejectsWrongMarginMode(t *testing.T) {
	reg := indicators.NewRegistry()
	bad := validCardYAML
	bad = bad[:len(bad)] // no-op clone to keep const immutable semantics clear
	_, err := LoadBytes([]byte(replaceOnce(bad, "margin_mode: isolated", "margin_mode: cross")), reg)
	require.Error(t, err)
	assert.True(t, corerr.Is(err, corerr.UnsupportedMode))
}

func TestLoadBytesRejectsUnknownIndicatorType(t *testing.T) {
	reg := indicators.NewRegistry()
	_, err := LoadBytes([]byte(replaceOnce(validCardYAML, "indicator_type: rsi", "indicator_type: not_real")), reg)
	require.Error(t, err)
}

func TestLoadBytesDeterministicHashAcrossCalls(t *testing.T) {
	reg := indicators.NewRegistry()
	c1, err := LoadBytes([]byte(validCardYAML), reg)
	require.NoError(t, err)
	c2, err := LoadBytes([]byte(validCardYAML), reg)
	require.NoError(t, err)
	assert.Equal(t, c1.IdeaHash, c2.IdeaHash)
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
