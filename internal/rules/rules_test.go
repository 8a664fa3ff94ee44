package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptorun/btcore/internal/feedstore"
	"github.com/cryptorun/btcore/internal/features"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/ohlcv"
	"github.com/cryptorun/btcore/internal/snapshot"
	"github.com/cryptorun/btcore/internal/timeframe"
)

func viewWithColumn(t *testing.T, values []float64, firstValid int) *snapshot.View {
	t.Helper()
	n := len(values)
	bars := make([]ohlcv.Bar, n)
	for i := range bars {
		bars[i] = ohlcv.Bar{TSOpen: int64(i) * 3600000, TSClose: int64(i+1) * 3600000, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	}
	frame := &features.Frame{
		Bars: bars, Columns: map[string][]float64{"f": values},
		FirstValid: map[string]int{"f": firstValid}, Sparse: map[string]bool{"f": false},
	}
	fs, err := feedstore.New("BTCUSDT", timeframe.TF1h, frame)
	require.NoError(t, err)
	v, err := snapshot.New(map[timeframe.Role]*feedstore.FeedStore{timeframe.RoleExec: fs})
	require.NoError(t, err)
	require.NoError(t, v.Advance(n-1))
	return v
}

func ref(key string) ideacard.FeatureRef {
	return ideacard.FeatureRef{Key: key, Role: timeframe.RoleExec, Offset: 0}
}

func TestEvalSimpleGTCondition(t *testing.T) {
	v := viewWithColumn(t, []float64{1, 2, 3, 40}, 0)
	constVal := 30.0
	expr := &ideacard.RuleExpr{Kind: ideacard.RuleLeaf, Cond: &ideacard.Condition{
		Op: ideacard.OpGT, Left: ref("f"), RightConst: &constVal,
	}}
	ok, err := Eval(expr, v)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalAndShortCircuitsFalse(t *testing.T) {
	v := viewWithColumn(t, []float64{1, 2, 3, 40}, 0)
	lo, hi := 100.0, 200.0
	exprFalse := &ideacard.RuleExpr{Kind: ideacard.RuleLeaf, Cond: &ideacard.Condition{Op: ideacard.OpGT, Left: ref("f"), RightConst: &lo}}
	exprTrue := &ideacard.RuleExpr{Kind: ideacard.RuleLeaf, Cond: &ideacard.Condition{Op: ideacard.OpLT, Left: ref("f"), RightConst: &hi}}
	and := &ideacard.RuleExpr{Kind: ideacard.RuleAnd, Children: []*ideacard.RuleExpr{exprFalse, exprTrue}}
	ok, err := Eval(and, v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalCrossAboveFalseWithoutSignFlip(t *testing.T) {
	v := viewWithColumn(t, []float64{-5, -2, 3, 40}, 0)
	zero := 0.0
	expr := &ideacard.RuleExpr{Kind: ideacard.RuleLeaf, Cond: &ideacard.Condition{
		Op: ideacard.OpCrossAbove, Left: ref("f"), RightConst: &zero,
	}}
	// view is advanced to index 3 (value 40) vs index 2 (value 3); both > 0 so no cross here.
	ok, err := Eval(expr, v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalNilExprIsFalse(t *testing.T) {
	v := viewWithColumn(t, []float64{1, 2}, 0)
	ok, err := Eval(nil, v)
	require.NoError(t, err)
	assert.False(t, ok)
}
