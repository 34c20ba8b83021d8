package timedag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateFor builds evaluation state straight from a node's descriptor, the
// way an external scheduler would.
func stateFor(t *testing.T, n *Node) *EvalState {
	t.Helper()
	st, err := NewEvalState(n.Op(), n.Arity())
	require.NoError(t, err)
	return st
}

func TestNewEvalState_Validation(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1))
	require.NoError(t, err)

	_, err = NewEvalState(x.Op(), 0)
	require.Error(t, err, "source descriptors have no incremental state")

	s, err := Sum(x)
	require.NoError(t, err)
	_, err = NewEvalState(s.Op(), 2)
	require.Error(t, err, "arity mismatch must be rejected")
}

func TestInceptionSumProd(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3, 4))
	require.NoError(t, err)

	sum, err := Sum(x)
	require.NoError(t, err)
	st := stateFor(t, sum)
	var got []float64
	for _, v := range []float64{1, 2, 3, 4} {
		out, ok := st.Step(v)
		require.True(t, ok, "sum always ticks")
		got = append(got, out.(float64))
	}
	assert.Equal(t, []float64{1, 3, 6, 10}, got)

	prod, err := Prod(x)
	require.NoError(t, err)
	st = stateFor(t, prod)
	got = got[:0]
	for _, v := range []float64{1, 2, 3, 4} {
		out, ok := st.Step(v)
		require.True(t, ok)
		got = append(got, out.(float64))
	}
	assert.Equal(t, []float64{1, 2, 6, 24}, got)
}

func TestInceptionVarScenario(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 2, 4, 4, 4, 5, 5, 7, 9))
	require.NoError(t, err)
	v, err := Var(x, true)
	require.NoError(t, err)
	st := stateFor(t, v)

	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	_, ok := st.Step(xs[0])
	assert.False(t, ok, "variance is undefined after one sample")

	out, ok := st.Step(xs[1])
	require.True(t, ok)
	assert.InDelta(t, 2.0, out.(float64), 1e-12)

	var last float64
	for _, v := range xs[2:] {
		out, ok := st.Step(v)
		require.True(t, ok)
		last = out.(float64)
	}
	assert.InDelta(t, 32.0/7.0, last, 1e-12, "final value must equal the sample variance")
}

func TestWindowEmitEarlyVersusDefault(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3, 4))
	require.NoError(t, err)

	early, err := WindowSum(x, 3, true)
	require.NoError(t, err)
	st := stateFor(t, early)
	var got []float64
	for _, v := range []float64{1, 2, 3, 4} {
		if out, ok := st.Step(v); ok {
			got = append(got, out.(float64))
		}
	}
	assert.Equal(t, []float64{1, 3, 6, 9}, got, "emit-early windows use partial contents")

	deflt, err := WindowSum(x, 3, false)
	require.NoError(t, err)
	st = stateFor(t, deflt)
	got = got[:0]
	for _, v := range []float64{1, 2, 3, 4} {
		if out, ok := st.Step(v); ok {
			got = append(got, out.(float64))
		}
	}
	assert.Equal(t, []float64{6, 9}, got, "default windows stay silent until full")
}

func TestWindowVarDefinednessGate(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3, 4, 5))
	require.NoError(t, err)

	// Emit-early still respects the two-sample definedness gate.
	wv, err := WindowVar(x, 3, true, true)
	require.NoError(t, err)
	st := stateFor(t, wv)

	_, ok := st.Step(1.0)
	assert.False(t, ok)

	out, ok := st.Step(2.0)
	require.True(t, ok)
	assert.InDelta(t, 0.5, out.(float64), 1e-12)

	// Window [1,2,3] then sliding to [2,3,4] and [3,4,5]: variance 1.0.
	for _, v := range []float64{3, 4, 5} {
		out, ok = st.Step(v)
		require.True(t, ok)
		assert.InDelta(t, 1.0, out.(float64), 1e-12)
	}
}

func TestWindowMeanSlides(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3, 4, 10))
	require.NoError(t, err)
	wm, err := WindowMean(x, 2, false)
	require.NoError(t, err)
	st := stateFor(t, wm)

	var got []float64
	for _, v := range []float64{1, 2, 3, 4, 10} {
		if out, ok := st.Step(v); ok {
			got = append(got, out.(float64))
		}
	}
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 7}, got)
}

func TestCovStepping(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3))
	require.NoError(t, err)
	y, err := BlockNode(numberBlock(t, 2, 4, 6))
	require.NoError(t, err)
	c, err := Cov(x, y, Intersect, true)
	require.NoError(t, err)
	st := stateFor(t, c)

	_, ok := st.Step(1.0, 2.0)
	assert.False(t, ok)

	out, ok := st.Step(2.0, 4.0)
	require.True(t, ok)
	assert.InDelta(t, 1.0, out.(float64), 1e-12)

	out, ok = st.Step(3.0, 6.0)
	require.True(t, ok)
	assert.InDelta(t, 2.0, out.(float64), 1e-12, "cov(x, 2x) = 2 var(x)")
}

func TestStepArityPanics(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1))
	require.NoError(t, err)
	s, err := Sum(x)
	require.NoError(t, err)
	st := stateFor(t, s)
	assert.Panics(t, func() { st.Step(1.0, 2.0) })
}
