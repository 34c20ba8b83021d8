package timedag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestConstructionValidation(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3))
	require.NoError(t, err)

	t.Run("variance of a constant fails at construction", func(t *testing.T) {
		c, err := Constant(5.0)
		require.NoError(t, err)
		_, err = Var(c, true)
		require.Error(t, err)
		_, err = WindowVar(c, 4, true, false)
		require.Error(t, err)
	})

	t.Run("covariance with a constant operand fails at construction", func(t *testing.T) {
		c, err := Constant(5.0)
		require.NoError(t, err)
		_, err = Cov(x, c, Union, true)
		require.Error(t, err)
		_, err = Cov(c, x, Union, true)
		require.Error(t, err)
	})

	t.Run("window below statistic minimum", func(t *testing.T) {
		_, err := WindowVar(x, 1, true, false)
		require.Error(t, err)
		_, err = WindowCov(x, x, 1, Union, true, false)
		require.Error(t, err)
		_, err = WindowSum(x, 0, false)
		require.Error(t, err)
		_, err = WindowSum(x, 1, false)
		require.NoError(t, err, "a sum window of 1 is legitimate")
	})

	t.Run("nil parents", func(t *testing.T) {
		_, err := Sum(nil)
		require.Error(t, err)
		_, err = Cov(x, nil, Union, true)
		require.Error(t, err)
	})

	t.Run("parent value type mismatch", func(t *testing.T) {
		vec, err := BlockNode(Block{
			{Time: numberBlock(t, 1)[0].Time, Value: []float64{1, 2}},
		})
		require.NoError(t, err)
		_, err = Sum(vec)
		require.Error(t, err, "scalar statistics reject vector parents")
		_, err = CovMatrix(x, 2, true)
		require.Error(t, err, "matrix statistics reject scalar parents")
		_, err = CovMatrix(vec, 2, true)
		require.NoError(t, err)
	})

	t.Run("covariance matrix dimension", func(t *testing.T) {
		_, err := CovMatrix(x, 0, true)
		require.Error(t, err)
	})
}

func TestValueTypes(t *testing.T) {
	withFreshDefaultMap(t)

	x, err := BlockNode(numberBlock(t, 1, 2, 3))
	require.NoError(t, err)
	s, err := Sum(x)
	require.NoError(t, err)
	assert.True(t, s.ValueType().Equals(cty.Number))

	vec, err := BlockNode(Block{
		{Time: numberBlock(t, 1)[0].Time, Value: []float64{1, 2}},
	})
	require.NoError(t, err)
	assert.True(t, vec.ValueType().Equals(cty.List(cty.Number)))

	cm, err := CovMatrix(vec, 2, true)
	require.NoError(t, err)
	assert.True(t, cm.ValueType().Equals(cty.List(cty.List(cty.Number))))

	e := Empty(cty.Bool)
	assert.True(t, e.ValueType().Equals(cty.Bool))
}

func TestBlockNodeValidation(t *testing.T) {
	withFreshDefaultMap(t)

	_, err := BlockNode(nil)
	require.Error(t, err, "empty blocks need an explicit Empty node")

	b := numberBlock(t, 1, 2)
	b[1].Time = b[0].Time
	_, err = BlockNode(b)
	require.Error(t, err, "non-increasing times must be rejected")

	mixed := numberBlock(t, 1, 2)
	mixed[1].Value = "not a number"
	_, err = BlockNode(mixed)
	require.Error(t, err)

	_, err = Constant(struct{}{})
	require.Error(t, err, "unsupported value types are rejected")
}
