package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestD10_Range(t *testing.T) {
	r := New(42)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := r.D10()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 10)
		seen[v] = true
	}
	assert.Len(t, seen, 10)
}

func TestRoll_Deterministic(t *testing.T) {
	a, err := New(7).Roll("4d6+2")
	require.NoError(t, err)
	b, err := New(7).Roll("4d6+2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Rolls, 4)
	sum := 2
	for _, v := range a.Rolls {
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)
		sum += v
	}
	assert.Equal(t, sum, a.Total)
}

func TestRoll_Forms(t *testing.T) {
	r := New(1)

	res, err := r.Roll("12")
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Empty(t, res.Rolls)

	res, err = r.Roll("d6")
	require.NoError(t, err)
	assert.Len(t, res.Rolls, 1)

	res, err = r.Roll("1d1-5")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)

	res, err = r.Roll(" 2D10 ")
	require.NoError(t, err)
	assert.Len(t, res.Rolls, 2)
}

func TestRoll_Invalid(t *testing.T) {
	r := New(1)
	for _, expr := range []string{"", "abc", "-3", "0d6", "3d0", "500d6", "3d6*2"} {
		_, err := r.Roll(expr)
		assert.ErrorIs(t, err, ErrInvalidExpr, expr)
	}
}

func TestIsExpr(t *testing.T) {
	assert.True(t, IsExpr("3d6"))
	assert.True(t, IsExpr("d10+1"))
	assert.False(t, IsExpr("14"))
	assert.False(t, IsExpr("lots"))
}
