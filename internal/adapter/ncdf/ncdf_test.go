package ncdf

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescending(t *testing.T) {
	assert.True(t, Descending([]float64{56, 55.5, 55}))
	assert.False(t, Descending([]float64{55, 55.5, 56}))
	assert.False(t, Descending([]float64{55}))
	assert.False(t, Descending(nil))
}

func TestFlipDim_Rows(t *testing.T) {
	arr := sparse.ZerosDense(2, 3)
	copy(arr.Elements, []float64{0, 1, 2, 10, 11, 12})

	out := FlipDim(arr, 0)
	assert.Equal(t, []float64{10, 11, 12, 0, 1, 2}, out.Elements)

	out = FlipDim(arr, 1)
	assert.Equal(t, []float64{2, 1, 0, 12, 11, 10}, out.Elements)
}

func TestFlipDim_Volume(t *testing.T) {
	arr := sparse.ZerosDense(2, 2, 2)
	for i := range arr.Elements {
		arr.Elements[i] = float64(i)
	}

	// Mirroring the lat dimension swaps the two lat planes but keeps each
	// column's vertical order.
	out := FlipDim(arr, 0)
	assert.Equal(t, arr.Get(1, 0, 0), out.Get(0, 0, 0))
	assert.Equal(t, arr.Get(1, 1, 1), out.Get(0, 1, 1))
	assert.Equal(t, arr.Get(0, 0, 1), out.Get(1, 0, 1))
}

func TestEnsureAscending_FlipsDescendingAxis(t *testing.T) {
	lats := []float64{56, 55.5, 55}
	arr := sparse.ZerosDense(3, 2)
	copy(arr.Elements, []float64{0, 1, 10, 11, 20, 21})

	out := EnsureAscending(lats, arr, 0)

	require.Equal(t, []float64{55, 55.5, 56}, lats)
	assert.Equal(t, []float64{20, 21, 10, 11, 0, 1}, out.Elements)
}

func TestEnsureAscending_KeepsAscendingAxis(t *testing.T) {
	lats := []float64{55, 55.5, 56}
	arr := sparse.ZerosDense(3, 2)
	copy(arr.Elements, []float64{0, 1, 10, 11, 20, 21})

	out := EnsureAscending(lats, arr, 0)

	assert.Same(t, arr, out)
	assert.Equal(t, []float64{55, 55.5, 56}, lats)
}
