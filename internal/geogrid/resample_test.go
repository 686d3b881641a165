package geogrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nameji/troposar/internal/domain"
)

func TestBilinear_ExactOnSamples(t *testing.T) {
	lats := []float64{0, 1, 2}
	lons := []float64{10, 11}
	data := []float64{1, 2, 3, 4, 5, 6}

	assert.Equal(t, 1.0, Bilinear(lats, lons, data, 0, 10))
	assert.Equal(t, 6.0, Bilinear(lats, lons, data, 2, 11))
}

func TestBilinear_Midpoint(t *testing.T) {
	lats := []float64{0, 1}
	lons := []float64{0, 1}
	data := []float64{0, 2, 4, 6}
	assert.InDelta(t, 3.0, Bilinear(lats, lons, data, 0.5, 0.5), 1e-12)
}

func TestBilinear_OutsideExtentIsMissing(t *testing.T) {
	lats := []float64{0, 1}
	lons := []float64{0, 1}
	data := []float64{1, 1, 1, 1}
	assert.True(t, math.IsNaN(Bilinear(lats, lons, data, -0.1, 0.5)))
	assert.True(t, math.IsNaN(Bilinear(lats, lons, data, 0.5, 1.1)))
}

func TestBilinear_MissingCornerPropagates(t *testing.T) {
	lats := []float64{0, 1}
	lons := []float64{0, 1}
	data := []float64{1, math.NaN(), 1, 1}
	assert.True(t, math.IsNaN(Bilinear(lats, lons, data, 0.5, 0.5)))
}

func TestResample_IdentityOnSameAxes(t *testing.T) {
	g := &Grid{Lats: []float64{0, 1}, Lons: []float64{0, 1}, Elev: make([]float64, 4)}
	src := domain.ZeroField(g.Lats, g.Lons)
	for k := range src.Data {
		src.Data[k] = float64(k)
	}
	out := g.Resample(src)
	for k := range src.Data {
		assert.InDelta(t, src.Data[k], out.Data[k], 1e-12)
	}
}

func TestInterp1_ClampsAtEnds(t *testing.T) {
	x := []float64{0, 10, 20}
	y := []float64{5, 15, 25}
	assert.Equal(t, 5.0, Interp1(x, y, -100))
	assert.Equal(t, 25.0, Interp1(x, y, 100))
	assert.InDelta(t, 10.0, Interp1(x, y, 5), 1e-12)
	assert.Equal(t, 15.0, Interp1(x, y, 10))
}

func TestTrapz_LinearFunctionIsExact(t *testing.T) {
	// Integral of y=2x over [0, 10] is 100 regardless of sampling.
	x := []float64{0, 1, 4, 10}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 2 * x[i]
	}
	assert.InDelta(t, 100.0, Trapz(x, y), 1e-12)
}
