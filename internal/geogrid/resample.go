package geogrid

import (
	"math"
	"sort"

	"github.com/nameji/troposar/internal/domain"
)

// bracket locates v on an ascending axis, returning the lower index and the
// interpolation weight towards the upper neighbour. ok is false outside the
// axis range.
func bracket(axis []float64, v float64) (i int, w float64, ok bool) {
	n := len(axis)
	if n == 0 || v < axis[0] || v > axis[n-1] {
		return 0, 0, false
	}
	i = sort.SearchFloat64s(axis, v)
	if i < n && axis[i] == v {
		return i, 0, true
	}
	i--
	w = (v - axis[i]) / (axis[i+1] - axis[i])
	return i, w, true
}

// Bilinear samples a row-major raster at (lat, lon). Returns NaN outside the
// raster extent or when any contributing corner is missing.
func Bilinear(lats, lons, data []float64, lat, lon float64) float64 {
	i, wi, ok := bracket(lats, lat)
	if !ok {
		return math.NaN()
	}
	j, wj, ok := bracket(lons, lon)
	if !ok {
		return math.NaN()
	}
	cols := len(lons)
	v00 := data[i*cols+j]
	v01, v10, v11 := v00, v00, v00
	if wj > 0 {
		v01 = data[i*cols+j+1]
	}
	if wi > 0 {
		v10 = data[(i+1)*cols+j]
		if wj > 0 {
			v11 = data[(i+1)*cols+j+1]
		} else {
			v11 = v10
		}
	}
	top := v00*(1-wj) + v01*wj
	bot := v10*(1-wj) + v11*wj
	return top*(1-wi) + bot*wi
}

// Resample interpolates src bilinearly onto the grid's axes. Cells outside
// the source extent come back NaN.
func (g *Grid) Resample(src *domain.Field) *domain.Field {
	out := g.NewField()
	out.Time = src.Time
	for i, lat := range g.Lats {
		for j, lon := range g.Lons {
			out.Set(i, j, Bilinear(src.Lats, src.Lons, src.Data, lat, lon))
		}
	}
	return out
}

// Interp1 linearly interpolates y(x) at xi with end clamping, matching the
// behaviour the column integrator depends on: values beyond the sampled
// range take the nearest end value rather than extrapolating.
func Interp1(x, y []float64, xi float64) float64 {
	n := len(x)
	if xi <= x[0] {
		return y[0]
	}
	if xi >= x[n-1] {
		return y[n-1]
	}
	i := sort.SearchFloat64s(x, xi)
	if x[i] == xi {
		return y[i]
	}
	w := (xi - x[i-1]) / (x[i] - x[i-1])
	return y[i-1]*(1-w) + y[i]*w
}

// Trapz integrates y over x by the trapezoid rule.
func Trapz(x, y []float64) float64 {
	var sum float64
	for i := 1; i < len(x); i++ {
		sum += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return sum
}
