package delay

import (
	"github.com/ctessum/sparse"

	"github.com/nameji/troposar/internal/geogrid"
)

// columnScratch holds the per-column work arrays so the integrator does not
// allocate inside the cell loop.
type columnScratch struct {
	h, t, e, p                       []float64 // native levels, ascending height
	heights, itemp, ippwv, ipressure []float64 // resampled integration levels
	wetRefract, dryRefract           []float64
}

func newColumnScratch(nlev, nIntegration int) *columnScratch {
	return &columnScratch{
		h: make([]float64, nlev), t: make([]float64, nlev),
		e: make([]float64, nlev), p: make([]float64, nlev),
		heights:    make([]float64, nIntegration),
		itemp:      make([]float64, nIntegration),
		ippwv:      make([]float64, nIntegration),
		ipressure:  make([]float64, nIntegration),
		wetRefract: make([]float64, nIntegration),
		dryRefract: make([]float64, nIntegration),
	}
}

// integrate computes the one-way zenith wet and hydrostatic delays in
// centimetres for the column at cell (i, j), integrating refractivity from
// elev up to the ceiling by the trapezoid rule.
func (c *columnScratch) integrate(elev float64, i, j int,
	height, temp, ppwv, pressure *sparse.DenseArray, p Params) (wet, dry float64) {

	nlev := len(c.h)
	for k := 0; k < nlev; k++ {
		c.h[k] = height.Get(i, j, k)
		c.t[k] = temp.Get(i, j, k)
		c.e[k] = ppwv.Get(i, j, k)
		c.p[k] = pressure.Get(i, j, k)
	}
	// Pressure levels are stored surface-first or top-first depending on
	// the provider; the interpolator needs ascending heights.
	if nlev > 1 && c.h[0] > c.h[nlev-1] {
		reverse(c.h)
		reverse(c.t)
		reverse(c.e)
		reverse(c.p)
	}

	n := len(c.heights)
	step := (p.TopHeight - elev) / float64(n-1)
	for k := 0; k < n; k++ {
		c.heights[k] = elev + float64(k)*step
	}
	for k := 0; k < n; k++ {
		c.itemp[k] = geogrid.Interp1(c.h, c.t, c.heights[k])
		c.ippwv[k] = geogrid.Interp1(c.h, c.e, c.heights[k]) * 100     // hPa -> Pa
		c.ipressure[k] = geogrid.Interp1(c.h, c.p, c.heights[k]) * 100 // hPa -> Pa
	}

	wetK := p.K2 - p.K1*p.Rd/p.Rv
	for k := 0; k < n; k++ {
		t := c.itemp[k]
		c.wetRefract[k] = wetK*c.ippwv[k]/t + p.K3*c.ippwv[k]/(t*t)
		c.dryRefract[k] = p.K1 * c.ipressure[k] / t
	}

	// Refractivity is in N-units (1e-6); delays come out in centimetres.
	wet = 1e-6 * geogrid.Trapz(c.heights, c.wetRefract) * 100
	dry = 1e-6 * geogrid.Trapz(c.heights, c.dryRefract) * 100
	return wet, dry
}

func reverse(s []float64) {
	for a, b := 0, len(s)-1; a < b; a, b = a+1, b-1 {
		s[a], s[b] = s[b], s[a]
	}
}
