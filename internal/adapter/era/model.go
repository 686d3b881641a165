// Package era loads numerical-weather-prediction reanalysis snapshots and
// interpolates them onto the target grid as per-cell vertical profiles.
package era

import (
	"math"
	"time"

	"github.com/ctessum/sparse"

	"github.com/nameji/troposar/internal/domain"
)

// standardGravity converts geopotential to geometric height.
const standardGravity = 9.80665

// ProfileVolume is a 3-D atmospheric state snapshot: per-cell vertical
// profiles on shape (lat, lon, level). Pressure is hPa, temperature K,
// relative humidity percent, geopotential m²/s². Produced fresh per query.
type ProfileVolume struct {
	Time time.Time
	Lats []float64
	Lons []float64

	RelHum   *sparse.DenseArray
	Temp     *sparse.DenseArray
	Geopot   *sparse.DenseArray
	Pressure *sparse.DenseArray
}

// Levels returns the number of vertical levels.
func (v *ProfileVolume) Levels() int {
	return v.RelHum.Shape[2]
}

// Height returns geometric heights in metres, shape (lat, lon, level).
func (v *ProfileVolume) Height() *sparse.DenseArray {
	h := sparse.ZerosDense(v.Geopot.Shape...)
	for i, g := range v.Geopot.Elements {
		h.Elements[i] = g / standardGravity
	}
	return h
}

// PPWV returns the partial pressure of water vapour in hPa, shape
// (lat, lon, level), from relative humidity and the Magnus saturation
// vapour pressure.
func (v *ProfileVolume) PPWV() *sparse.DenseArray {
	p := sparse.ZerosDense(v.RelHum.Shape...)
	for i := range p.Elements {
		tc := v.Temp.Elements[i] - 273.15
		es := 6.1094 * math.Exp(17.625*tc/(tc+243.04))
		p.Elements[i] = v.RelHum.Elements[i] / 100 * es
	}
	return p
}

// Clone returns a deep copy sharing no storage with v.
func (v *ProfileVolume) Clone() *ProfileVolume {
	return &ProfileVolume{
		Time:     v.Time,
		Lats:     append([]float64(nil), v.Lats...),
		Lons:     append([]float64(nil), v.Lons...),
		RelHum:   v.RelHum.Copy(),
		Temp:     v.Temp.Copy(),
		Geopot:   v.Geopot.Copy(),
		Pressure: v.Pressure.Copy(),
	}
}

// AddRainfall pushes the humidity of raining columns towards saturation in
// the levels between minPressure and maxPressure (hPa). The adjustment is
// proportional to rain intensity, saturating at scale. rain must be on the
// volume's axes; missing radar cells leave their column untouched.
func (v *ProfileVolume) AddRainfall(rain *domain.Field, minPressure, maxPressure, scale float64) {
	nlat, nlon, nlev := v.RelHum.Shape[0], v.RelHum.Shape[1], v.RelHum.Shape[2]
	for i := 0; i < nlat; i++ {
		for j := 0; j < nlon; j++ {
			r := rain.At(i, j)
			if math.IsNaN(r) || r <= 0 {
				continue
			}
			frac := r / scale
			if frac > 1 {
				frac = 1
			}
			for k := 0; k < nlev; k++ {
				p := v.Pressure.Get(i, j, k)
				if p < minPressure || p > maxPressure {
					continue
				}
				rh := v.RelHum.Get(i, j, k)
				v.RelHum.Set(rh+(100-rh)*frac, i, j, k)
			}
		}
	}
}
