// Package geogrid builds and owns the common target grid that every data
// source is resampled onto: compute in one coordinate system, resample at
// the boundary.
package geogrid

import (
	"math"

	"github.com/im7mortal/UTM"

	"github.com/nameji/troposar/internal/domain"
)

// Region is a bounding box in degrees.
type Region struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Resolution is a resampling step in metres. A zero delta on an axis keeps
// the native spacing on that axis.
type Resolution struct {
	DeltaX, DeltaY float64
}

// Axes are the latitude/longitude sample positions of a rectilinear grid,
// both ascending.
type Axes struct {
	Lats, Lons []float64
}

// Extent returns the bounding region of the axes.
func (a *Axes) Extent() Region {
	return Region{
		LatMin: a.Lats[0], LatMax: a.Lats[len(a.Lats)-1],
		LonMin: a.Lons[0], LonMax: a.Lons[len(a.Lons)-1],
	}
}

// Grid is the immutable common target grid. Every cell carries the DEM
// elevation sampled at its (lat, lon). Storage is row-major like
// domain.Field: Elev[i*len(Lons)+j].
type Grid struct {
	Lats []float64
	Lons []float64
	Elev []float64
}

func (g *Grid) Rows() int            { return len(g.Lats) }
func (g *Grid) Cols() int            { return len(g.Lons) }
func (g *Grid) Cells() int           { return len(g.Lats) * len(g.Lons) }
func (g *Grid) Index(i, j int) int   { return i*len(g.Lons) + j }
func (g *Grid) ElevAt(i, j int) float64 {
	return g.Elev[i*len(g.Lons)+j]
}

// NewField allocates a NaN field on the grid's axes.
func (g *Grid) NewField() *domain.Field {
	return domain.NewField(g.Lats, g.Lons)
}

// ZeroField allocates an all-zero field on the grid's axes.
func (g *Grid) ZeroField() *domain.Field {
	return domain.ZeroField(g.Lats, g.Lons)
}

// Extent returns the grid's bounding region.
func (g *Grid) Extent() Region {
	return (&Axes{Lats: g.Lats, Lons: g.Lons}).Extent()
}

// Overlaps reports whether r and o share any area.
func (r Region) Overlaps(o Region) bool {
	return r.LatMin <= o.LatMax && o.LatMin <= r.LatMax &&
		r.LonMin <= o.LonMax && o.LonMin <= r.LonMax
}

// contains reports whether r fully contains o.
func (r Region) contains(o Region) bool {
	return r.LatMin <= o.LatMin && r.LatMax >= o.LatMax &&
		r.LonMin <= o.LonMin && r.LonMax >= o.LonMax
}

// Build constructs the target grid. region defaults to the native extent;
// a nil or zero resolution keeps the native axes (clipped to the region).
// The DEM must cover the requested region. Pure construction, no side
// effects.
func Build(region *Region, res *Resolution, dem *domain.Field, native *Axes) (*Grid, error) {
	if native == nil || len(native.Lats) == 0 || len(native.Lons) == 0 {
		return nil, domain.Configf("native interferogram grid is empty")
	}

	var reg Region
	if region == nil {
		reg = native.Extent()
	} else {
		reg = *region
		if reg.LatMin > reg.LatMax {
			return nil, domain.Configf("region: lat_min %.4f > lat_max %.4f", reg.LatMin, reg.LatMax)
		}
		if reg.LonMin > reg.LonMax {
			return nil, domain.Configf("region: lon_min %.4f > lon_max %.4f", reg.LonMin, reg.LonMax)
		}
	}

	demExtent := (&Axes{Lats: dem.Lats, Lons: dem.Lons}).Extent()
	if !demExtent.contains(reg) {
		return nil, domain.Configf("DEM extent %+v does not cover region %+v", demExtent, reg)
	}

	lats, lons, err := targetAxes(reg, res, native)
	if err != nil {
		return nil, err
	}
	if len(lats) == 0 || len(lons) == 0 {
		return nil, domain.Configf("region %+v clips away the whole native grid", reg)
	}

	g := &Grid{Lats: lats, Lons: lons, Elev: make([]float64, len(lats)*len(lons))}
	for i, lat := range lats {
		for j, lon := range lons {
			g.Elev[g.Index(i, j)] = Bilinear(dem.Lats, dem.Lons, dem.Data, lat, lon)
		}
	}
	return g, nil
}

// targetAxes derives the grid axes: native axes clipped to the region, with
// either axis regenerated at the requested metre step.
func targetAxes(reg Region, res *Resolution, native *Axes) ([]float64, []float64, error) {
	lats := clipAxis(native.Lats, reg.LatMin, reg.LatMax)
	lons := clipAxis(native.Lons, reg.LonMin, reg.LonMax)
	if res == nil || (res.DeltaX == 0 && res.DeltaY == 0) {
		return lats, lons, nil
	}

	dLat, dLon, err := metreSteps(reg, res)
	if err != nil {
		return nil, nil, err
	}
	if dLat > 0 {
		lats = spanAxis(reg.LatMin, reg.LatMax, dLat)
	}
	if dLon > 0 {
		lons = spanAxis(reg.LonMin, reg.LonMax, dLon)
	}
	return lats, lons, nil
}

// metreSteps converts metre deltas to degree steps through a UTM round trip
// at the region centre.
func metreSteps(reg Region, res *Resolution) (dLat, dLon float64, err error) {
	if res.DeltaX == 0 && res.DeltaY == 0 {
		return 0, 0, nil
	}
	cLat := (reg.LatMin + reg.LatMax) / 2
	cLon := (reg.LonMin + reg.LonMax) / 2
	easting, northing, zone, letter, err := UTM.FromLatLon(cLat, cLon, cLat >= 0)
	if err != nil {
		return 0, 0, domain.Configf("region centre (%.4f, %.4f) outside UTM domain: %v", cLat, cLon, err)
	}
	if res.DeltaX > 0 {
		_, lon2, err := UTM.ToLatLon(easting+res.DeltaX, northing, zone, letter)
		if err != nil {
			return 0, 0, domain.Configf("resolution delta_x=%gm: %v", res.DeltaX, err)
		}
		dLon = math.Abs(lon2 - cLon)
	}
	if res.DeltaY > 0 {
		lat2, _, err := UTM.ToLatLon(easting, northing+res.DeltaY, zone, letter)
		if err != nil {
			return 0, 0, domain.Configf("resolution delta_y=%gm: %v", res.DeltaY, err)
		}
		dLat = math.Abs(lat2 - cLat)
	}
	return dLat, dLon, nil
}

// clipAxis returns the slice of axis values inside [lo, hi].
func clipAxis(axis []float64, lo, hi float64) []float64 {
	out := make([]float64, 0, len(axis))
	for _, v := range axis {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// spanAxis generates ascending samples covering [lo, hi] at the given step.
func spanAxis(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
