package radar

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

// Ingester fetches the radar scan(s) bracketing a requested time and
// resamples them onto the target grid. Frames are produced fresh per query
// and not retained.
type Ingester struct {
	store     Store
	tolerance time.Duration
	transform proj.Transformer // lat/lon -> native scan coordinates; nil when unprojected
	logger    *slog.Logger
}

// NewIngester builds an ingester over a scan store. proj4 is the native
// projection of the store's rasters; empty means lat/lon axes. tolerance
// bounds the lookup window around the requested time.
func NewIngester(store Store, tolerance time.Duration, proj4 string, logger *slog.Logger) (*Ingester, error) {
	ing := &Ingester{store: store, tolerance: tolerance, logger: logger}
	if proj4 != "" {
		latlon, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
		if err != nil {
			return nil, err
		}
		native, err := proj.Parse(proj4)
		if err != nil {
			return nil, domain.Configf("radar_proj %q: %v", proj4, err)
		}
		tr, err := latlon.NewTransform(native)
		if err != nil {
			return nil, domain.Configf("radar_proj %q: %v", proj4, err)
		}
		ing.transform = tr
	}
	return ing, nil
}

// Fetch returns the rainfall field for the requested time on the target
// grid. Two bracketing scans are blended linearly in time; a single scan
// within tolerance is used as-is; none at all is DataUnavailable.
func (ing *Ingester) Fetch(ctx context.Context, t time.Time, grid *geogrid.Grid) (*domain.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	times, err := ing.store.Scans(t.Add(-ing.tolerance), t.Add(ing.tolerance))
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, &domain.DataUnavailableError{
			Source: "radar", At: t,
			Detail: "no scan within ±" + ing.tolerance.String(),
		}
	}

	prev, next, havePrev, haveNext := bracketTimes(times, t)
	switch {
	case havePrev && haveNext && !prev.Equal(next):
		a, err := ing.frame(prev, grid)
		if err != nil {
			return nil, err
		}
		b, err := ing.frame(next, grid)
		if err != nil {
			return nil, err
		}
		w := float64(t.Sub(prev)) / float64(next.Sub(prev))
		ing.logger.Debug("blending radar scans", "prev", prev, "next", next, "weight", w)
		return blend(a, b, w, t), nil
	case havePrev && (!haveNext || prev.Equal(next)):
		return ing.frame(prev, grid)
	default:
		return ing.frame(next, grid)
	}
}

// frame reads one scan and resamples it onto the grid.
func (ing *Ingester) frame(t time.Time, grid *geogrid.Grid) (*domain.Field, error) {
	scan, err := ing.store.Read(t)
	if err != nil {
		return nil, err
	}
	out := grid.NewField()
	out.Time = t
	for i, lat := range grid.Lats {
		for j, lon := range grid.Lons {
			x, y := lon, lat
			if ing.transform != nil {
				p, err := geom.Point{X: lon, Y: lat}.Transform(ing.transform)
				if err != nil {
					continue // cell outside the projection domain stays NaN
				}
				pt := p.(geom.Point)
				x, y = pt.X, pt.Y
			}
			out.Set(i, j, geogrid.Bilinear(scan.Y, scan.X, scan.Data, y, x))
		}
	}
	return out, nil
}

// bracketTimes picks the nearest scan times at or before and at or after t.
func bracketTimes(times []time.Time, t time.Time) (prev, next time.Time, havePrev, haveNext bool) {
	for _, st := range times {
		if !st.After(t) {
			prev, havePrev = st, true
		}
		if !st.Before(t) && !haveNext {
			next, haveNext = st, true
		}
	}
	return
}

// blend interpolates two frames linearly in time. A cell missing from one
// frame takes the other frame's value; missing from both stays NaN.
func blend(a, b *domain.Field, w float64, t time.Time) *domain.Field {
	out := domain.NewField(a.Lats, a.Lons)
	out.Time = t
	for k := range out.Data {
		va, vb := a.Data[k], b.Data[k]
		switch {
		case !math.IsNaN(va) && !math.IsNaN(vb):
			out.Data[k] = va*(1-w) + vb*w
		case !math.IsNaN(va):
			out.Data[k] = va
		case !math.IsNaN(vb):
			out.Data[k] = vb
		}
	}
	return out
}
