package era

import (
	"context"
	"log/slog"
	"time"

	"github.com/ctessum/sparse"

	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

// Ingester fetches the reanalysis snapshots bracketing a requested time,
// interpolates linearly in time, and interpolates the result horizontally
// onto the target grid's columns. Vertical levels stay native: the delay
// integration works per column.
type Ingester struct {
	store  Store
	maxGap time.Duration
	logger *slog.Logger
}

// NewIngester builds an ingester over a snapshot store. maxGap bounds how
// far from the requested time a bracketing snapshot may be.
func NewIngester(store Store, maxGap time.Duration, logger *slog.Logger) *Ingester {
	return &Ingester{store: store, maxGap: maxGap, logger: logger}
}

// Fetch returns the profile volume for the requested time on the target
// grid, or DataUnavailable when the inventory has no snapshot within the
// surrounding window.
func (ing *Ingester) Fetch(ctx context.Context, t time.Time, grid *geogrid.Grid) (*ProfileVolume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	times, err := ing.store.Times()
	if err != nil {
		return nil, err
	}

	var prev, next time.Time
	var havePrev, haveNext bool
	for _, st := range times {
		if !st.After(t) && t.Sub(st) <= ing.maxGap {
			prev, havePrev = st, true
		}
		if !st.Before(t) && st.Sub(t) <= ing.maxGap && !haveNext {
			next, haveNext = st, true
		}
	}
	if !havePrev && !haveNext {
		return nil, &domain.DataUnavailableError{
			Source: "nwp", At: t,
			Detail: "no model snapshot within ±" + ing.maxGap.String(),
		}
	}

	var vol *ProfileVolume
	switch {
	case havePrev && haveNext && !prev.Equal(next):
		a, err := ing.store.Read(prev)
		if err != nil {
			return nil, err
		}
		b, err := ing.store.Read(next)
		if err != nil {
			return nil, err
		}
		w := float64(t.Sub(prev)) / float64(next.Sub(prev))
		ing.logger.Debug("blending era snapshots", "prev", prev, "next", next, "weight", w)
		vol, err = blendVolumes(a, b, w)
		if err != nil {
			return nil, err
		}
	case havePrev:
		vol, err = ing.store.Read(prev)
	default:
		vol, err = ing.store.Read(next)
	}
	if err != nil {
		return nil, err
	}

	out := interpToGrid(vol, grid)
	out.Time = t
	return out, nil
}

// blendVolumes interpolates two snapshots linearly in time. The snapshots
// must share axes and levels.
func blendVolumes(a, b *ProfileVolume, w float64) (*ProfileVolume, error) {
	if len(a.RelHum.Elements) != len(b.RelHum.Elements) {
		return nil, &domain.DataUnavailableError{
			Source: "nwp",
			Detail: "bracketing snapshots have different shapes",
		}
	}
	out := a.Clone()
	lerp := func(dst, x, y *sparse.DenseArray) {
		for i := range dst.Elements {
			dst.Elements[i] = x.Elements[i]*(1-w) + y.Elements[i]*w
		}
	}
	lerp(out.RelHum, a.RelHum, b.RelHum)
	lerp(out.Temp, a.Temp, b.Temp)
	lerp(out.Geopot, a.Geopot, b.Geopot)
	lerp(out.Pressure, a.Pressure, b.Pressure)
	return out, nil
}

// interpToGrid bilinearly interpolates each level of the volume onto the
// grid's (lat, lon) columns.
func interpToGrid(vol *ProfileVolume, grid *geogrid.Grid) *ProfileVolume {
	nlev := vol.Levels()
	rows, cols := grid.Rows(), grid.Cols()
	out := &ProfileVolume{
		Lats:     grid.Lats,
		Lons:     grid.Lons,
		RelHum:   sparse.ZerosDense(rows, cols, nlev),
		Temp:     sparse.ZerosDense(rows, cols, nlev),
		Geopot:   sparse.ZerosDense(rows, cols, nlev),
		Pressure: sparse.ZerosDense(rows, cols, nlev),
	}

	level := make([]float64, len(vol.Lats)*len(vol.Lons))
	interp := func(src, dst *sparse.DenseArray, k int) {
		for i := 0; i < len(vol.Lats); i++ {
			for j := 0; j < len(vol.Lons); j++ {
				level[i*len(vol.Lons)+j] = src.Get(i, j, k)
			}
		}
		for i, lat := range grid.Lats {
			for j, lon := range grid.Lons {
				dst.Set(geogrid.Bilinear(vol.Lats, vol.Lons, level, lat, lon), i, j, k)
			}
		}
	}
	for k := 0; k < nlev; k++ {
		interp(vol.RelHum, out.RelHum, k)
		interp(vol.Temp, out.Temp, k)
		interp(vol.Geopot, out.Geopot, k)
		interp(vol.Pressure, out.Pressure, k)
	}
	return out
}
