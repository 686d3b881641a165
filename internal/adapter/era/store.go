package era

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ctessum/sparse"

	"github.com/nameji/troposar/internal/adapter/ncdf"
)

// stampLayout is the snapshot filename timestamp, minute resolution.
const stampLayout = "200601021504"

// Store lists and reads reanalysis snapshots.
type Store interface {
	// Times returns every snapshot time in the inventory, ascending.
	Times() ([]time.Time, error)
	Read(t time.Time) (*ProfileVolume, error)
}

// DirStore reads a flat directory of YYYYMMDDHHMM.nc snapshot files.
type DirStore struct {
	Dir string
}

// Times scans the snapshot directory.
func (s *DirStore) Times() ([]time.Time, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan era store %s: %w", s.Dir, err)
	}
	var out []time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".nc" {
			continue
		}
		name := e.Name()
		t, err := time.Parse(stampLayout, name[:len(name)-3])
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Read loads the snapshot for time t. Variables may be stored either
// (level, lat, lon) or (lat, lon, level); both come back as (lat, lon,
// level). Pressure may be a full 3-D variable or just the level axis.
func (s *DirStore) Read(t time.Time) (*ProfileVolume, error) {
	path := filepath.Join(s.Dir, t.Format(stampLayout)+".nc")
	f, ff, err := ncdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	latName, err := ncdf.FirstVar(ff, "lat", "latitude")
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}
	lonName, err := ncdf.FirstVar(ff, "lon", "longitude")
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}
	levelName, err := ncdf.FirstVar(ff, "level", "plevel", "pressure_level")
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}

	lats, err := ncdf.ReadAxis(ff, latName)
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}
	lons, err := ncdf.ReadAxis(ff, lonName)
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}
	levels, err := ncdf.ReadAxis(ff, levelName)
	if err != nil {
		return nil, fmt.Errorf("era snapshot %s: %w", path, err)
	}

	vol := &ProfileVolume{Time: t, Lats: lats, Lons: lons}
	for _, v := range []struct {
		names []string
		dst   **sparse.DenseArray
	}{
		{[]string{"rel_hum", "relative_humidity", "r"}, &vol.RelHum},
		{[]string{"temp", "temperature", "t"}, &vol.Temp},
		{[]string{"geopot", "geopotential", "z"}, &vol.Geopot},
	} {
		name, err := ncdf.FirstVar(ff, v.names...)
		if err != nil {
			return nil, fmt.Errorf("era snapshot %s: %w", path, err)
		}
		arr, err := ncdf.ReadVar(ff, name)
		if err != nil {
			return nil, fmt.Errorf("era snapshot %s: %w", path, err)
		}
		arr, err = toLatLonLevel(arr, len(lats), len(lons), len(levels))
		if err != nil {
			return nil, fmt.Errorf("era snapshot %s: variable %s: %w", path, name, err)
		}
		*v.dst = arr
	}

	if name, err := ncdf.FirstVar(ff, "pressure", "p"); err == nil {
		arr, err := ncdf.ReadVar(ff, name)
		if err != nil {
			return nil, fmt.Errorf("era snapshot %s: %w", path, err)
		}
		vol.Pressure, err = toLatLonLevel(arr, len(lats), len(lons), len(levels))
		if err != nil {
			return nil, fmt.Errorf("era snapshot %s: variable %s: %w", path, name, err)
		}
	} else {
		vol.Pressure = broadcastLevels(levels, len(lats), len(lons))
	}

	// ERA-style files order latitude north-to-south; the horizontal
	// interpolation needs ascending axes.
	for dim, axis := range [][]float64{vol.Lats, vol.Lons} {
		if !ncdf.Descending(axis) {
			continue
		}
		ncdf.Reverse(axis)
		vol.RelHum = ncdf.FlipDim(vol.RelHum, dim)
		vol.Temp = ncdf.FlipDim(vol.Temp, dim)
		vol.Geopot = ncdf.FlipDim(vol.Geopot, dim)
		vol.Pressure = ncdf.FlipDim(vol.Pressure, dim)
	}

	return vol, nil
}

// toLatLonLevel normalises a 3-D variable to shape (lat, lon, level).
func toLatLonLevel(arr *sparse.DenseArray, nlat, nlon, nlev int) (*sparse.DenseArray, error) {
	if len(arr.Shape) != 3 {
		return nil, fmt.Errorf("want 3 dimensions, got %v", arr.Shape)
	}
	s := arr.Shape
	switch {
	case s[0] == nlat && s[1] == nlon && s[2] == nlev:
		return arr, nil
	case s[0] == nlev && s[1] == nlat && s[2] == nlon:
		out := sparse.ZerosDense(nlat, nlon, nlev)
		for k := 0; k < nlev; k++ {
			for i := 0; i < nlat; i++ {
				for j := 0; j < nlon; j++ {
					out.Set(arr.Get(k, i, j), i, j, k)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("shape %v does not match axes (%d, %d, %d)", s, nlat, nlon, nlev)
	}
}

// broadcastLevels expands a pressure-level axis to a full (lat, lon, level)
// array.
func broadcastLevels(levels []float64, nlat, nlon int) *sparse.DenseArray {
	out := sparse.ZerosDense(nlat, nlon, len(levels))
	for i := 0; i < nlat; i++ {
		for j := 0; j < nlon; j++ {
			for k, p := range levels {
				out.Set(p, i, j, k)
			}
		}
	}
	return out
}
