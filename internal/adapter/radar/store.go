// Package radar loads weather-radar rainfall scans and resamples them onto
// the target grid.
package radar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nameji/troposar/internal/adapter/ncdf"
)

// stampLayout is the scan filename timestamp, minute resolution.
const stampLayout = "200601021504"

// Scan is one radar raster on its native axes. X and Y are lon/lat degrees
// for unprojected stores and projection metres otherwise.
type Scan struct {
	Time time.Time
	X    []float64
	Y    []float64
	Data []float64 // row-major, Y slow axis; NaN outside radar coverage
}

// Store lists and reads timestamped radar scans.
type Store interface {
	// Scans returns the scan times within [from, to], ascending.
	Scans(from, to time.Time) ([]time.Time, error)
	Read(t time.Time) (*Scan, error)
}

// DirStore reads a scan directory laid out Year/Month/YYYYMMDDHHMM.nc.
type DirStore struct {
	Dir string
}

// Scans walks the Year/Month directories overlapping the window.
func (s *DirStore) Scans(from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(to); month = month.AddDate(0, 1, 0) {
		dir := filepath.Join(s.Dir, fmt.Sprintf("%04d", month.Year()), fmt.Sprintf("%02d", int(month.Month())))
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan radar store %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if filepath.Ext(name) != ".nc" {
				continue
			}
			t, err := time.Parse(stampLayout, name[:len(name)-3])
			if err != nil {
				continue
			}
			if !t.Before(from) && !t.After(to) {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Read loads the scan acquired at t.
func (s *DirStore) Read(t time.Time) (*Scan, error) {
	path := filepath.Join(s.Dir,
		fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())),
		t.Format(stampLayout)+".nc")
	f, ff, err := ncdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	xName, err := ncdf.FirstVar(ff, "x", "lon", "longitude")
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}
	yName, err := ncdf.FirstVar(ff, "y", "lat", "latitude")
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}
	varName, err := ncdf.FirstVar(ff, "rainfall", "reflectivity", "rain")
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}

	x, err := ncdf.ReadAxis(ff, xName)
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}
	y, err := ncdf.ReadAxis(ff, yName)
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}
	data, err := ncdf.ReadVar(ff, varName)
	if err != nil {
		return nil, fmt.Errorf("radar scan %s: %w", path, err)
	}
	if len(data.Shape) != 2 || data.Shape[0] != len(y) || data.Shape[1] != len(x) {
		return nil, fmt.Errorf("radar scan %s: %s shape %v does not match axes (%d, %d)",
			path, varName, data.Shape, len(y), len(x))
	}
	data = ncdf.EnsureAscending(y, data, 0)
	data = ncdf.EnsureAscending(x, data, 1)
	return &Scan{Time: t, X: x, Y: y, Data: data.Elements}, nil
}
