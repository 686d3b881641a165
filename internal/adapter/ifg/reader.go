// Package ifg discovers and reads unwrapped interferograms.
package ifg

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nameji/troposar/internal/adapter/ncdf"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

// Interferogram is one unwrapped phase raster on its own native grid.
type Interferogram struct {
	Master domain.Date
	Slave  domain.Date
	Phase  *domain.Field // unwrapped phase, radians
}

// Discover lists the interferogram files in a stack directory, sorted.
func Discover(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.nc"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &domain.DataUnavailableError{
			Source: "interferogram",
			Detail: "no .nc files in " + dir,
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ParseName extracts the (master, slave) date pair from a file named
// <master>_<slave>.nc with both dates as YYYYMMDD.
func ParseName(path string) (master, slave domain.Date, err error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) != 2 {
		return master, slave, fmt.Errorf("interferogram %s: name is not <master>_<slave>", path)
	}
	master, err = domain.ParseDate(parts[0])
	if err != nil {
		return master, slave, fmt.Errorf("interferogram %s: %w", path, err)
	}
	slave, err = domain.ParseDate(parts[1])
	if err != nil {
		return master, slave, fmt.Errorf("interferogram %s: %w", path, err)
	}
	return master, slave, nil
}

// Read loads one interferogram.
func Read(path string) (*Interferogram, error) {
	master, slave, err := ParseName(path)
	if err != nil {
		return nil, err
	}
	f, ff, err := ncdf.Open(path)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "interferogram", Detail: err.Error()}
	}
	defer f.Close()

	latName, err := ncdf.FirstVar(ff, "lat", "latitude")
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}
	lonName, err := ncdf.FirstVar(ff, "lon", "longitude")
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}
	phaseName, err := ncdf.FirstVar(ff, "phase", "unwrapped_phase", "data")
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}

	lats, err := ncdf.ReadAxis(ff, latName)
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}
	lons, err := ncdf.ReadAxis(ff, lonName)
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}
	phase, err := ncdf.ReadVar(ff, phaseName)
	if err != nil {
		return nil, fmt.Errorf("interferogram %s: %w", path, err)
	}
	if len(phase.Shape) != 2 || phase.Shape[0] != len(lats) || phase.Shape[1] != len(lons) {
		return nil, fmt.Errorf("interferogram %s: %s shape %v does not match axes (%d, %d)",
			path, phaseName, phase.Shape, len(lats), len(lons))
	}
	phase = ncdf.EnsureAscending(lats, phase, 0)
	phase = ncdf.EnsureAscending(lons, phase, 1)

	return &Interferogram{
		Master: master,
		Slave:  slave,
		Phase:  &domain.Field{Lats: lats, Lons: lons, Data: phase.Elements, Time: master.Time},
	}, nil
}

// NativeAxes reads the axes of the first interferogram in the stack; the
// stack shares one SAR geometry, so the first file defines the native grid.
func NativeAxes(paths []string) (*geogrid.Axes, error) {
	first, err := Read(paths[0])
	if err != nil {
		return nil, err
	}
	return &geogrid.Axes{Lats: first.Phase.Lats, Lons: first.Phase.Lons}, nil
}
