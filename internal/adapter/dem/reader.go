// Package dem reads digital elevation models from NetCDF rasters.
package dem

import (
	"fmt"

	"github.com/nameji/troposar/internal/adapter/ncdf"
	"github.com/nameji/troposar/internal/domain"
)

// Read loads a DEM raster. Elevations are metres above the reference
// ellipsoid on ascending lat/lon axes.
func Read(path string) (*domain.Field, error) {
	f, ff, err := ncdf.Open(path)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "dem", Detail: err.Error()}
	}
	defer f.Close()

	latName, err := ncdf.FirstVar(ff, "lat", "latitude", "y")
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}
	lonName, err := ncdf.FirstVar(ff, "lon", "longitude", "x")
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}
	elevName, err := ncdf.FirstVar(ff, "elevation", "dem", "height", "z")
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}

	lats, err := ncdf.ReadAxis(ff, latName)
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}
	lons, err := ncdf.ReadAxis(ff, lonName)
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}
	elev, err := ncdf.ReadVar(ff, elevName)
	if err != nil {
		return nil, fmt.Errorf("dem %s: %w", path, err)
	}
	if len(elev.Shape) != 2 || elev.Shape[0] != len(lats) || elev.Shape[1] != len(lons) {
		return nil, fmt.Errorf("dem %s: %s shape %v does not match axes (%d, %d)",
			path, elevName, elev.Shape, len(lats), len(lons))
	}
	elev = ncdf.EnsureAscending(lats, elev, 0)
	elev = ncdf.EnsureAscending(lons, elev, 1)

	return &domain.Field{Lats: lats, Lons: lons, Data: elev.Elements}, nil
}
