package dem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDEM creates a NetCDF DEM with the axes exactly as given, so tests can
// exercise both south-to-north and north-to-south storage orders.
func writeDEM(t *testing.T, path string, lats, lons, elev []float64) {
	t.Helper()
	h := cdf.NewHeader([]string{"lat", "lon"}, []int{len(lats), len(lons)})
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddVariable("elevation", []string{"lat", "lon"}, []float64{0})
	h.Define()

	ff, err := os.Create(path)
	require.NoError(t, err)
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	require.NoError(t, err)

	for _, v := range []struct {
		name string
		data []float64
	}{{"lat", lats}, {"lon", lons}, {"elevation", elev}} {
		end := f.Header.Lengths(v.name)
		w := f.Writer(v.name, make([]int, len(end)), end)
		_, err := w.Write(v.data)
		require.NoError(t, err, "write %s", v.name)
	}
	require.NoError(t, cdf.UpdateNumRecs(ff))
}

func TestRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.nc")
	writeDEM(t, path,
		[]float64{55, 55.5, 56},
		[]float64{-4, -3.5, -3},
		[]float64{0, 1, 2, 10, 11, 12, 20, 21, 22})

	f, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []float64{55, 55.5, 56}, f.Lats)
	assert.Equal(t, []float64{-4, -3.5, -3}, f.Lons)
	assert.Equal(t, 11.0, f.At(1, 1))
	assert.Equal(t, 22.0, f.At(2, 2))
}

func TestRead_NorthToSouthDEM(t *testing.T) {
	// Latitude stored high-to-low, the usual reanalysis convention: the
	// reader must hand back ascending axes with the rows reordered, not an
	// all-NaN raster.
	path := filepath.Join(t.TempDir(), "dem.nc")
	writeDEM(t, path,
		[]float64{56, 55.5, 55},
		[]float64{-4, -3.5, -3},
		[]float64{0, 1, 2, 10, 11, 12, 20, 21, 22})

	f, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []float64{55, 55.5, 56}, f.Lats)
	// The file's last row (lat 55) is now the first.
	assert.Equal(t, 20.0, f.At(0, 0))
	assert.Equal(t, 11.0, f.At(1, 1))
	assert.Equal(t, 2.0, f.At(2, 2))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.nc"))
	require.Error(t, err)
}
