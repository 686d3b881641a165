package export

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/nameji/troposar/internal/invert"
)

// manifest describes a persisted time series. Rasters are flat row-major
// little-endian float64, one file per date; NaN marks missing cells.
type manifest struct {
	Master      string            `json:"master"`
	GeneratedAt string            `json:"generated_at"`
	Rows        int               `json:"rows"`
	Cols        int               `json:"cols"`
	Lats        []float64         `json:"lats"`
	Lons        []float64         `json:"lons"`
	Dates       []manifestDate    `json:"dates"`
	Files       map[string]string `json:"files"` // date key -> raster file
}

type manifestDate struct {
	Key        string `json:"key"`
	Incomplete bool   `json:"incomplete,omitempty"`
}

// WriteTimeSeries persists the inverted deformation series under dir:
// one raster per date named <key>.los.bin plus a timeseries.json manifest.
// The directory is created if needed.
func WriteTimeSeries(dir string, ts *invert.TimeSeries) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	masterField := ts.Fields[ts.Master.Key()]
	m := manifest{
		Master:      ts.Master.Key(),
		GeneratedAt: ts.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Rows:        masterField.Rows(),
		Cols:        masterField.Cols(),
		Lats:        masterField.Lats,
		Lons:        masterField.Lons,
		Files:       make(map[string]string, len(ts.Dates)),
	}

	for _, d := range ts.Dates {
		key := d.Key()
		f, ok := ts.Fields[key]
		if !ok {
			continue
		}
		name := key + ".los.bin"
		if err := writeRaster(filepath.Join(dir, name), f.Data); err != nil {
			return err
		}
		m.Dates = append(m.Dates, manifestDate{Key: key, Incomplete: ts.Incomplete[key]})
		m.Files[key] = name
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}
	path := filepath.Join(dir, "timeseries.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadRaster loads one flat float64 raster written by WriteTimeSeries.
func ReadRaster(path string, cells int) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) != cells*8 {
		return nil, fmt.Errorf("raster %s: want %d bytes, got %d", path, cells*8, len(raw))
	}
	out := make([]float64, cells)
	for k := range out {
		out[k] = math.Float64frombits(binary.LittleEndian.Uint64(raw[k*8:]))
	}
	return out, nil
}

func writeRaster(path string, data []float64) error {
	buf := make([]byte, len(data)*8)
	for k, v := range data {
		binary.LittleEndian.PutUint64(buf[k*8:], math.Float64bits(v))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
