package export

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/invert"
)

func sampleSeries(t *testing.T) *invert.TimeSeries {
	t.Helper()
	master, err := domain.ParseDate("2016-06-23T17:55:00Z")
	require.NoError(t, err)
	slave, err := domain.ParseDate("20160613")
	require.NoError(t, err)
	gap, err := domain.ParseDate("20160801")
	require.NoError(t, err)

	lats := []float64{55.0, 55.1}
	lons := []float64{-3.4, -3.3}

	slaveField := domain.ZeroField(lats, lons)
	slaveField.Data = []float64{0.01, 0.02, math.NaN(), -0.004}

	return &invert.TimeSeries{
		Master: master,
		Dates:  []domain.Date{slave, master, gap},
		Fields: map[string]*domain.Field{
			master.Key(): domain.ZeroField(lats, lons),
			slave.Key():  slaveField,
			gap.Key():    domain.NewField(lats, lons),
		},
		Incomplete:  map[string]bool{gap.Key(): true},
		GeneratedAt: time.Date(2016, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteTimeSeries_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	ts := sampleSeries(t)

	require.NoError(t, WriteTimeSeries(dir, ts))

	raw, err := os.ReadFile(filepath.Join(dir, "timeseries.json"))
	require.NoError(t, err)

	var m struct {
		Master string            `json:"master"`
		Rows   int               `json:"rows"`
		Cols   int               `json:"cols"`
		Dates  []json.RawMessage `json:"dates"`
		Files  map[string]string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "20160623", m.Master)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Len(t, m.Dates, 3)
	assert.Len(t, m.Files, 3)

	data, err := ReadRaster(filepath.Join(dir, m.Files["20160613"]), 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, data[0], 1e-12)
	assert.InDelta(t, 0.02, data[1], 1e-12)
	assert.True(t, math.IsNaN(data[2]), "missing cells survive the round trip")
	assert.InDelta(t, -0.004, data[3], 1e-12)

	zeros, err := ReadRaster(filepath.Join(dir, m.Files["20160623"]), 4)
	require.NoError(t, err)
	for _, v := range zeros {
		assert.Zero(t, v)
	}
}

func TestWriteTimeSeries_MarksIncompleteDates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTimeSeries(dir, sampleSeries(t)))

	raw, err := os.ReadFile(filepath.Join(dir, "timeseries.json"))
	require.NoError(t, err)

	var m struct {
		Dates []struct {
			Key        string `json:"key"`
			Incomplete bool   `json:"incomplete"`
		} `json:"dates"`
	}
	require.NoError(t, json.Unmarshal(raw, &m))

	flags := map[string]bool{}
	for _, d := range m.Dates {
		flags[d.Key] = d.Incomplete
	}
	assert.True(t, flags["20160801"])
	assert.False(t, flags["20160623"])
}

func TestReadRaster_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.los.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	_, err := ReadRaster(path, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}
