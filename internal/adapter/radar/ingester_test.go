package radar

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

// fakeStore serves in-memory scans keyed by time.
type fakeStore struct {
	scans map[time.Time]*Scan
	reads int
}

func (f *fakeStore) Scans(from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for t := range f.scans {
		if !t.Before(from) && !t.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Read(t time.Time) (*Scan, error) {
	f.reads++
	s, ok := f.scans[t]
	if !ok {
		return nil, &domain.DataUnavailableError{Source: "radar", At: t, Detail: "no such scan"}
	}
	return s, nil
}

func testGrid() *geogrid.Grid {
	return &geogrid.Grid{
		Lats: []float64{55.0, 55.1},
		Lons: []float64{-3.4, -3.3},
		Elev: make([]float64, 4),
	}
}

// uniformScan covers the test grid with a constant rainfall value.
func uniformScan(t time.Time, v float64) *Scan {
	return &Scan{
		Time: t,
		X:    []float64{-3.5, -3.2},
		Y:    []float64{54.9, 55.2},
		Data: []float64{v, v, v, v},
	}
}

func TestFetch_NoScansWithinTolerance(t *testing.T) {
	at := time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)
	store := &fakeStore{scans: map[time.Time]*Scan{
		at.Add(-2 * time.Hour): uniformScan(at.Add(-2*time.Hour), 1),
	}}
	ing, err := NewIngester(store, 15*time.Minute, "", slog.Default())
	require.NoError(t, err)

	_, err = ing.Fetch(context.Background(), at, testGrid())
	require.Error(t, err)
	assert.True(t, domain.IsDataUnavailable(err))
	assert.Zero(t, store.reads)
}

func TestFetch_SingleScanUsedAsIs(t *testing.T) {
	at := time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)
	scanTime := at.Add(-5 * time.Minute)
	store := &fakeStore{scans: map[time.Time]*Scan{
		scanTime: uniformScan(scanTime, 3),
	}}
	ing, err := NewIngester(store, 15*time.Minute, "", slog.Default())
	require.NoError(t, err)

	field, err := ing.Fetch(context.Background(), at, testGrid())
	require.NoError(t, err)
	for _, v := range field.Data {
		assert.InDelta(t, 3.0, v, 1e-9)
	}
	assert.Equal(t, 1, store.reads)
}

func TestFetch_BracketingScansBlendInTime(t *testing.T) {
	at := time.Date(2016, 6, 23, 18, 0, 0, 0, time.UTC)
	before := at.Add(-10 * time.Minute)
	after := at.Add(5 * time.Minute)
	store := &fakeStore{scans: map[time.Time]*Scan{
		before: uniformScan(before, 0),
		after:  uniformScan(after, 3),
	}}
	ing, err := NewIngester(store, 15*time.Minute, "", slog.Default())
	require.NoError(t, err)

	field, err := ing.Fetch(context.Background(), at, testGrid())
	require.NoError(t, err)

	// 10 of 15 minutes elapsed: weight 2/3 towards the later scan.
	for _, v := range field.Data {
		assert.InDelta(t, 2.0, v, 1e-9)
	}
	assert.Equal(t, 2, store.reads)
}

func TestFetch_BlendTakesFiniteSideWhereOtherIsMissing(t *testing.T) {
	at := time.Date(2016, 6, 23, 18, 0, 0, 0, time.UTC)
	before := at.Add(-5 * time.Minute)
	after := at.Add(5 * time.Minute)

	wideScan := func(ts time.Time, v float64) *Scan {
		return &Scan{
			Time: ts,
			X:    []float64{-3.5, -3.35, -3.2},
			Y:    []float64{54.9, 55.2},
			Data: []float64{v, v, v, v, v, v},
		}
	}
	a := wideScan(before, 4)
	b := wideScan(after, 8)
	// Ruin b's western column: grid cells at lon -3.4 lose their b sample.
	b.Data[0] = math.NaN()
	b.Data[3] = math.NaN()

	store := &fakeStore{scans: map[time.Time]*Scan{before: a, after: b}}
	ing, err := NewIngester(store, 15*time.Minute, "", slog.Default())
	require.NoError(t, err)

	field, err := ing.Fetch(context.Background(), at, testGrid())
	require.NoError(t, err)

	// The corner ruined by b's missing cell falls back to a's value; cells
	// covered by both blend.
	var sawFallback, sawBlend bool
	for _, v := range field.Data {
		switch {
		case math.Abs(v-4) < 1e-9:
			sawFallback = true
		case math.Abs(v-6) < 1e-9:
			sawBlend = true
		}
	}
	assert.True(t, sawFallback)
	assert.True(t, sawBlend)
}

func TestFetch_GridOutsideScanStaysMissing(t *testing.T) {
	at := time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)
	scan := &Scan{
		Time: at,
		X:    []float64{-3.35, -3.30},
		Y:    []float64{55.05, 55.10},
		Data: []float64{1, 1, 1, 1},
	}
	store := &fakeStore{scans: map[time.Time]*Scan{at: scan}}
	ing, err := NewIngester(store, 15*time.Minute, "", slog.Default())
	require.NoError(t, err)

	field, err := ing.Fetch(context.Background(), at, testGrid())
	require.NoError(t, err)

	// Grid corner (55.0, -3.4) is outside the scan extent.
	assert.True(t, math.IsNaN(field.At(0, 0)))
	assert.False(t, math.IsNaN(field.At(1, 1)))
}

func TestNewIngester_BadProjection(t *testing.T) {
	_, err := NewIngester(&fakeStore{}, time.Minute, "+proj=nonsense", slog.Default())
	require.Error(t, err)
}
