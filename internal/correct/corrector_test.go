package correct

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGrid() *geogrid.Grid {
	return &geogrid.Grid{
		Lats: []float64{55.0, 55.1},
		Lons: []float64{-3.4, -3.3},
		Elev: make([]float64, 4),
	}
}

func testPair(t *testing.T) (domain.Date, domain.Date) {
	t.Helper()
	m, err := domain.ParseDate("2016-06-23T17:55:00Z")
	require.NoError(t, err)
	s, err := domain.ParseDate("20160613T1755")
	require.NoError(t, err)
	return m, s
}

func onGrid(g *geogrid.Grid, values ...float64) *domain.Field {
	f := domain.ZeroField(g.Lats, g.Lons)
	copy(f.Data, values)
	return f
}

func TestCorrect_IdenticalDelaysLeavePhaseUntouched(t *testing.T) {
	grid := testGrid()
	m, s := testPair(t)
	in := &ifg.Interferogram{Master: m, Slave: s, Phase: onGrid(grid, 1, 2, 3, 4)}
	delay := onGrid(grid, 210, 215, 220, 225)

	c := NewCorrector(grid, 0.0562, discardLogger())
	out, err := c.Correct(in, delay, delay.Clone(), -40.2)
	require.NoError(t, err)

	for k := range in.Phase.Data {
		assert.InDelta(t, in.Phase.Data[k], out.Phase.Data[k], 1e-9)
	}
	assert.InDelta(t, -40.2, out.Baseline, 1e-9)
	assert.Equal(t, m.Key(), out.Master.Key())
	assert.Equal(t, s.Key(), out.Slave.Key())
}

func TestCorrect_RemovesDifferentialDelayAsPhase(t *testing.T) {
	grid := testGrid()
	m, s := testPair(t)
	in := &ifg.Interferogram{Master: m, Slave: s, Phase: onGrid(grid, 0, 0, 0, 0)}

	// Master delay 1 cm above slave everywhere: 0.01 m of excess path.
	dm := onGrid(grid, 201, 201, 201, 201)
	ds := onGrid(grid, 200, 200, 200, 200)

	wavelength := 0.0562
	c := NewCorrector(grid, wavelength, discardLogger())
	out, err := c.Correct(in, dm, ds, 10)
	require.NoError(t, err)

	want := 0.0 - 0.01*(-4*math.Pi/wavelength)
	for k := range out.Phase.Data {
		assert.InDelta(t, want, out.Phase.Data[k], 1e-9)
	}
}

func TestCorrect_MissingCellsPropagate(t *testing.T) {
	grid := testGrid()
	m, s := testPair(t)

	phase := onGrid(grid, 1, 2, 3, 4)
	phase.Data[0] = math.NaN()
	in := &ifg.Interferogram{Master: m, Slave: s, Phase: phase}

	dm := onGrid(grid, 201, 201, 201, 201)
	dm.Data[1] = math.NaN()
	ds := onGrid(grid, 200, 200, 200, 200)

	c := NewCorrector(grid, 0.0562, discardLogger())
	out, err := c.Correct(in, dm, ds, 0)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(out.Phase.Data[0]), "missing phase")
	assert.True(t, math.IsNaN(out.Phase.Data[1]), "missing delay")
	assert.False(t, math.IsNaN(out.Phase.Data[2]))
}

func TestCorrect_ResamplesForeignGrid(t *testing.T) {
	grid := testGrid()
	m, s := testPair(t)

	// Same extent, denser sampling: constant phase survives resampling.
	src := domain.ZeroField(
		[]float64{55.0, 55.05, 55.1},
		[]float64{-3.4, -3.35, -3.3},
	)
	for k := range src.Data {
		src.Data[k] = 2.5
	}
	in := &ifg.Interferogram{Master: m, Slave: s, Phase: src}
	delay := onGrid(grid, 200, 200, 200, 200)

	c := NewCorrector(grid, 0.0562, discardLogger())
	out, err := c.Correct(in, delay, delay.Clone(), 0)
	require.NoError(t, err)

	assert.Equal(t, grid.Lats, out.Phase.Lats)
	for k := range out.Phase.Data {
		assert.InDelta(t, 2.5, out.Phase.Data[k], 1e-9)
	}
}

func TestCorrect_DisjointExtentIsGridMismatch(t *testing.T) {
	grid := testGrid()
	m, s := testPair(t)
	far := domain.ZeroField([]float64{10.0, 10.1}, []float64{100.0, 100.1})
	in := &ifg.Interferogram{Master: m, Slave: s, Phase: far}
	delay := onGrid(grid, 200, 200, 200, 200)

	c := NewCorrector(grid, 0.0562, discardLogger())
	_, err := c.Correct(in, delay, delay, 0)
	require.Error(t, err)

	var gm *domain.GridMismatchError
	assert.ErrorAs(t, err, &gm)
}
