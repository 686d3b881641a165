// Package invert solves the corrected interferogram network for a per-date
// deformation time series referenced to the master acquisition.
package invert

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/nameji/troposar/internal/baseline"
	"github.com/nameji/troposar/internal/correct"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
	"github.com/nameji/troposar/internal/observability"
)

// TimeSeries maps acquisition dates to line-of-sight deformation fields in
// metres on the common grid, relative to the master date. The master's own
// entry is the zero field. Terminal output of a run.
type TimeSeries struct {
	Master      domain.Date
	Dates       []domain.Date
	Fields      map[string]*domain.Field // keyed by Date.Key()
	Incomplete  map[string]bool          // dates unreachable from the master
	GeneratedAt time.Time
}

// FieldAt returns the deformation field for a date.
func (ts *TimeSeries) FieldAt(d domain.Date) (*domain.Field, bool) {
	f, ok := ts.Fields[d.Key()]
	return f, ok
}

// Inverter solves the small-baseline network per grid cell by least
// squares. Independent cell batches solve in parallel.
type Inverter struct {
	grid       *geogrid.Grid
	wavelength float64
	workers    int
	batchSize  int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewInverter builds an inverter for the grid and radar wavelength.
func NewInverter(grid *geogrid.Grid, wavelength float64, workers int,
	logger *slog.Logger, metrics *observability.Metrics) *Inverter {
	return &Inverter{
		grid: grid, wavelength: wavelength,
		workers: workers, batchSize: 256,
		logger: logger, metrics: metrics,
	}
}

// Invert solves the corrected network. Every date reachable from the
// master through at least one corrected interferogram receives a defined
// deformation value; dates in disconnected components are marked
// Incomplete, not failed. Cells without valid coverage stay NaN.
func (inv *Inverter) Invert(ctx context.Context, corrected []*correct.Corrected, network *baseline.Network) (*TimeSeries, error) {
	start := time.Now()
	master := network.Master()

	ts := &TimeSeries{
		Master:      master,
		Fields:      make(map[string]*domain.Field),
		Incomplete:  make(map[string]bool),
		GeneratedAt: domain.Now(),
	}

	// The expected date set comes from the baseline network, so skipped
	// pairs still appear in the series (as incomplete entries).
	dates := collectDates(master, network, corrected)
	ts.Dates = dates
	ts.Fields[master.Key()] = inv.grid.ZeroField()

	sys := buildSystem(master, dates, corrected, inv.wavelength)
	for _, d := range dates {
		if d.SameEpoch(master) {
			continue
		}
		if _, ok := sys.col[d.Key()]; !ok {
			ts.Fields[d.Key()] = inv.grid.NewField()
			ts.Incomplete[d.Key()] = true
			inv.logger.Warn("date not connected to master, marking incomplete",
				"date", d.Key(), "marker", domain.ErrIncomplete)
			continue
		}
		ts.Fields[d.Key()] = inv.grid.NewField()
	}

	if len(sys.col) > 0 {
		if err := inv.solveCells(ctx, sys, ts); err != nil {
			return nil, err
		}
	}

	inv.metrics.InversionDuration.Observe(time.Since(start).Seconds())
	inv.logger.Info("network inversion complete",
		"dates", len(dates), "interferograms", len(sys.rows), "elapsed", time.Since(start))
	return ts, nil
}

// system is the shared linear system: one row per usable corrected
// interferogram, one column per date reachable from the master.
type system struct {
	rows    []*correct.Corrected
	col     map[string]int // date key -> unknown column
	colDate []string
	design  *mat.Dense
	toMetre float64
}

// collectDates gathers the master plus every slave the baseline network
// expects, sorted by time, deduplicated by epoch.
func collectDates(master domain.Date, network *baseline.Network, corrected []*correct.Corrected) []domain.Date {
	seen := map[string]domain.Date{master.Key(): master}
	for _, p := range network.Pairs() {
		seen[p.Slave.Key()] = p.Slave
	}
	for _, c := range corrected {
		seen[c.Master.Key()] = c.Master
		seen[c.Slave.Key()] = c.Slave
	}
	out := make([]domain.Date, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Time) })
	return out
}

// buildSystem finds the component reachable from the master and assembles
// the design matrix once, arena-style, for reuse across every cell batch.
func buildSystem(master domain.Date, dates []domain.Date, corrected []*correct.Corrected, wavelength float64) *system {
	// Breadth-first reachability over pair edges.
	adj := make(map[string][]string)
	for _, c := range corrected {
		m, s := c.Master.Key(), c.Slave.Key()
		adj[m] = append(adj[m], s)
		adj[s] = append(adj[s], m)
	}
	reach := map[string]bool{master.Key(): true}
	queue := []string{master.Key()}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, n := range adj[k] {
			if !reach[n] {
				reach[n] = true
				queue = append(queue, n)
			}
		}
	}

	sys := &system{col: make(map[string]int), toMetre: -wavelength / (4 * math.Pi)}
	for _, d := range dates {
		k := d.Key()
		if k == master.Key() || !reach[k] {
			continue
		}
		sys.col[k] = len(sys.colDate)
		sys.colDate = append(sys.colDate, k)
	}
	for _, c := range corrected {
		if reach[c.Master.Key()] && reach[c.Slave.Key()] {
			sys.rows = append(sys.rows, c)
		}
	}
	if len(sys.rows) == 0 || len(sys.col) == 0 {
		sys.col = map[string]int{}
		return sys
	}

	design := sparse.ZerosDense(len(sys.rows), len(sys.col))
	masterKey := master.Key()
	for r, c := range sys.rows {
		if k := c.Master.Key(); k != masterKey {
			design.Set(1, r, sys.col[k])
		}
		if k := c.Slave.Key(); k != masterKey {
			design.Set(-1, r, sys.col[k])
		}
	}
	sys.design = mat.NewDense(len(sys.rows), len(sys.col), design.Elements)
	return sys
}

// solveCells runs the per-cell least-squares solves in parallel batches.
// Cells whose observations are all finite share one batched solve against
// the prebuilt design matrix; cells with gaps fall back to a reduced
// per-cell system.
func (inv *Inverter) solveCells(ctx context.Context, sys *system, ts *TimeSeries) error {
	cells := inv.grid.Cells()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(inv.workers)

	for lo := 0; lo < cells; lo += inv.batchSize {
		lo, hi := lo, min(lo+inv.batchSize, cells)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			inv.solveBatch(sys, ts, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// solveBatch solves cells [lo, hi).
func (inv *Inverter) solveBatch(sys *system, ts *TimeSeries, lo, hi int) {
	nrows := len(sys.rows)

	// Partition the batch into complete cells (all observations finite)
	// and gapped cells.
	complete := make([]int, 0, hi-lo)
	var gapped []int
	for cell := lo; cell < hi; cell++ {
		ok := true
		for _, c := range sys.rows {
			if math.IsNaN(c.Phase.Data[cell]) {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, cell)
		} else {
			gapped = append(gapped, cell)
		}
	}

	if len(complete) > 0 {
		b := mat.NewDense(nrows, len(complete), nil)
		for r, c := range sys.rows {
			for bi, cell := range complete {
				b.Set(r, bi, c.Phase.Data[cell]*sys.toMetre)
			}
		}
		var x mat.Dense
		if err := x.Solve(sys.design, b); err != nil {
			inv.logger.Warn("batch solve failed, marking cells missing", "error", err)
		} else {
			for ci, key := range sys.colDate {
				f := ts.Fields[key]
				for bi, cell := range complete {
					f.Data[cell] = x.At(ci, bi)
				}
			}
		}
	}

	for _, cell := range gapped {
		inv.solveCell(sys, ts, cell)
	}
}

// solveCell solves one cell with its missing observations dropped. Dates
// that lose their connection to the master in the reduced system stay NaN
// for this cell.
func (inv *Inverter) solveCell(sys *system, ts *TimeSeries, cell int) {
	masterKey := ts.Master.Key()

	var rows []*correct.Corrected
	for _, c := range sys.rows {
		if !math.IsNaN(c.Phase.Data[cell]) {
			rows = append(rows, c)
		}
	}
	if len(rows) == 0 {
		return
	}

	// Reachability on the reduced edge set.
	adj := make(map[string][]string)
	for _, c := range rows {
		m, s := c.Master.Key(), c.Slave.Key()
		adj[m] = append(adj[m], s)
		adj[s] = append(adj[s], m)
	}
	reach := map[string]bool{masterKey: true}
	queue := []string{masterKey}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, n := range adj[k] {
			if !reach[n] {
				reach[n] = true
				queue = append(queue, n)
			}
		}
	}

	col := make(map[string]int)
	var colDate []string
	for _, key := range sys.colDate {
		if reach[key] {
			col[key] = len(colDate)
			colDate = append(colDate, key)
		}
	}
	if len(colDate) == 0 {
		return
	}

	var used []*correct.Corrected
	for _, c := range rows {
		if reach[c.Master.Key()] && reach[c.Slave.Key()] {
			used = append(used, c)
		}
	}
	if len(used) < len(colDate) {
		return // under-determined even after reduction
	}

	a := mat.NewDense(len(used), len(colDate), nil)
	b := mat.NewVecDense(len(used), nil)
	for r, c := range used {
		if k := c.Master.Key(); k != masterKey {
			a.Set(r, col[k], 1)
		}
		if k := c.Slave.Key(); k != masterKey {
			a.Set(r, col[k], -1)
		}
		b.SetVec(r, c.Phase.Data[cell]*sys.toMetre)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return
	}
	for ci, key := range colDate {
		ts.Fields[key].Data[cell] = x.AtVec(ci)
	}
}
