// Package pipeline orchestrates a correction run: estimate per-date delay
// fields, correct each interferogram of the stack, invert the corrected
// network into a deformation time series.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/baseline"
	"github.com/nameji/troposar/internal/correct"
	"github.com/nameji/troposar/internal/delay"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/export"
	"github.com/nameji/troposar/internal/invert"
	"github.com/nameji/troposar/internal/observability"
)

// Stack lists and reads the unwrapped interferograms of a run.
type Stack interface {
	Discover() ([]string, error)
	Read(path string) (*ifg.Interferogram, error)
}

// DirStack reads interferograms from a directory of <master>_<slave>.nc files.
type DirStack struct {
	Dir string
}

func (s DirStack) Discover() ([]string, error)                  { return ifg.Discover(s.Dir) }
func (s DirStack) Read(path string) (*ifg.Interferogram, error) { return ifg.Read(path) }

// PairCorrector removes the differential delay from one interferogram.
type PairCorrector interface {
	Correct(in *ifg.Interferogram, delayMaster, delaySlave *domain.Field, baseline float64) (*correct.Corrected, error)
}

// NetworkInverter solves the corrected network for the time series.
type NetworkInverter interface {
	Invert(ctx context.Context, corrected []*correct.Corrected, network *baseline.Network) (*invert.TimeSeries, error)
}

// Result is the outcome of one correction run.
type Result struct {
	Series    *invert.TimeSeries
	Corrected []*correct.Corrected
	Skipped   int
}

// Pipeline wires the run stages together. One Pipeline runs one stack.
type Pipeline struct {
	delays   delay.Source
	stack    Stack
	network  *baseline.Network
	correct  PairCorrector
	inverter NetworkInverter
	sink     export.Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
	ready    atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(delays delay.Source, stack Stack, network *baseline.Network,
	corrector PairCorrector, inverter NetworkInverter, sink export.Sink,
	logger *slog.Logger, metrics *observability.Metrics, workers int) *Pipeline {
	if sink == nil {
		sink = export.NopSink{}
	}
	return &Pipeline{
		delays:   delays,
		stack:    stack,
		network:  network,
		correct:  corrector,
		inverter: inverter,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
		workers:  workers,
	}
}

// CheckReadiness returns nil once the master delay field has been estimated,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("master delay field has not been estimated yet")
	}
	return nil
}

// Run executes one correction run. The master delay is required: without it
// no pair can be corrected and the run fails outright. Per-pair failures
// skip the pair and continue; the inversion still runs over whatever pairs
// survived, so one bad slave date cannot sink the stack.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	master := p.network.Master()
	p.logger.Info("correction run started", "master", master.Key(), "workers", p.workers)
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	masterDelay, err := p.delays.Estimate(ctx, master)
	if err != nil {
		p.metrics.DelayFailures.Inc()
		return nil, &domain.DataUnavailableError{
			Source: "nwp",
			At:     master.Time,
			Detail: "master delay field: " + err.Error(),
		}
	}
	p.ready.Store(true)

	p.prefetchSlaves(ctx)

	paths, err := p.stack.Discover()
	if err != nil {
		return nil, err
	}

	corrected, skipped, err := p.correctPairs(ctx, paths, masterDelay)
	if err != nil {
		return nil, err
	}
	if len(corrected) == 0 {
		p.logger.Warn("no pairs corrected, all slave dates will be incomplete",
			"discovered", len(paths), "skipped", skipped)
	}

	series, err := p.inverter.Invert(ctx, corrected, p.network)
	if err != nil {
		return nil, err
	}

	if err := p.sink.PublishRunSummary(ctx, export.RunSummaryEvent{
		Master:         master.Key(),
		Dates:          len(series.Dates),
		PairsCorrected: len(corrected),
		PairsSkipped:   skipped,
		Incomplete:     len(series.Incomplete),
	}); err != nil {
		p.logger.Warn("run summary publish failed", "error", err)
	}

	p.logger.Info("correction run complete",
		"pairs_corrected", len(corrected), "pairs_skipped", skipped,
		"incomplete_dates", len(series.Incomplete), "elapsed", time.Since(start))
	return &Result{Series: series, Corrected: corrected, Skipped: skipped}, nil
}

// prefetchSlaves warms the per-date delay cache in parallel so the pair loop
// mostly hits memoized fields. Failures are logged and left for the pair
// loop to classify; a slave that fails here may still succeed on retry.
func (p *Pipeline) prefetchSlaves(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, pair := range p.network.Pairs() {
		slave := pair.Slave
		g.Go(func() error {
			if _, err := p.delays.Estimate(ctx, slave); err != nil {
				p.metrics.DelayFailures.Inc()
				p.logger.Warn("slave delay estimation failed",
					"date", slave.Key(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() // workers log failures and return nil
}

// correctPairs runs the per-pair correction fan-out. Returns the surviving
// corrected interferograms and the skip count.
func (p *Pipeline) correctPairs(ctx context.Context, paths []string, masterDelay *domain.Field) ([]*correct.Corrected, int, error) {
	var (
		mu        sync.Mutex
		corrected []*correct.Corrected
		skipped   int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := p.correctOne(ctx, path, masterDelay)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason := skipReason(err)
				if reason == "" {
					return err
				}
				skipped++
				p.metrics.PairsSkipped.WithLabelValues(reason).Inc()
				p.logger.Warn("pair skipped", "path", path, "reason", reason, "error", err)
				p.publishSkip(ctx, path, reason)
				return nil
			}
			corrected = append(corrected, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return corrected, skipped, nil
}

// correctOne processes a single interferogram file end to end.
func (p *Pipeline) correctOne(ctx context.Context, path string, masterDelay *domain.Field) (*correct.Corrected, error) {
	master, slave, err := ifg.ParseName(path)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "interferogram", Detail: err.Error()}
	}
	if !master.SameEpoch(p.network.Master()) {
		return nil, &domain.MissingBaselineError{Master: master, Slave: slave}
	}
	// File names are day-only; the delay estimate needs the acquisition
	// time of day, which every scene shares with the master.
	master = master.At(p.network.Master().Time)
	slave = slave.At(p.network.Master().Time)

	bperp, err := p.network.BaselineOf(master, slave)
	if err != nil {
		return nil, err
	}

	slaveDelay, err := p.delays.Estimate(ctx, slave)
	if err != nil {
		return nil, err
	}

	in, err := p.stack.Read(path)
	if err != nil {
		return nil, err
	}

	c, err := p.correct.Correct(in, masterDelay, slaveDelay, bperp)
	if err != nil {
		return nil, err
	}

	p.metrics.PairsCorrected.Inc()
	p.logger.Info("pair corrected", "pair", domain.PairKey(master, slave), "baseline_m", bperp)

	valid, mean := differentialStats(masterDelay, slaveDelay)
	if err := p.sink.PublishCorrection(ctx, export.CorrectionEvent{
		Master:      master.Key(),
		Slave:       slave.Key(),
		Baseline:    bperp,
		ValidCells:  valid,
		MeanDelayCm: mean,
	}); err != nil {
		p.logger.Warn("correction publish failed", "pair", domain.PairKey(master, slave), "error", err)
	}
	return c, nil
}

// publishSkip emits a skip event for a pair that could not be corrected.
func (p *Pipeline) publishSkip(ctx context.Context, path, reason string) {
	master, slave, err := ifg.ParseName(path)
	if err != nil {
		return
	}
	if err := p.sink.PublishCorrection(ctx, export.CorrectionEvent{
		Master:     master.Key(),
		Slave:      slave.Key(),
		Skipped:    true,
		SkipReason: reason,
	}); err != nil {
		p.logger.Warn("skip publish failed", "pair", domain.PairKey(master, slave), "error", err)
	}
}

// skipReason classifies a per-pair error into a skip label, or "" for
// errors that must abort the run (context cancellation, programming bugs).
func skipReason(err error) string {
	var mb *domain.MissingBaselineError
	var gm *domain.GridMismatchError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ""
	case errors.As(err, &mb):
		return "missing_baseline"
	case errors.As(err, &gm):
		return "grid_mismatch"
	case domain.IsDataUnavailable(err):
		return "data_unavailable"
	default:
		return "data_unavailable"
	}
}

// differentialStats summarises the master − slave delay over collocated
// finite cells, for the export event.
func differentialStats(dm, ds *domain.Field) (valid int, meanCm float64) {
	var sum float64
	for k := range dm.Data {
		d := dm.Data[k] - ds.Data[k]
		if math.IsNaN(d) {
			continue
		}
		valid++
		sum += d
	}
	if valid > 0 {
		meanCm = sum / float64(valid)
	}
	return valid, meanCm
}
