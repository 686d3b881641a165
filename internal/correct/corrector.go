// Package correct subtracts differential atmospheric delay from unwrapped
// interferograms.
package correct

import (
	"log/slog"
	"math"

	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
)

// Corrected is an interferogram with the atmospheric contribution removed,
// defined on the common target grid. Created once, consumed by the
// inverter, never mutated afterwards.
type Corrected struct {
	Master   domain.Date
	Slave    domain.Date
	Baseline float64 // perpendicular baseline, metres
	Phase    *domain.Field
}

// Corrector converts differential delay to phase and applies it. Read-only
// after construction.
type Corrector struct {
	grid       *geogrid.Grid
	wavelength float64 // metres
	logger     *slog.Logger
}

// NewCorrector builds a corrector for the grid and radar wavelength.
func NewCorrector(grid *geogrid.Grid, wavelength float64, logger *slog.Logger) *Corrector {
	return &Corrector{grid: grid, wavelength: wavelength, logger: logger}
}

// Correct removes the differential delay (master − slave, the processing
// chain's sign convention) from one interferogram. The interferogram is
// resampled onto the target grid first when its native grid differs.
// Delay fields are slant one-way centimetres; the conversion to phase uses
// the two-way factor −4π/λ.
func (c *Corrector) Correct(in *ifg.Interferogram, delayMaster, delaySlave *domain.Field, baseline float64) (*Corrected, error) {
	extent := (&geogrid.Axes{Lats: in.Phase.Lats, Lons: in.Phase.Lons}).Extent()
	if !extent.Overlaps(c.grid.Extent()) {
		return nil, &domain.GridMismatchError{
			Detail: "interferogram " + domain.PairKey(in.Master, in.Slave) + " does not overlap the target grid",
		}
	}

	phase := in.Phase
	if !sameAxes(phase.Lats, c.grid.Lats) || !sameAxes(phase.Lons, c.grid.Lons) {
		c.logger.Debug("resampling interferogram onto target grid",
			"pair", domain.PairKey(in.Master, in.Slave))
		phase = c.grid.Resample(phase)
	}

	phasePerMetre := -4 * math.Pi / c.wavelength
	out := c.grid.NewField()
	out.Time = in.Slave.Time
	for k := range out.Data {
		p := phase.Data[k]
		if math.IsNaN(p) {
			continue
		}
		diffCm := delayMaster.Data[k] - delaySlave.Data[k]
		if math.IsNaN(diffCm) {
			continue
		}
		out.Data[k] = p - diffCm/100*phasePerMetre
	}

	return &Corrected{Master: in.Master, Slave: in.Slave, Baseline: baseline, Phase: out}, nil
}

func sameAxes(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
