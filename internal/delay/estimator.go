// Package delay estimates per-date line-of-sight atmospheric delay fields
// by fusing weather-model vertical profiles with weather-radar rainfall.
package delay

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/nameji/troposar/internal/adapter/era"
	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/geogrid"
	"github.com/nameji/troposar/internal/observability"
)

// RadarSource produces a rainfall frame on the target grid for a time.
type RadarSource interface {
	Fetch(ctx context.Context, t time.Time, grid *geogrid.Grid) (*domain.Field, error)
}

// ProfileSource produces a weather-model profile volume on the target grid
// for a time.
type ProfileSource interface {
	Fetch(ctx context.Context, t time.Time, grid *geogrid.Grid) (*era.ProfileVolume, error)
}

// Source estimates the slant one-way delay field for an acquisition date.
type Source interface {
	Estimate(ctx context.Context, date domain.Date) (*domain.Field, error)
}

// Params are the numerical constants of the delay model. The refractivity
// constants follow Hanssen (2001); the rainfall scheme is deliberately a
// parameter block rather than a fixed contract.
type Params struct {
	K1 float64 // K/Pa
	K2 float64 // K/Pa
	K3 float64 // K²/Pa
	Rd float64 // J/(kg·K), dry air
	Rv float64 // J/(kg·K), water vapour

	TopHeight         float64 // integration ceiling, metres
	IntegrationLevels int     // resampled heights per column

	LookAngle float64 // radians, zenith-to-slant mapping

	// Rainfall humidity adjustment: columns with rain are pushed towards
	// saturation between these pressure bounds (hPa), saturating at
	// RainScale intensity units.
	RainMinPressure float64
	RainMaxPressure float64
	RainScale       float64
}

// DefaultParams returns the constants used by the reference processing chain.
func DefaultParams() Params {
	return Params{
		K1:                0.776,
		K2:                0.716,
		K3:                3.75e3,
		Rd:                287.053,
		Rv:                461.524,
		TopHeight:         15000,
		IntegrationLevels: 1024,
		LookAngle:         0.367,
		RainMinPressure:   600,
		RainMaxPressure:   1000,
		RainScale:         10,
	}
}

// Estimator computes slant delay fields. The weather model is authoritative
// and required; radar is a finer-cadence corrective term applied where
// available.
type Estimator struct {
	nwp     ProfileSource
	radar   RadarSource
	grid    *geogrid.Grid
	params  Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEstimator builds an estimator over the two atmospheric sources. radar
// may be nil when no radar store is configured.
func NewEstimator(nwp ProfileSource, radar RadarSource, grid *geogrid.Grid, params Params,
	logger *slog.Logger, metrics *observability.Metrics) *Estimator {
	return &Estimator{nwp: nwp, radar: radar, grid: grid, params: params, logger: logger, metrics: metrics}
}

// Estimate returns the slant one-way delay field in centimetres for the
// acquisition date, defined on the target grid. Missing radar degrades to
// the pure model estimate; a missing model snapshot fails the date.
func (e *Estimator) Estimate(ctx context.Context, date domain.Date) (*domain.Field, error) {
	start := time.Now()

	vol, err := e.nwp.Fetch(ctx, date.Time, e.grid)
	if err != nil {
		return nil, err
	}
	wet, dry := e.zenithDelays(vol)

	source := "nwp"
	rain := e.fetchRain(ctx, date)
	if rain != nil {
		adjusted := vol.Clone()
		adjusted.AddRainfall(rain, e.params.RainMinPressure, e.params.RainMaxPressure, e.params.RainScale)
		rainWet, _ := e.zenithDelays(adjusted)
		applyRainAdjustment(wet, rainWet, rain)
		source = "nwp+radar"
	}

	out := e.grid.NewField()
	out.Time = date.Time
	cosLook := math.Cos(e.params.LookAngle)
	for k := range out.Data {
		out.Data[k] = (wet.Data[k] + dry.Data[k]) / cosLook
	}

	e.metrics.DelayEstimations.WithLabelValues(source).Inc()
	e.metrics.EstimateDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("delay field estimated", "date", date.Key(), "source", source,
		"elapsed", time.Since(start))
	return out, nil
}

// fetchRain returns the radar frame for the date, or nil when radar is not
// configured or has no coverage. Radar is an enhancement, never fatal.
func (e *Estimator) fetchRain(ctx context.Context, date domain.Date) *domain.Field {
	if e.radar == nil {
		return nil
	}
	rain, err := e.radar.Fetch(ctx, date.Time, e.grid)
	if err != nil {
		if domain.IsDataUnavailable(err) {
			e.metrics.RadarFallbacks.Inc()
			e.logger.Warn("radar unavailable, using pure model delay", "date", date.Key(), "error", err)
			return nil
		}
		e.metrics.RadarFallbacks.Inc()
		e.logger.Warn("radar fetch failed, using pure model delay", "date", date.Key(), "error", err)
		return nil
	}
	return rain
}

// zenithDelays integrates wet and hydrostatic refractivity per column from
// the cell's DEM elevation up to the integration ceiling. Delays are
// one-way zenith centimetres.
func (e *Estimator) zenithDelays(vol *era.ProfileVolume) (wet, dry *domain.Field) {
	wet = e.grid.NewField()
	dry = e.grid.NewField()

	height := vol.Height()
	ppwv := vol.PPWV()
	nlev := vol.Levels()

	col := newColumnScratch(nlev, e.params.IntegrationLevels)
	for i := 0; i < e.grid.Rows(); i++ {
		for j := 0; j < e.grid.Cols(); j++ {
			elev := e.grid.ElevAt(i, j)
			if math.IsNaN(elev) {
				continue
			}
			w, d := col.integrate(elev, i, j, height, vol.Temp, ppwv, vol.Pressure, e.params)
			wet.Set(i, j, w)
			dry.Set(i, j, d)
		}
	}
	return wet, dry
}

// applyRainAdjustment replaces the wet delay of raining, radar-covered
// cells with the rainfall-adjusted value, scaled by how well radar
// intensity tracks the model's own wet-delay anomaly over the region.
// Cells without radar coverage keep the model-only estimate.
func applyRainAdjustment(wet, rainWet, rain *domain.Field) {
	alpha := calibrate(rain, wet)
	if alpha == 0 {
		return
	}
	for k := range wet.Data {
		r := rain.Data[k]
		if math.IsNaN(r) || r <= 0 {
			continue
		}
		wet.Data[k] += alpha * (rainWet.Data[k] - wet.Data[k])
	}
}

// calibrate correlates radar intensity with the wet-delay anomaly at
// collocated cells and clamps the coefficient to [0, 1]. Zero means the
// radar field carries no usable signal for this date.
func calibrate(rain, wet *domain.Field) float64 {
	var sumW, n float64
	for k := range wet.Data {
		if math.IsNaN(rain.Data[k]) || math.IsNaN(wet.Data[k]) {
			continue
		}
		sumW += wet.Data[k]
		n++
	}
	if n < 2 {
		return 0
	}
	meanW := sumW / n

	var sumR, nr float64
	for k := range wet.Data {
		r := rain.Data[k]
		if math.IsNaN(r) || r <= 0 || math.IsNaN(wet.Data[k]) {
			continue
		}
		sumR += r
		nr++
	}
	if nr < 2 {
		return 0
	}
	meanR := sumR / nr

	var cov, varR, varW float64
	for k := range wet.Data {
		r := rain.Data[k]
		if math.IsNaN(r) || r <= 0 || math.IsNaN(wet.Data[k]) {
			continue
		}
		dr := r - meanR
		dw := wet.Data[k] - meanW
		cov += dr * dw
		varR += dr * dr
		varW += dw * dw
	}
	if varR == 0 || varW == 0 {
		return 0
	}
	alpha := cov / math.Sqrt(varR*varW)
	if alpha < 0 {
		return 0
	}
	if alpha > 1 {
		return 1
	}
	return alpha
}
