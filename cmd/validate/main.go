// Command validate performs end-to-end integrity checks across a project's
// data stores before a correction run: configuration, DEM coverage, the
// interferogram stack, the baseline table, and the atmospheric stores. It
// reports per-phase pass/fail so a broken project is caught up front rather
// than hours into a run.
//
// Usage:
//
//	go run ./cmd/validate -config project.yml
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/nameji/troposar/internal/adapter/dem"
	"github.com/nameji/troposar/internal/adapter/era"
	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/adapter/radar"
	"github.com/nameji/troposar/internal/baseline"
	"github.com/nameji/troposar/internal/config"
	"github.com/nameji/troposar/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	configPath := flag.String("config", "project.yml", "path to the project configuration file")
	flag.Parse()

	if code := run(*configPath); code != 0 {
		os.Exit(code)
	}
}

func run(configPath string) int {
	fmt.Println("=== Project Integrity Validation ===")
	fmt.Println()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	fmt.Printf("Project: %s\n", cfg.String())

	demField, demPhase := validateDEM(cfg)
	pairs, stackPhase := validateStack(cfg, demField)
	phases := []*phase{
		demPhase,
		stackPhase,
		validateBaselines(cfg, pairs),
		validateAtmosphere(cfg),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: DEM ──
// The DEM anchors every delay column, so it must load and cover the
// requested region with mostly finite elevations.

func validateDEM(cfg *config.Config) (*domain.Field, *phase) {
	p := &phase{name: "Phase 1: DEM coverage"}

	demField, err := dem.Read(cfg.Files.DEM)
	if err != nil {
		p.errorf("read DEM: %v", err)
		return nil, p
	}

	var missing int
	for _, v := range demField.Data {
		if math.IsNaN(v) {
			missing++
		}
	}
	if frac := float64(missing) / float64(len(demField.Data)); frac > 0.5 {
		p.errorf("DEM is %.0f%% missing cells", frac*100)
	}

	if cfg.Region != nil {
		if cfg.Region.LatMin < demField.Lats[0] || cfg.Region.LatMax > demField.Lats[len(demField.Lats)-1] ||
			cfg.Region.LonMin < demField.Lons[0] || cfg.Region.LonMax > demField.Lons[len(demField.Lons)-1] {
			p.errorf("region [%.4f,%.4f]x[%.4f,%.4f] exceeds DEM extent [%.4f,%.4f]x[%.4f,%.4f]",
				cfg.Region.LatMin, cfg.Region.LatMax, cfg.Region.LonMin, cfg.Region.LonMax,
				demField.Lats[0], demField.Lats[len(demField.Lats)-1],
				demField.Lons[0], demField.Lons[len(demField.Lons)-1])
		}
	}
	return demField, p
}

// ── Phase 2: Interferogram stack ──
// Every file must parse as <master>_<slave>.nc, share the configured master,
// and sit inside the DEM extent.

func validateStack(cfg *config.Config, demField *domain.Field) ([]baseline.Pair, *phase) {
	p := &phase{name: "Phase 2: Interferogram stack"}

	paths, err := ifg.Discover(cfg.Files.UifgDir)
	if err != nil {
		p.errorf("discover stack: %v", err)
		return nil, p
	}

	var pairs []baseline.Pair
	for _, path := range paths {
		m, s, err := ifg.ParseName(path)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if !m.SameEpoch(cfg.Master) {
			p.errorf("%s: master %s does not match configured master %s", path, m.Key(), cfg.Master.Key())
			continue
		}
		pairs = append(pairs, baseline.Pair{Master: m, Slave: s})
	}

	slaves := make(map[string]bool, len(cfg.Slaves))
	for _, s := range cfg.Slaves {
		slaves[s.Key()] = true
	}
	for _, pr := range pairs {
		if !slaves[pr.Slave.Key()] {
			p.errorf("stack has pair %s but %s is not in the configured dates",
				domain.PairKey(pr.Master, pr.Slave), pr.Slave.Key())
		}
	}

	if demField != nil && len(paths) > 0 {
		native, err := ifg.NativeAxes(paths)
		if err != nil {
			p.errorf("read native axes: %v", err)
			return pairs, p
		}
		ext := native.Extent()
		if ext.LatMin < demField.Lats[0] || ext.LatMax > demField.Lats[len(demField.Lats)-1] {
			p.errorf("stack latitude extent [%.4f,%.4f] exceeds DEM", ext.LatMin, ext.LatMax)
		}
		if ext.LonMin < demField.Lons[0] || ext.LonMax > demField.Lons[len(demField.Lons)-1] {
			p.errorf("stack longitude extent [%.4f,%.4f] exceeds DEM", ext.LonMin, ext.LonMax)
		}
	}
	return pairs, p
}

// ── Phase 3: Baseline table ──
// Every interferogram in the stack needs a baseline row, and every row
// should correspond to a file.

func validateBaselines(cfg *config.Config, stackPairs []baseline.Pair) *phase {
	p := &phase{name: "Phase 3: Baseline table"}

	network, err := baseline.Load(cfg.Files.Baselines, cfg.Master)
	if err != nil {
		p.errorf("load baselines: %v", err)
		return p
	}

	for _, pr := range stackPairs {
		if _, err := network.BaselineOf(pr.Master, pr.Slave); err != nil {
			p.errorf("stack pair %s has no baseline row", domain.PairKey(pr.Master, pr.Slave))
		}
	}

	inStack := make(map[string]bool, len(stackPairs))
	for _, pr := range stackPairs {
		inStack[domain.PairKey(pr.Master, pr.Slave)] = true
	}
	for _, pr := range network.Pairs() {
		if !inStack[domain.PairKey(pr.Master, pr.Slave)] {
			p.errorf("baseline row %s has no interferogram file", domain.PairKey(pr.Master, pr.Slave))
		}
	}
	return p
}

// ── Phase 4: Atmospheric stores ──
// Each acquisition date needs weather-model snapshots within the configured
// gap. Radar coverage is reported but never an error: the estimator
// degrades to the pure model.

func validateAtmosphere(cfg *config.Config) *phase {
	p := &phase{name: "Phase 4: Atmospheric stores"}

	store := &era.DirStore{Dir: cfg.Files.EraModels}
	times, err := store.Times()
	if err != nil {
		p.errorf("scan weather-model store: %v", err)
		return p
	}
	if len(times) == 0 {
		p.errorf("weather-model store %s is empty", cfg.Files.EraModels)
		return p
	}

	dates := append([]domain.Date{cfg.Master}, cfg.Slaves...)
	for _, d := range dates {
		if !covered(times, d.Time, cfg.NWPMaxGap) {
			p.errorf("%s: no weather-model snapshot within %s", d.Key(), cfg.NWPMaxGap)
		}
	}

	if cfg.Files.WrDir != "" {
		rs := &radar.DirStore{Dir: cfg.Files.WrDir}
		var withRadar int
		for _, d := range dates {
			scans, err := rs.Scans(d.Time.Add(-cfg.RadarTolerance), d.Time.Add(cfg.RadarTolerance))
			if err == nil && len(scans) > 0 {
				withRadar++
			}
		}
		fmt.Printf("Radar coverage: %d/%d dates within %s\n", withRadar, len(dates), cfg.RadarTolerance)
	}
	return p
}

// covered reports whether any snapshot lies within gap of t.
func covered(times []time.Time, t time.Time, gap time.Duration) bool {
	for _, s := range times {
		d := s.Sub(t)
		if d < 0 {
			d = -d
		}
		if d <= gap {
			return true
		}
	}
	return false
}
