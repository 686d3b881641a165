// Command genproject bootstraps a project from an existing interferogram
// stack. It scans the stack directory, derives the master and slave dates
// from the file names, and writes a project configuration plus a baseline
// table template with placeholder values to fill in from the processor's
// baseline report.
//
// Usage:
//
//	go run ./cmd/genproject \
//	  -uifg-dir /data/stack \
//	  -dem /data/dem.nc \
//	  -era /data/era \
//	  -out project
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	uifgDir := flag.String("uifg-dir", "", "directory containing the unwrapped interferogram stack")
	demPath := flag.String("dem", "", "path to the DEM NetCDF file")
	eraDir := flag.String("era", "", "directory containing weather-model snapshots")
	wrDir := flag.String("wr", "", "directory containing weather-radar scans (optional)")
	outDir := flag.String("out", "project", "output directory for the generated project")
	flag.Parse()

	if *uifgDir == "" || *demPath == "" || *eraDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -uifg-dir, -dem, -era")
	}

	paths, err := ifg.Discover(*uifgDir)
	if err != nil {
		return fmt.Errorf("scan stack: %w", err)
	}

	master, slaves, err := datesFromStack(paths)
	if err != nil {
		return err
	}
	log.Printf("stack: %d interferograms, master %s, %d slaves", len(paths), master.Key(), len(slaves))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	baselinePath := filepath.Join(*outDir, "baselines.txt")
	if err := writeBaselineTemplate(baselinePath, master, slaves); err != nil {
		return fmt.Errorf("write baseline template: %w", err)
	}
	log.Printf("wrote baseline template: %s", baselinePath)

	configPath := filepath.Join(*outDir, "project.yml")
	if err := writeProject(configPath, master, slaves, *uifgDir, *demPath, *eraDir, *wrDir, baselinePath, *outDir); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	log.Printf("wrote project config: %s", configPath)

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Fill in the perpendicular baselines in %s\n", baselinePath)
	fmt.Printf("  2. Review %s (region, resolution, radar projection)\n", configPath)
	fmt.Printf("  3. go run ./cmd/validate -config %s\n", configPath)
	return nil
}

// datesFromStack derives the single master and the sorted slave dates from
// the <master>_<slave>.nc file names.
func datesFromStack(paths []string) (domain.Date, []domain.Date, error) {
	var master domain.Date
	slaves := make(map[string]domain.Date)

	for i, path := range paths {
		m, s, err := ifg.ParseName(path)
		if err != nil {
			return master, nil, err
		}
		if i == 0 {
			master = m
		} else if !m.SameEpoch(master) {
			return master, nil, fmt.Errorf("stack has two masters: %s and %s", master.Key(), m.Key())
		}
		slaves[s.Key()] = s
	}

	out := make([]domain.Date, 0, len(slaves))
	for _, d := range slaves {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Time) })
	return master, out, nil
}

// writeBaselineTemplate emits one row per pair with a zero placeholder.
func writeBaselineTemplate(path string, master domain.Date, slaves []domain.Date) error {
	var b strings.Builder
	b.WriteString("# master slave perpendicular_baseline_m\n")
	b.WriteString("# Replace the zero placeholders with the processor's baseline report.\n")
	for _, s := range slaves {
		fmt.Fprintf(&b, "%s %s 0.0\n", master.Key(), s.Key())
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeProject emits a project configuration that loads cleanly.
func writeProject(path string, master domain.Date, slaves []domain.Date,
	uifgDir, demPath, eraDir, wrDir, baselinePath, outDir string) error {

	dates := make([]string, 0, len(slaves))
	for _, s := range slaves {
		dates = append(dates, s.Key())
	}

	v := viper.New()
	v.Set("master_date", master.Format("2006-01-02T15:04:05Z"))
	v.Set("dates", dates)
	v.Set("files.uifg_dir", uifgDir)
	v.Set("files.dem", demPath)
	v.Set("files.era_models", eraDir)
	v.Set("files.wr_dir", wrDir)
	v.Set("files.baselines", baselinePath)
	v.Set("files.scratch_dir", filepath.Join(outDir, "scratch"))
	v.Set("log_level", "INFO")
	v.Set("workers", 4)
	return v.WriteConfigAs(path)
}
