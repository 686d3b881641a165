package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/nameji/troposar/internal/domain"
)

// Region is an optional bounding box clipping the processing extent.
type Region struct {
	LatMin float64 `mapstructure:"lat_min"`
	LatMax float64 `mapstructure:"lat_max"`
	LonMin float64 `mapstructure:"lon_min"`
	LonMax float64 `mapstructure:"lon_max"`
}

// Resolution is an optional resampling step in metres. A zero delta means
// no resampling on that axis: the native interferogram grid is used.
type Resolution struct {
	DeltaX float64 `mapstructure:"delta_x"`
	DeltaY float64 `mapstructure:"delta_y"`
}

// Files holds the data-store paths of a project.
type Files struct {
	UifgDir    string `mapstructure:"uifg_dir"`
	ScratchDir string `mapstructure:"scratch_dir"`
	WrDir      string `mapstructure:"wr_dir"`
	DEM        string `mapstructure:"dem"`
	Baselines  string `mapstructure:"baselines"`
	EraModels  string `mapstructure:"era_models"`
}

// Export configures the optional Kafka egress of correction events.
type Export struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Config holds all project settings, populated from a YAML project file.
type Config struct {
	MasterDate string      `mapstructure:"master_date"`
	Dates      []string    `mapstructure:"dates"`
	Files      Files       `mapstructure:"files"`
	Region     *Region     `mapstructure:"region"`
	Resolution *Resolution `mapstructure:"resolution"`
	LogLevel   string      `mapstructure:"log_level"`

	// Radar geometry. Wavelength in metres, look angle in radians.
	Wavelength float64 `mapstructure:"wavelength"`
	LookAngle  float64 `mapstructure:"look_angle"`

	// Fetch tolerances for the atmospheric stores.
	RadarTolerance time.Duration `mapstructure:"radar_tolerance"`
	NWPMaxGap      time.Duration `mapstructure:"nwp_max_gap"`

	// Native projection of the weather radar store, as a PROJ.4 string.
	// Empty means the radar rasters are already on lat/lon axes.
	RadarProj string `mapstructure:"radar_proj"`

	Workers  int    `mapstructure:"workers"`
	HTTPAddr string `mapstructure:"http_addr"`
	Export   Export `mapstructure:"export"`

	// Parsed forms, populated by Load.
	Master domain.Date   `mapstructure:"-"`
	Slaves []domain.Date `mapstructure:"-"`
}

// Load reads a project configuration file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("log_level", "WARNING")
	v.SetDefault("wavelength", 0.0562) // Sentinel-1 C band
	v.SetDefault("look_angle", 0.367)  // ~21 degrees, matching the processor default
	v.SetDefault("radar_tolerance", "15m")
	v.SetDefault("nwp_max_gap", "12h")
	v.SetDefault("workers", 4)
	v.SetDefault("http_addr", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, domain.Configf("read %s: %v", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.Configf("unmarshal %s: %v", path, err)
	}

	if err := cfg.parseDates(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDates resolves the master and slave date strings. Slave dates given
// day-only inherit the master's acquisition time.
func (c *Config) parseDates() error {
	if c.MasterDate == "" {
		return domain.Configf("master_date is required")
	}
	master, err := domain.ParseDate(c.MasterDate)
	if err != nil {
		return domain.Configf("master_date: %v", err)
	}
	c.Master = master

	c.Slaves = make([]domain.Date, 0, len(c.Dates))
	for _, s := range c.Dates {
		d, err := domain.ParseDate(s)
		if err != nil {
			return domain.Configf("dates: %v", err)
		}
		d = d.At(master.Time)
		if d.SameEpoch(master) {
			// The master is implied present; a redundant entry is harmless.
			continue
		}
		c.Slaves = append(c.Slaves, d)
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if len(c.Slaves) == 0 {
		return domain.Configf("dates must name at least one slave acquisition")
	}
	if c.Region != nil {
		if c.Region.LatMin > c.Region.LatMax {
			return domain.Configf("region: lat_min %.4f > lat_max %.4f", c.Region.LatMin, c.Region.LatMax)
		}
		if c.Region.LonMin > c.Region.LonMax {
			return domain.Configf("region: lon_min %.4f > lon_max %.4f", c.Region.LonMin, c.Region.LonMax)
		}
	}
	if c.Resolution != nil && (c.Resolution.DeltaX < 0 || c.Resolution.DeltaY < 0) {
		return domain.Configf("resolution deltas must be non-negative")
	}
	if c.Wavelength <= 0 {
		return domain.Configf("wavelength must be positive, got %g", c.Wavelength)
	}
	if c.Workers <= 0 {
		return domain.Configf("workers must be positive, got %d", c.Workers)
	}
	for _, f := range []struct{ name, val string }{
		{"files.uifg_dir", c.Files.UifgDir},
		{"files.dem", c.Files.DEM},
		{"files.baselines", c.Files.Baselines},
		{"files.era_models", c.Files.EraModels},
	} {
		if f.val == "" {
			return domain.Configf("%s is required", f.name)
		}
	}
	if len(c.Export.Brokers) > 0 && c.Export.Topic == "" {
		return domain.Configf("export.topic is required when export.brokers is set")
	}
	switch c.LogLevel {
	case "CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG":
	default:
		return domain.Configf("log_level must be one of CRITICAL/ERROR/WARNING/INFO/DEBUG, got %q", c.LogLevel)
	}
	return nil
}

// ExportEnabled reports whether the Kafka egress is configured.
func (c *Config) ExportEnabled() bool {
	return len(c.Export.Brokers) > 0
}

// String summarises the project for startup logging. Paths only, no secrets.
func (c *Config) String() string {
	return fmt.Sprintf("master=%s slaves=%d uifg=%s wr=%s era=%s",
		c.Master.Key(), len(c.Slaves), c.Files.UifgDir, c.Files.WrDir, c.Files.EraModels)
}
