package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nameji/troposar/internal/domain"
)

func writeProject(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const minimalProject = `
master_date: "2016-06-23T17:55:00Z"
dates:
  - "20160613"
  - "20160723"
files:
  uifg_dir: /data/uifg
  dem: /data/dem.nc
  baselines: /data/baselines.txt
  era_models: /data/era
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeProject(t, minimalProject))
	require.NoError(t, err)

	assert.Equal(t, "WARNING", cfg.LogLevel)
	assert.InEpsilon(t, 0.0562, cfg.Wavelength, 1e-9)
	assert.InEpsilon(t, 0.367, cfg.LookAngle, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.RadarTolerance)
	assert.Equal(t, 12*time.Hour, cfg.NWPMaxGap)
	assert.Equal(t, 4, cfg.Workers)
	assert.Empty(t, cfg.HTTPAddr)
	assert.False(t, cfg.ExportEnabled())
}

func TestLoad_SlavesInheritMasterTime(t *testing.T) {
	cfg, err := Load(writeProject(t, minimalProject))
	require.NoError(t, err)

	assert.Equal(t, "20160623", cfg.Master.Key())
	require.Len(t, cfg.Slaves, 2)
	for _, s := range cfg.Slaves {
		assert.Equal(t, 17, s.Hour())
		assert.Equal(t, 55, s.Minute())
	}
}

func TestLoad_MasterInDatesIsDropped(t *testing.T) {
	cfg, err := Load(writeProject(t, `
master_date: "20160623T1755"
dates: ["20160623", "20160613"]
files:
  uifg_dir: /data/uifg
  dem: /data/dem.nc
  baselines: /data/baselines.txt
  era_models: /data/era
`))
	require.NoError(t, err)
	require.Len(t, cfg.Slaves, 1)
	assert.Equal(t, "20160613", cfg.Slaves[0].Key())
}

func TestLoad_NoSlaves(t *testing.T) {
	_, err := Load(writeProject(t, `
master_date: "20160623"
dates: ["20160623"]
files:
  uifg_dir: /data/uifg
  dem: /data/dem.nc
  baselines: /data/baselines.txt
  era_models: /data/era
`))
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.Contains(t, err.Error(), "slave")
}

func TestLoad_InvertedRegion(t *testing.T) {
	_, err := Load(writeProject(t, minimalProject+`
region:
  lat_min: 56.0
  lat_max: 55.0
  lon_min: -4.0
  lon_max: -3.0
`))
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.Contains(t, err.Error(), "lat_min")
}

func TestLoad_MissingRequiredPath(t *testing.T) {
	_, err := Load(writeProject(t, `
master_date: "20160623"
dates: ["20160613"]
files:
  uifg_dir: /data/uifg
  dem: /data/dem.nc
  era_models: /data/era
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "files.baselines")
}

func TestLoad_ExportTopicRequired(t *testing.T) {
	_, err := Load(writeProject(t, minimalProject+`
export:
  brokers: ["localhost:9092"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.topic")
}

func TestLoad_ExportEnabled(t *testing.T) {
	cfg, err := Load(writeProject(t, minimalProject+`
export:
  brokers: ["localhost:9092"]
  topic: troposar-events
`))
	require.NoError(t, err)
	assert.True(t, cfg.ExportEnabled())
	assert.Equal(t, "troposar-events", cfg.Export.Topic)
}

func TestLoad_BadLogLevel(t *testing.T) {
	_, err := Load(writeProject(t, minimalProject+`
log_level: VERBOSE
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_BadDate(t *testing.T) {
	_, err := Load(writeProject(t, `
master_date: "23/06/2016"
dates: ["20160613"]
files:
  uifg_dir: /data/uifg
  dem: /data/dem.nc
  baselines: /data/baselines.txt
  era_models: /data/era
`))
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}
