package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/simerr"
	"github.com/nvandessel/causalsim/internal/simulation"
)

func TestDefault(t *testing.T) {
	config := Default()

	assert.Equal(t, 0, config.Workers)
	assert.Equal(t, 1000, config.MaxRedraws)
	assert.Equal(t, 0.95, config.ConfidenceLevel)
	assert.Equal(t, "student-t", config.CriticalValue)
	assert.Equal(t, 200, config.Bootstrap.Reps)
	assert.Equal(t, 10, config.Bootstrap.RetryFactor)
	assert.Equal(t, "info", config.Logging.Level)
	require.Len(t, config.Scenarios, 3)
	require.NoError(t, config.Validate())
}

func TestDefault_ExpandsExercises(t *testing.T) {
	specs, err := Default().Expand()
	require.NoError(t, err)

	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"psm/n=100",
		"psm/n=200",
		"iv/n=100/gamma=0.30",
		"iv/n=100/gamma=0.05",
		"did/n=100/parallel",
		"did/n=100/violation",
	}, names)

	// Seeds step by SeedStride within an entry.
	assert.Equal(t, uint64(12345), specs[0].Seed)
	assert.Equal(t, uint64(22345), specs[1].Seed)
	assert.Equal(t, uint64(12345), specs[2].Seed)
	assert.Equal(t, uint64(22345), specs[3].Seed)
	assert.Equal(t, uint64(14286), specs[4].Seed)
	assert.Equal(t, uint64(24286), specs[5].Seed)

	assert.Equal(t, "strong instrument (γ = 0.30)", specs[2].Label)
	assert.True(t, specs[5].Violation)
	for _, s := range specs {
		assert.Equal(t, 1000, s.Replications, s.Name)
		assert.Equal(t, 1000, s.MaxRedraws, s.Name)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
workers: 4
seed: 7
max_redraws: 50
critical_value: normal
confidence_level: 0.9
bootstrap:
  reps: 50
logging:
  level: debug
scenarios:
  - design: iv
    sample_sizes: [200, 400]
    strengths: [0.5]
    replications: 25
  - design: did
    name: trend
    violations: [true]
    pre_trend: 1.0
    labels: [basic, twfe]
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

	config, err := LoadFromFile(configPath)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, uint64(7), config.Seed)
	assert.Equal(t, 50, config.MaxRedraws)
	assert.Equal(t, "normal", config.CriticalValue)
	assert.Equal(t, 50, config.Bootstrap.Reps)
	// Retry factor kept its default.
	assert.Equal(t, 10, config.Bootstrap.RetryFactor)
	assert.Equal(t, "debug", config.Logging.Level)

	specs, err := config.Expand()
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "iv/n=200/gamma=0.50", specs[0].Name)
	assert.Equal(t, "iv/n=400/gamma=0.50", specs[1].Name)
	assert.Equal(t, uint64(7), specs[0].Seed)
	assert.Equal(t, uint64(10_007), specs[1].Seed)
	assert.Equal(t, 25, specs[0].Replications)
	assert.Equal(t, "γ = 0.50", specs[0].Label)

	assert.Equal(t, "trend/n=100/violation", specs[2].Name)
	assert.Equal(t, 1.0, specs[2].PreTrend)
	assert.Equal(t, []string{"basic", "twfe"}, specs[2].Labels)
	// Entry without replications falls back to the preset.
	assert.Equal(t, 1000, specs[2].Replications)
	assert.Equal(t, 50, specs[2].MaxRedraws)
}

func TestLoadFromFile_NoScenariosKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workers: 2\n"), 0600))

	config, err := LoadFromFile(configPath)
	require.NoError(t, err)
	assert.Len(t, config.Scenarios, 3)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workers: [oops\n"), 0600))
	_, err = LoadFromFile(configPath)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CAUSALSIM_WORKERS", "3")
	t.Setenv("CAUSALSIM_SEED", "99")
	t.Setenv("CAUSALSIM_REPLICATIONS", "10")
	t.Setenv("CAUSALSIM_LOG_LEVEL", "trace")
	t.Setenv("CAUSALSIM_CRITICAL_VALUE", "normal")

	config := Default()
	require.NoError(t, ApplyEnvOverrides(config))

	assert.Equal(t, 3, config.Workers)
	assert.Equal(t, uint64(99), config.Seed)
	assert.Equal(t, 10, config.Replications)
	assert.Equal(t, "trace", config.Logging.Level)
	assert.Equal(t, "normal", config.CriticalValue)

	specs, err := config.Expand()
	require.NoError(t, err)
	for _, s := range specs {
		assert.Equal(t, 10, s.Replications, s.Name)
	}
	assert.Equal(t, uint64(99), specs[0].Seed)
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	tests := []struct {
		key   string
		value string
		field string
	}{
		{"CAUSALSIM_WORKERS", "many", "workers"},
		{"CAUSALSIM_SEED", "-1", "seed"},
		{"CAUSALSIM_REPLICATIONS", "1e3", "replications"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := ApplyEnvOverrides(Default())
			var ic *simerr.InvalidConfigurationError
			require.ErrorAs(t, err, &ic)
			assert.Equal(t, tt.field, ic.Field)
		})
	}
}

func TestValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"zero redraw budget", func(c *Config) { c.MaxRedraws = 0 }, "max_redraws"},
		{"level above one", func(c *Config) { c.ConfidenceLevel = 1 }, "confidence_level"},
		{"unknown critical value", func(c *Config) { c.CriticalValue = "cauchy" }, "critical_value"},
		{"one bootstrap rep", func(c *Config) { c.Bootstrap.Reps = 1 }, "bootstrap.reps"},
		{"zero retry factor", func(c *Config) { c.Bootstrap.RetryFactor = 0 }, "bootstrap.retry_factor"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"empty suite", func(c *Config) { c.Scenarios = nil }, "scenarios"},
		{"too many replications", func(c *Config) { c.Replications = simulation.MaxReplications + 1 }, "replications"},
		{"too many scenario replications", func(c *Config) { c.Scenarios[0].Replications = 1 << 62 }, "scenarios[0].replications"},
		{"missing design", func(c *Config) { c.Scenarios[0].Design = "" }, "scenarios[0].design"},
		{"unknown design", func(c *Config) { c.Scenarios[0].Design = "rdd" }, "scenarios[0].design"},
		{"tiny sample", func(c *Config) { c.Scenarios[0].SampleSizes = []int{3} }, "scenarios[0].sample_sizes"},
		{"zero sample", func(c *Config) { c.Scenarios[0].SampleSizes = []int{0} }, "scenarios[0].sample_sizes[0]"},
		{"strengths outside iv", func(c *Config) { c.Scenarios[0].Strengths = []float64{0.1} }, "scenarios[0].strengths"},
		{"violations outside did", func(c *Config) { c.Scenarios[1].Violations = []bool{true} }, "scenarios[1].violations"},
		{"pre-trend outside did", func(c *Config) { c.Scenarios[0].PreTrend = f(1) }, "scenarios[0].pre_trend"},
		{"wrong label count", func(c *Config) { c.Scenarios[1].Labels = []string{"only"} }, "scenarios[1].labels"},
		{"empty label", func(c *Config) { c.Scenarios[1].Labels = []string{"a", ""} }, "scenarios[1].labels[1]"},
		{"duplicate names", func(c *Config) { c.Scenarios = append(c.Scenarios, ScenarioConfig{Design: "psm"}) }, "scenarios"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)

			err := config.Validate()
			require.Error(t, err)
			var ic *simerr.InvalidConfigurationError
			require.True(t, errors.As(err, &ic), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ic.Field)
			assert.False(t, simerr.Recoverable(err))
		})
	}
}

func TestValidateReplicationCap(t *testing.T) {
	config := Default()
	config.Replications = simulation.MaxReplications
	config.Scenarios[0].Replications = simulation.MaxReplications
	require.NoError(t, config.Validate())

	specs, err := config.Expand()
	require.NoError(t, err)
	for _, s := range specs {
		assert.Equal(t, simulation.MaxReplications, s.Replications, s.Name)
	}
}

func TestSettings(t *testing.T) {
	config := Default()
	set, err := config.Settings()
	require.NoError(t, err)
	assert.IsType(t, inference.StudentT{}, set.CriticalValue)
	assert.Equal(t, inference.DefaultBootstrapConfig(), set.Bootstrap)

	config.CriticalValue = "normal"
	config.ConfidenceLevel = 0.9
	set, err = config.Settings()
	require.NoError(t, err)
	assert.InDelta(t, 1.6448536269514722, set.CriticalValue.CriticalValue(10), 1e-9)
}

func TestExpand_NamedEntryKeepsSuffix(t *testing.T) {
	config := Default()
	config.Scenarios = []ScenarioConfig{{Design: experiment.DesignPSM, Name: "small", SampleSizes: []int{50}}}

	specs, err := config.Expand()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "small/n=50", specs[0].Name)
	assert.Equal(t, 4.0, specs[0].Effect)
}
