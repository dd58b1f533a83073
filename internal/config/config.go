// Package config provides unified configuration loading for causalsim.
// It supports loading a scenario suite from YAML and environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/inference"
	"github.com/nvandessel/causalsim/internal/logging"
	"github.com/nvandessel/causalsim/internal/simerr"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// SeedStride separates the seeds of the concrete scenarios expanded from one
// suite entry.
const SeedStride = 10_000

// Config contains all causalsim configuration settings.
type Config struct {
	// Workers bounds concurrent replications. 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`

	// Seed, when non-zero, replaces the preset base seed of every entry that
	// does not set its own.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Replications, when non-zero, replaces the preset count of every entry
	// that does not set its own.
	Replications int `json:"replications,omitempty" yaml:"replications,omitempty" validate:"gte=0,lte=1000000"`

	// MaxRedraws caps the discarded draws per replication.
	MaxRedraws int `json:"max_redraws" yaml:"max_redraws" validate:"gte=1"`

	// ConfidenceLevel is the nominal coverage of every interval.
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level" validate:"gt=0,lt=1"`

	// CriticalValue selects the interval strategy: "student-t" or "normal".
	CriticalValue string `json:"critical_value" yaml:"critical_value" validate:"oneof=student-t normal"`

	Bootstrap BootstrapConfig `json:"bootstrap" yaml:"bootstrap"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Scenarios is the suite. Each entry expands into one or more concrete
	// scenarios.
	Scenarios []ScenarioConfig `json:"scenarios" yaml:"scenarios" validate:"min=1,dive"`
}

// BootstrapConfig configures resampling standard errors.
type BootstrapConfig struct {
	// Reps is the number of usable resamples.
	Reps int `json:"reps" yaml:"reps" validate:"gte=2"`
	// RetryFactor bounds failed resamples at RetryFactor·Reps.
	RetryFactor int `json:"retry_factor" yaml:"retry_factor" validate:"gte=1"`
}

// LoggingConfig configures causalsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the replication event trace on stderr.
	// "trace" additionally logs every replication.
	Level string `json:"level" yaml:"level"`

	// TraceFile receives the JSONL event trace regardless of level.
	TraceFile string `json:"trace_file,omitempty" yaml:"trace_file,omitempty"`
}

// ScenarioConfig is one suite entry. Zero values fall back to the design
// preset.
type ScenarioConfig struct {
	Design string `json:"design" yaml:"design" validate:"required"`
	// Name prefixes the expanded scenario names. Empty uses generated names.
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	SampleSizes  []int     `json:"sample_sizes,omitempty" yaml:"sample_sizes,omitempty" validate:"dive,gte=1"`
	Replications int       `json:"replications,omitempty" yaml:"replications,omitempty" validate:"gte=0,lte=1000000"`
	Seed         uint64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Effect       *float64  `json:"effect,omitempty" yaml:"effect,omitempty"`
	Strengths    []float64 `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Violations   []bool    `json:"violations,omitempty" yaml:"violations,omitempty"`
	PreTrend     *float64  `json:"pre_trend,omitempty" yaml:"pre_trend,omitempty"`
	Labels       []string  `json:"labels,omitempty" yaml:"labels,omitempty" validate:"dive,required"`
}

// Default returns a Config reproducing the three built-in studies.
func Default() *Config {
	cfg := &Config{
		MaxRedraws:      simulation.DefaultMaxRedraws,
		ConfidenceLevel: inference.DefaultLevel,
		CriticalValue:   inference.StrategyStudentT,
		Bootstrap: BootstrapConfig{
			Reps:        inference.DefaultBootstrapConfig().Reps,
			RetryFactor: inference.DefaultBootstrapConfig().RetryFactor,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
	for _, name := range experiment.DesignNames() {
		cfg.Scenarios = append(cfg.Scenarios, ScenarioConfig{Design: name})
	}
	return cfg
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.causalsim/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".causalsim", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := ApplyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the
// file omits keep their defaults; a scenarios list replaces the default
// suite.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	config.Scenarios = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if len(config.Scenarios) == 0 {
		config.Scenarios = Default().Scenarios
	}
	config.Logging.TraceFile = os.ExpandEnv(config.Logging.TraceFile)

	return config, nil
}

// ApplyEnvOverrides applies CAUSALSIM_* environment variables to config.
// A malformed number is an InvalidConfigurationError.
func ApplyEnvOverrides(config *Config) error {
	if v := os.Getenv("CAUSALSIM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return simerr.InvalidConfig("workers", "CAUSALSIM_WORKERS=%q is not an integer", v)
		}
		config.Workers = n
	}

	if v := os.Getenv("CAUSALSIM_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return simerr.InvalidConfig("seed", "CAUSALSIM_SEED=%q is not an unsigned integer", v)
		}
		config.Seed = n
	}

	if v := os.Getenv("CAUSALSIM_REPLICATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return simerr.InvalidConfig("replications", "CAUSALSIM_REPLICATIONS=%q is not an integer", v)
		}
		config.Replications = n
	}

	if v := os.Getenv("CAUSALSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("CAUSALSIM_CRITICAL_VALUE"); v != "" {
		config.CriticalValue = v
	}
	return nil
}

var validate = validator.New()

// Validate checks that the configuration is valid. Every failure is a
// *simerr.InvalidConfigurationError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return simerr.InvalidConfig(fieldPath(fe.Namespace()), "failed %q check (value %v)", tagDescription(fe), fe.Value())
		}
		return simerr.InvalidConfig("config", "%v", err)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return simerr.InvalidConfig("logging.level", "invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	for i, s := range c.Scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)
		d, ok := experiment.Lookup(s.Design)
		if !ok {
			return simerr.InvalidConfig(field+".design", "unknown design %q (valid: %v)", s.Design, experiment.DesignNames())
		}
		if len(s.Strengths) > 0 && s.Design != experiment.DesignIV {
			return simerr.InvalidConfig(field+".strengths", "only the %s design takes instrument strengths", experiment.DesignIV)
		}
		if len(s.Violations) > 0 && s.Design != experiment.DesignDiD {
			return simerr.InvalidConfig(field+".violations", "only the %s design takes trend violations", experiment.DesignDiD)
		}
		if s.PreTrend != nil && s.Design != experiment.DesignDiD {
			return simerr.InvalidConfig(field+".pre_trend", "only the %s design takes a pre-trend", experiment.DesignDiD)
		}
		if len(s.Labels) > 0 && len(s.Labels) != len(d.Estimators) {
			return simerr.InvalidConfig(field+".labels", "design %s takes %d estimator labels, got %d", s.Design, len(d.Estimators), len(s.Labels))
		}
		for _, g := range s.Strengths {
			if !finite(g) {
				return simerr.InvalidConfig(field+".strengths", "strength must be finite, got %v", g)
			}
		}
		if s.Effect != nil && !finite(*s.Effect) {
			return simerr.InvalidConfig(field+".effect", "effect must be finite")
		}
		if s.PreTrend != nil && !finite(*s.PreTrend) {
			return simerr.InvalidConfig(field+".pre_trend", "pre-trend must be finite")
		}
		for _, n := range s.SampleSizes {
			if n < minSampleSize {
				return simerr.InvalidConfig(field+".sample_sizes", "sample size %d is below the minimum of %d", n, minSampleSize)
			}
		}
	}

	specs, err := c.Expand()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Name] {
			return simerr.InvalidConfig("scenarios", "duplicate scenario name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// minSampleSize is the smallest N every built-in generator accepts.
const minSampleSize = 4

// Expand flattens the suite into concrete scenario specs. Each entry
// iterates sample sizes, then strengths (iv) or violation flags (did); the
// k-th scenario of an entry is seeded with seed + k·SeedStride.
func (c *Config) Expand() ([]experiment.Spec, error) {
	var out []experiment.Spec
	for i, s := range c.Scenarios {
		d, ok := experiment.Lookup(s.Design)
		if !ok {
			return nil, simerr.InvalidConfig(fmt.Sprintf("scenarios[%d].design", i), "unknown design %q (valid: %v)", s.Design, experiment.DesignNames())
		}

		sizes := s.SampleSizes
		if len(sizes) == 0 {
			sizes = d.SampleSizes
		}
		seed := s.Seed
		if seed == 0 {
			seed = c.Seed
		}
		if seed == 0 {
			seed = d.Seed
		}
		reps := s.Replications
		if reps == 0 {
			reps = c.Replications
		}
		if reps == 0 {
			reps = d.Replications
		}

		var variants []func(*experiment.Spec)
		switch s.Design {
		case experiment.DesignIV:
			strengths := s.Strengths
			if len(strengths) == 0 {
				strengths = d.Strengths
			}
			for _, g := range strengths {
				variants = append(variants, func(sp *experiment.Spec) { sp.Strength = g })
			}
		case experiment.DesignDiD:
			violations := s.Violations
			if len(violations) == 0 {
				violations = []bool{false, true}
			}
			for _, v := range violations {
				variants = append(variants, func(sp *experiment.Spec) { sp.Violation = v })
			}
		default:
			variants = append(variants, func(*experiment.Spec) {})
		}

		k := 0
		for _, n := range sizes {
			for _, apply := range variants {
				sp, err := experiment.NewSpec(s.Design, n)
				if err != nil {
					return nil, err
				}
				apply(&sp)
				sp.Replications = reps
				sp.Seed = seed + uint64(k)*SeedStride
				sp.MaxRedraws = c.MaxRedraws
				if s.Effect != nil {
					sp.Effect = *s.Effect
				}
				if s.PreTrend != nil {
					sp.PreTrend = *s.PreTrend
				}
				sp.Labels = s.Labels
				sp.Name = sp.DefaultName()
				if s.Name != "" {
					sp.Name = s.Name + strings.TrimPrefix(sp.Name, sp.Design)
				}
				sp.Label = sp.DefaultLabel()
				out = append(out, sp)
				k++
			}
		}
	}
	return out, nil
}

// Settings builds the inference settings shared by every scenario.
func (c *Config) Settings() (experiment.Settings, error) {
	cv, err := inference.NewCriticalValuer(c.CriticalValue, c.ConfidenceLevel)
	if err != nil {
		return experiment.Settings{}, err
	}
	return experiment.Settings{
		CriticalValue: cv,
		Bootstrap: inference.BootstrapConfig{
			Reps:        c.Bootstrap.Reps,
			RetryFactor: c.Bootstrap.RetryFactor,
		},
	}, nil
}

// fieldPath turns a validator namespace such as "Config.Bootstrap.Reps"
// into "bootstrap.reps".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func tagDescription(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
