// Package config holds the run parameters of the IPTW survival pipeline.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/survival"
)

// Config is the full set of pipeline parameters.
type Config struct {
	// N is the number of subjects to simulate.
	N int `yaml:"n"`

	// Seed drives the simulator and the bootstrap sampler.
	Seed uint64 `yaml:"seed"`

	// Covariates are the confounders of the propensity model.
	Covariates []string `yaml:"covariates"`

	// Ties is the Cox tie handling method: "efron" or "breslow".
	Ties string `yaml:"ties"`

	// Robust requests sandwich standard errors for the Cox fit.
	Robust bool `yaml:"robust"`

	// Alpha is the significance level of the reported intervals.
	Alpha float64 `yaml:"alpha"`

	// Bootstrap is the number of bootstrap replicates. Zero disables it.
	Bootstrap int `yaml:"bootstrap"`

	// TrimLower and TrimUpper are weight truncation percentiles (0..100).
	// The default 0/100 leaves weights untouched.
	TrimLower float64 `yaml:"trim_lower"`
	TrimUpper float64 `yaml:"trim_upper"`

	// Stabilized multiplies weights by the marginal treatment probability.
	Stabilized bool `yaml:"stabilized"`

	Plot    PlotConfig    `yaml:"plot"`
	Logging LoggingConfig `yaml:"logging"`
}

// PlotConfig configures the Kaplan-Meier figure.
type PlotConfig struct {
	// Out is the output file; the extension picks the format.
	Out string `yaml:"out"`

	// Weighted draws IPT-weighted curves instead of crude ones.
	Weighted bool `yaml:"weighted"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the demonstration settings.
func Default() *Config {
	return &Config{
		N:          2000,
		Seed:       42,
		Covariates: []string{data.ColAge, data.ColSex},
		Ties:       survival.Efron.String(),
		Alpha:      0.05,
		TrimLower:  0,
		TrimUpper:  100,
		Plot: PlotConfig{
			Out: "km.png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// TieMethod parses the Ties field.
func (c *Config) TieMethod() (survival.TieMethod, error) {
	return survival.ParseTieMethod(c.Ties)
}

// Trimmed reports whether the trim percentiles change any weight.
func (c *Config) Trimmed() bool {
	return c.TrimLower > 0 || c.TrimUpper < 100
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("n must be positive, got %d", c.N)
	}
	if len(c.Covariates) == 0 {
		return fmt.Errorf("at least one covariate is required")
	}
	seen := make(map[string]bool, len(c.Covariates))
	for _, name := range c.Covariates {
		if name != data.ColAge && name != data.ColSex {
			return fmt.Errorf("unknown covariate: %s (valid: %s, %s)", name, data.ColAge, data.ColSex)
		}
		if seen[name] {
			return fmt.Errorf("duplicate covariate: %s", name)
		}
		seen[name] = true
	}
	if _, err := c.TieMethod(); err != nil {
		return err
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be between 0 and 1, got %v", c.Alpha)
	}
	if c.Bootstrap < 0 {
		return fmt.Errorf("bootstrap must be non-negative, got %d", c.Bootstrap)
	}
	if c.TrimLower < 0 || c.TrimUpper > 100 || c.TrimLower >= c.TrimUpper {
		return fmt.Errorf("trim percentiles must satisfy 0 <= lower < upper <= 100, got [%v, %v]", c.TrimLower, c.TrimUpper)
	}
	if c.Plot.Out == "" {
		return fmt.Errorf("plot.out must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}
