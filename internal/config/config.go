package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lookahead-backtest/internal/data"
	"lookahead-backtest/internal/economics"
	"lookahead-backtest/internal/model"
	"lookahead-backtest/internal/strategy"
)

// DefaultHorizon is the lookahead used when neither the config nor a flag sets one.
const DefaultHorizon = 6

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load battery parameters from a separate YAML (e.g. configs/batteries/*.yaml).
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile string            `yaml:"battery_file"`
	Battery     BatteryConfig     `yaml:"battery"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Datasets    []DatasetConfig   `yaml:"datasets"`
	Economics   *economics.Params `yaml:"economics"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type BatteryConfig struct {
	Name              string  `yaml:"name"`
	EnergyCapacityMWh float64 `yaml:"energy_capacity_mwh"`
	PowerCapacityMW   float64 `yaml:"power_capacity_mw"`
	// CRate derives power_capacity_mw from the capacity when power is not given (0.5 = 2h battery).
	CRate               float64 `yaml:"c_rate"`
	// RoundTripEfficiency is nil when unset; an explicit 0 is kept and rejected by Validate.
	RoundTripEfficiency *float64 `yaml:"round_trip_efficiency"`
	MinSOC              float64  `yaml:"min_soc"`
	MaxSOC              float64  `yaml:"max_soc"`
	InitialSOC          float64  `yaml:"initial_soc"`
	FeePerMWh           float64  `yaml:"fee_per_mwh"`
	MaxCycles           float64  `yaml:"max_cycles"`
}

type StrategyConfig struct {
	Name string `yaml:"name"`
	// Horizon is nil when unset; an explicit 0 is kept and rejected by Validate.
	Horizon *int           `yaml:"horizon"`
	Params  map[string]any `yaml:"params"`
}

type SweepConfig struct {
	// Horizons uses the ParseHorizons syntax, e.g. "1-12,16:96:8".
	Horizons    string `yaml:"horizons"`
	Concurrency int    `yaml:"concurrency"`
	SummaryFile string `yaml:"summary_file"`
}

type DatasetConfig struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Period string `yaml:"period"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If battery_file is set, load it and merge in any explicit overrides from c.Battery.
	if c.BatteryFile != "" {
		loaded, err := LoadBatteryFile(resolvePath(path, c.BatteryFile))
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	// Dataset paths are relative to the config file, like battery_file.
	for i := range c.Datasets {
		c.Datasets[i].Path = resolvePath(path, c.Datasets[i].Path)
	}
	return &c, nil
}

// resolvePath prefers interpreting relative paths as relative to the config file
// directory, but falls back to the provided path (relative to cwd) if that doesn't exist.
func resolvePath(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(configPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills the optional fields.
func (c *Config) ApplyDefaults() {
	c.Battery.ApplyDefaults()
	if c.Strategy.Name == "" {
		c.Strategy.Name = "threshold"
	}
	if c.Strategy.Horizon == nil {
		c.Strategy.Horizon = IntPtr(DefaultHorizon)
	}
	if c.Sweep.Concurrency == 0 {
		c.Sweep.Concurrency = 1
	}
	if c.Economics == nil {
		p := economics.DefaultParams()
		c.Economics = &p
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	for i := range c.Datasets {
		if c.Datasets[i].Name == "" {
			base := filepath.Base(c.Datasets[i].Path)
			c.Datasets[i].Name = base[:len(base)-len(filepath.Ext(base))]
		}
	}
}

// ApplyDefaults fills max_soc, power from c_rate and, if initial_soc is not
// provided, defaults it to min_soc (the battery starts empty).
func (b *BatteryConfig) ApplyDefaults() {
	if b.MaxSOC == 0 {
		b.MaxSOC = 1
	}
	if b.PowerCapacityMW == 0 && b.CRate > 0 {
		b.PowerCapacityMW = b.EnergyCapacityMWh * b.CRate
	}
	if b.RoundTripEfficiency == nil {
		b.RoundTripEfficiency = FloatPtr(1)
	}
	if b.InitialSOC == 0 {
		b.InitialSOC = b.MinSOC
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Strategy.Name {
	case "threshold", "oracle":
	case "":
		return model.Invalid("strategy.name", "is required")
	default:
		return model.Invalid("strategy.name", fmt.Sprintf("unknown strategy %q", c.Strategy.Name))
	}
	if c.Strategy.Horizon == nil || *c.Strategy.Horizon <= 0 {
		return model.Invalid("horizon", "must be > 0")
	}
	if _, err := c.ThresholdParams(); err != nil {
		return err
	}
	// Validate battery params by constructing a model.Battery.
	if _, err := model.NewBattery(c.Battery.ToModelParams(), c.Battery.InitialSOC); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	if c.Sweep.Concurrency < 0 {
		return model.Invalid("sweep.concurrency", "must be >= 0")
	}
	for _, d := range c.Datasets {
		if d.Path == "" {
			return model.Invalid("datasets.path", fmt.Sprintf("dataset %q has no path", d.Name))
		}
		if _, err := data.ParsePeriod(d.Period); err != nil {
			return err
		}
	}
	if c.Economics != nil {
		if err := c.Economics.Validate(); err != nil {
			return fmt.Errorf("economics config invalid: %w", err)
		}
	}
	return nil
}

// HorizonValue returns the configured horizon, or DefaultHorizon when unset.
func (s StrategyConfig) HorizonValue() int {
	if s.Horizon == nil {
		return DefaultHorizon
	}
	return *s.Horizon
}

// ToModelParams converts to the simulator's battery params. An unset
// efficiency maps to 0 so that validation fails unless defaults were applied.
func (b BatteryConfig) ToModelParams() model.BatteryParams {
	var eta float64
	if b.RoundTripEfficiency != nil {
		eta = *b.RoundTripEfficiency
	}
	return model.BatteryParams{
		EnergyCapacityMWh:   b.EnergyCapacityMWh,
		PowerCapacityMW:     b.PowerCapacityMW,
		RoundTripEfficiency: eta,
		MinSOC:              b.MinSOC,
		MaxSOC:              b.MaxSOC,
		FeePerMWh:           b.FeePerMWh,
		MaxCycles:           b.MaxCycles,
	}
}

// ThresholdParams reads the threshold strategy params, starting from the defaults.
func (c *Config) ThresholdParams() (strategy.ThresholdParams, error) {
	p := strategy.DefaultThresholdParams()
	var err error
	if p.LowerPercentile, err = floatParam(c.Strategy.Params, "lower_percentile", p.LowerPercentile); err != nil {
		return p, err
	}
	if p.UpperPercentile, err = floatParam(c.Strategy.Params, "upper_percentile", p.UpperPercentile); err != nil {
		return p, err
	}
	if p.RiseFactor, err = floatParam(c.Strategy.Params, "rise_factor", p.RiseFactor); err != nil {
		return p, err
	}
	if p.FallFactor, err = floatParam(c.Strategy.Params, "fall_factor", p.FallFactor); err != nil {
		return p, err
	}
	if p.LastTradeFactor, err = floatParam(c.Strategy.Params, "last_trade_factor", p.LastTradeFactor); err != nil {
		return p, err
	}
	if p.LiquidateAtEnd, err = boolParam(c.Strategy.Params, "liquidate_at_end", p.LiquidateAtEnd); err != nil {
		return p, err
	}
	return p, p.Validate()
}

// OracleParams reads the oracle strategy params. Zero values pick the oracle defaults.
func (c *Config) OracleParams() (strategy.OracleParams, error) {
	soc, err := floatParam(c.Strategy.Params, "soc_steps", 0)
	if err != nil {
		return strategy.OracleParams{}, err
	}
	power, err := floatParam(c.Strategy.Params, "power_steps", 0)
	if err != nil {
		return strategy.OracleParams{}, err
	}
	return strategy.OracleParams{SocSteps: int(soc), PowerSteps: int(power)}, nil
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, model.Invalid(key, fmt.Sprintf("must be a number, got %T", v))
}

func boolParam(params map[string]any, key string, def bool) (bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, model.Invalid(key, fmt.Sprintf("must be a bool, got %T", v))
	}
	return b, nil
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

// LoadBatteryFile reads a battery preset: a YAML document with a top-level battery key.
func LoadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, err
	}
	return w.Battery, nil
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

// MergeBattery overlays set (non-nil or non-zero) fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.EnergyCapacityMWh != 0 {
		out.EnergyCapacityMWh = override.EnergyCapacityMWh
	}
	if override.PowerCapacityMW != 0 {
		out.PowerCapacityMW = override.PowerCapacityMW
	}
	if override.CRate != 0 {
		out.CRate = override.CRate
	}
	if override.RoundTripEfficiency != nil {
		eta := *override.RoundTripEfficiency
		out.RoundTripEfficiency = &eta
	}
	// Note: these are allowed to be 0 in theory, but a zero override cannot be told apart from "unset".
	if override.MinSOC != 0 {
		out.MinSOC = override.MinSOC
	}
	if override.MaxSOC != 0 {
		out.MaxSOC = override.MaxSOC
	}
	if override.InitialSOC != 0 {
		out.InitialSOC = override.InitialSOC
	}
	if override.FeePerMWh != 0 {
		out.FeePerMWh = override.FeePerMWh
	}
	if override.MaxCycles != 0 {
		out.MaxCycles = override.MaxCycles
	}
	return out
}
