// Package config exposes strongly typed application configuration structs
// loaded from YAML, with environment overrides for process-level settings.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment,
// metrics address, and logging level. Each field can be overridden from the
// environment.
type App struct {
	Name        string `yaml:"name" env:"SIGFLOW_APP_NAME"`
	Env         string `yaml:"env" env:"SIGFLOW_ENV"`
	MetricsAddr string `yaml:"metrics_addr" env:"SIGFLOW_METRICS_ADDR"`
	LogLevel    string `yaml:"log_level" env:"SIGFLOW_LOG_LEVEL"`
}

// Engine groups the model and pipeline tuning knobs.
type Engine struct {
	BarIntervalMs          int     `yaml:"bar_interval_ms"`
	ZScoreWindow           int     `yaml:"zscore_window"`
	ZScoreExitThreshold    float64 `yaml:"zscore_exit_threshold"`
	VPINWindow             int     `yaml:"vpin_window"`
	VPINToxicThreshold     float64 `yaml:"vpin_toxic_threshold"`
	ConfidenceFloor        float64 `yaml:"confidence_floor"`
	KalmanProcessNoise     float64 `yaml:"kalman_process_noise"`
	KalmanMeasurementNoise float64 `yaml:"kalman_measurement_noise"`
	OFILookback            int     `yaml:"ofi_lookback"`
	ATRPeriod              int     `yaml:"atr_period"`
	IdleTTLMs              int     `yaml:"idle_ttl_ms"`
}

// Risk encodes the base trade geometry before regime adjustment.
type Risk struct {
	BaseStopTicks   int     `yaml:"base_stop_ticks"`
	BaseTargetTicks int     `yaml:"base_target_ticks"`
	BreakevenTicks  int     `yaml:"breakeven_ticks"`
	ProfitLockPct   float64 `yaml:"profit_lock_pct"`
}

// Feed selects the tick source and the instruments it tracks.
type Feed struct {
	Provider       string   `yaml:"provider"`
	Instruments    []string `yaml:"instruments"`
	TickIntervalMs int      `yaml:"tick_interval_ms"`
}

// Journal configures where emitted signals are appended for later analysis.
type Journal struct {
	SignalsPath string `yaml:"signals_path"`
}

// Instrument carries static venue data for one instrument.
type Instrument struct {
	TickSize  float64 `yaml:"tick_size"`
	TickValue float64 `yaml:"tick_value"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App               App                   `yaml:"app"`
	Engine            Engine                `yaml:"engine"`
	Risk              Risk                  `yaml:"risk"`
	Feed              Feed                  `yaml:"feed"`
	Journal           Journal               `yaml:"journal"`
	Instruments       map[string]Instrument `yaml:"instruments"`
	DefaultInstrument Instrument            `yaml:"default_instrument"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// environment overrides and defaults, and validates it. Nonphysical values
// (non-positive tick size or interval) fail here, not at runtime.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := env.Parse(&config.App); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Engine.BarIntervalMs == 0 {
		c.Engine.BarIntervalMs = 5000
	}
	if c.Engine.ZScoreWindow == 0 {
		c.Engine.ZScoreWindow = 50
	}
	if c.Engine.ZScoreExitThreshold == 0 {
		c.Engine.ZScoreExitThreshold = 0.5
	}
	if c.Engine.VPINWindow == 0 {
		c.Engine.VPINWindow = 50
	}
	if c.Engine.VPINToxicThreshold == 0 {
		c.Engine.VPINToxicThreshold = 0.7
	}
	if c.Engine.ConfidenceFloor == 0 {
		c.Engine.ConfidenceFloor = 0.55
	}
	if c.Engine.KalmanProcessNoise == 0 {
		c.Engine.KalmanProcessNoise = 0.01
	}
	if c.Engine.KalmanMeasurementNoise == 0 {
		c.Engine.KalmanMeasurementNoise = 0.1
	}
	if c.Engine.OFILookback == 0 {
		c.Engine.OFILookback = 20
	}
	if c.Engine.ATRPeriod == 0 {
		c.Engine.ATRPeriod = 14
	}
	if c.Risk.BaseStopTicks == 0 {
		c.Risk.BaseStopTicks = 8
	}
	if c.Risk.BaseTargetTicks == 0 {
		c.Risk.BaseTargetTicks = 16
	}
	if c.Risk.BreakevenTicks == 0 {
		c.Risk.BreakevenTicks = 4
	}
	if c.Risk.ProfitLockPct == 0 {
		c.Risk.ProfitLockPct = 0.5
	}
	if c.Feed.TickIntervalMs == 0 {
		c.Feed.TickIntervalMs = 500
	}
}

// Validate rejects nonphysical configuration so failures surface at startup
// rather than per tick.
func (c *Config) Validate() error {
	if c.Engine.BarIntervalMs <= 0 {
		return fmt.Errorf("bar_interval_ms must be positive, got %d", c.Engine.BarIntervalMs)
	}
	if c.DefaultInstrument.TickSize <= 0 {
		return fmt.Errorf("default_instrument.tick_size must be positive, got %v", c.DefaultInstrument.TickSize)
	}
	for id, inst := range c.Instruments {
		if inst.TickSize <= 0 {
			return fmt.Errorf("instrument %s: tick_size must be positive, got %v", id, inst.TickSize)
		}
	}
	if c.Engine.VPINToxicThreshold <= 0 || c.Engine.VPINToxicThreshold > 1 {
		return fmt.Errorf("vpin_toxic_threshold must be in (0,1], got %v", c.Engine.VPINToxicThreshold)
	}
	if c.Engine.ConfidenceFloor <= 0 || c.Engine.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be in (0,1], got %v", c.Engine.ConfidenceFloor)
	}
	if c.Risk.ProfitLockPct <= 0 || c.Risk.ProfitLockPct > 1 {
		return fmt.Errorf("profit_lock_pct must be in (0,1], got %v", c.Risk.ProfitLockPct)
	}
	return nil
}
