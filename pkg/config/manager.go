package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML or JSON config file on top of DefaultConfig, applies
// environment overrides and validates the result. An empty path yields the
// defaults with overrides applied.
func Load(path string) (*BacktestConfig, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the final Validate call, for callers that
// still merge command-line flags
func LoadUnvalidated(path string) (*BacktestConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := Decode(content, formatOf(path), cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals content onto cfg. Lists replace the defaults instead of
// merging with them.
func Decode(content []byte, format string, cfg *BacktestConfig) error {
	strategies, formats := cfg.Strategies, cfg.Output.Formats
	cfg.Strategies, cfg.Output.Formats = nil, nil

	var err error
	switch format {
	case "json":
		err = json.Unmarshal(content, cfg)
	default:
		err = yaml.Unmarshal(content, cfg)
	}
	if err != nil {
		return err
	}

	if len(cfg.Strategies) == 0 {
		cfg.Strategies = strategies
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = formats
	}
	return nil
}

// Save writes cfg as YAML or JSON depending on the file extension
func Save(cfg *BacktestConfig, path string) error {
	var (
		content []byte
		err     error
	)
	if formatOf(path) == "json" {
		content, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		content, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, content, 0644)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func applyEnvOverrides(cfg *BacktestConfig) error {
	if v := os.Getenv("BACKTEST_DATA_FILE"); v != "" {
		cfg.Data.File = v
	}
	if v := os.Getenv("BACKTEST_DATA_ROOT"); v != "" {
		cfg.Data.Root = v
	}
	if v := os.Getenv("BACKTEST_SYMBOL"); v != "" {
		cfg.Data.Symbol = v
	}
	if v := os.Getenv("BACKTEST_INTERVAL"); v != "" {
		cfg.Data.Interval = v
	}
	if v := os.Getenv("BACKTEST_REGIME_MODE"); v != "" {
		cfg.Regime.Mode = v
	}
	if v := os.Getenv("BACKTEST_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("BACKTEST_DATABASE"); v != "" {
		cfg.Sweep.Database = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"BACKTEST_INITIAL_CAPITAL", &cfg.Engine.InitialCapital},
		{"BACKTEST_COMMISSION", &cfg.Engine.Commission},
		{"BACKTEST_SLIPPAGE", &cfg.Engine.Slippage},
		{"BACKTEST_RISK_FRACTION", &cfg.Risk.RiskFraction},
		{"BACKTEST_STOP_MULTIPLIER", &cfg.Risk.StopMultiplier},
	}
	for _, f := range floats {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.env, v, err)
		}
		*f.dst = parsed
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"BACKTEST_ATR_PERIOD", &cfg.Data.ATRPeriod},
		{"BACKTEST_WORKERS", &cfg.Sweep.Workers},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", i.env, v, err)
		}
		*i.dst = parsed
	}

	return nil
}
