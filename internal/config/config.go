// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`
}

// BacktestConfig holds simulation defaults.
type BacktestConfig struct {
	InitialCapital    float64 `mapstructure:"initial_capital"`
	DefaultQuantity   int     `mapstructure:"default_quantity"`
	DefaultExpiryDays int     `mapstructure:"default_expiry_days"`
}

// StrategyConfig holds defaults for the built-in strategies.
type StrategyConfig struct {
	StrikeStep        float64 `mapstructure:"strike_step"`
	PremiumPct        float64 `mapstructure:"premium_pct"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold"`
	PCRBullish        float64 `mapstructure:"pcr_bullish"`
	PCRBearish        float64 `mapstructure:"pcr_bearish"`
}

// StorageConfig holds result persistence configuration.
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// UIConfig holds output formatting configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-backtester"
	}
	return filepath.Join(home, ".config", "option-backtester")
}

// Load loads configuration from the specified directory. If configDir
// is empty, uses the default config directory. A missing config file
// is not an error; defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.default_quantity", 1)
	v.SetDefault("backtest.default_expiry_days", 30)

	v.SetDefault("strategy.strike_step", 50.0)
	v.SetDefault("strategy.premium_pct", 0.01)
	v.SetDefault("strategy.momentum_threshold", 1.0)
	v.SetDefault("strategy.pcr_bullish", 1.3)
	v.SetDefault("strategy.pcr_bearish", 0.7)

	v.SetDefault("storage.database_path", filepath.Join(configDir, "backtests.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "backtester.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Backtest.DefaultQuantity <= 0 {
		return fmt.Errorf("default_quantity must be positive")
	}
	if c.Backtest.DefaultExpiryDays <= 0 {
		return fmt.Errorf("default_expiry_days must be positive")
	}
	if c.Strategy.PCRBearish > c.Strategy.PCRBullish {
		return fmt.Errorf("pcr_bearish must not exceed pcr_bullish")
	}
	return nil
}
