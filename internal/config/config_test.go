package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("initial capital = %v, want 100000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.DefaultQuantity != 1 {
		t.Errorf("default quantity = %d, want 1", cfg.Backtest.DefaultQuantity)
	}
	if cfg.Backtest.DefaultExpiryDays != 30 {
		t.Errorf("default expiry days = %d, want 30", cfg.Backtest.DefaultExpiryDays)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database path not defaulted")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
[backtest]
initial_capital = 250000.0
default_expiry_days = 7

[strategy]
momentum_threshold = 2.5

[logging]
level = "debug"
console = false
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backtest.InitialCapital != 250000 {
		t.Errorf("initial capital = %v, want 250000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.DefaultExpiryDays != 7 {
		t.Errorf("default expiry days = %d, want 7", cfg.Backtest.DefaultExpiryDays)
	}
	// Unset keys keep their defaults.
	if cfg.Backtest.DefaultQuantity != 1 {
		t.Errorf("default quantity = %d, want 1", cfg.Backtest.DefaultQuantity)
	}
	if cfg.Strategy.MomentumThreshold != 2.5 {
		t.Errorf("momentum threshold = %v, want 2.5", cfg.Strategy.MomentumThreshold)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Console {
		t.Errorf("logging = %+v, want debug without console", cfg.Logging)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"zero capital", "[backtest]\ninitial_capital = 0.0\n"},
		{"negative quantity", "[backtest]\ndefault_quantity = -1\n"},
		{"inverted pcr bands", "[strategy]\npcr_bullish = 0.5\npcr_bearish = 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(tt.toml), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("Load should reject invalid config")
			}
		})
	}
}
