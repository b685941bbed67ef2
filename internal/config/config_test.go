package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bingolead/retracement-engine/internal/config"
)

const sampleYAML = `
log_level: debug
server:
  host: 0.0.0.0
  port: 9000
persistence:
  dsn: "user:pass@tcp(127.0.0.1:3306)/engine"
tradovate:
  symbol: ESM5
strategies:
  - name: es-long
    entry_offset: 4
    take_profit_offset: 40
    stop_loss_offset: 20
    trail_trigger: 2
    re_entry_distance: 1
    max_open_trades: 1
    max_contracts_per_trade: 1
    symbol_size: 50
    is_trading_long: true
    static_levels: [4500, 4510, 4520]
    long_date_ranges:
      - start: "2024-01-01"
        end: "2024-12-31"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := config.Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if len(cfg.Strategies) != 1 || cfg.Strategies[0].Name != "es-long" {
		t.Fatalf("expected one strategy named es-long, got %+v", cfg.Strategies)
	}
}

func TestEnvOverridesTradovateCredentials(t *testing.T) {
	t.Setenv("TRADOVATE_USERNAME", "env-user")
	t.Setenv("TRADOVATE_PASSWORD", "env-pass")

	cfg, err := config.Load(writeSample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tradovate.Username != "env-user" {
		t.Errorf("expected env override for username, got %q", cfg.Tradovate.Username)
	}
	if cfg.Tradovate.Password != "env-pass" {
		t.Errorf("expected env override for password, got %q", cfg.Tradovate.Password)
	}
	if cfg.Tradovate.Symbol != "ESM5" {
		t.Errorf("expected symbol from file to survive, got %q", cfg.Tradovate.Symbol)
	}
}

func TestDefaultsApplyWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.PaperTrading {
		t.Error("expected paper trading to default true")
	}
}

func TestBuildStrategyConfigRequiresStaticLevels(t *testing.T) {
	def := config.StrategyDefinition{Name: "no-levels"}
	if _, _, err := def.BuildStrategyConfig(); err == nil {
		t.Fatal("expected an error for a strategy definition with no static levels")
	}
}
