// Package config loads engine configuration from a YAML file with
// environment-variable overrides, using viper the way the teacher's
// go.mod already required it but never wired up.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StrategyDefinition is one strategy's JSON/YAML configuration block.
// Field names match spec's external strategy configuration exactly.
type StrategyDefinition struct {
	Name                 string            `mapstructure:"name"`
	EntryOffset          int               `mapstructure:"entry_offset"`
	TakeProfitOffset     int               `mapstructure:"take_profit_offset"`
	StopLossOffset       int               `mapstructure:"stop_loss_offset"`
	TrailTrigger         int               `mapstructure:"trail_trigger"`
	ReEntryDistance      int               `mapstructure:"re_entry_distance"`
	MaxOpenTrades        int               `mapstructure:"max_open_trades"`
	MaxContractsPerTrade int               `mapstructure:"max_contracts_per_trade"`
	SymbolSize           float64           `mapstructure:"symbol_size"`
	IsTradingLong        bool              `mapstructure:"is_trading_long"`
	UseTradingHours      bool              `mapstructure:"use_trading_hours"`
	EarlyCloseCalendar   map[string][2]int `mapstructure:"early_close_calendar"`
	StaticLevels         []float64         `mapstructure:"static_levels"`
	LongDateRanges       []DateRange       `mapstructure:"long_date_ranges"`
	ShortDateRanges      []DateRange       `mapstructure:"short_date_ranges"`
	MinEntryInterval     time.Duration     `mapstructure:"min_entry_interval"`
}

// DateRange is a [start, end) window in "2006-01-02" form as read from
// YAML, before conversion to ladder.DateWindow.
type DateRange struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// TradovateConfig holds the broker REST credentials and connection
// settings, sourced from TRADOVATE_* environment variables per spec.
type TradovateConfig struct {
	APIURL          string        `mapstructure:"api_url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	AppID           string        `mapstructure:"app_id"`
	AppVersion      string        `mapstructure:"app_version"`
	ClientID        string        `mapstructure:"client_id"`
	CID             string        `mapstructure:"cid"`
	Secret          string        `mapstructure:"secret"`
	Symbol          string        `mapstructure:"symbol"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ServerConfig holds the webhook/metrics HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PersistenceConfig holds the MySQL DSN the GORM store connects with.
type PersistenceConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Config is the fully resolved engine configuration.
type Config struct {
	LogLevel         string               `mapstructure:"log_level"`
	IsLongOnlyTrade  bool                 `mapstructure:"is_long_only_trade"`
	PaperTrading     bool                 `mapstructure:"paper_trading"`
	Server           ServerConfig         `mapstructure:"server"`
	Persistence      PersistenceConfig    `mapstructure:"persistence"`
	Tradovate        TradovateConfig      `mapstructure:"tradovate"`
	Strategies       []StrategyDefinition `mapstructure:"strategies"`
}

// Load reads configFile (YAML) as the primary source, then lets any of
// the documented environment variables override individual fields. An
// empty configFile is tolerated: the caller may run entirely off
// environment variables plus defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("tradovate.api_url", "https://demo.tradovateapi.com/v1")
	v.SetDefault("tradovate.refresh_interval", 80*time.Minute)
	v.SetDefault("paper_trading", true)

	bindings := map[string]string{
		"log_level":           "LOG_LEVEL",
		"is_long_only_trade":  "IS_LONG_ONLY_TRADE",
		"tradovate.api_url":   "TRADOVATE_API_URL",
		"tradovate.username":  "TRADOVATE_USERNAME",
		"tradovate.password":  "TRADOVATE_PASSWORD",
		"tradovate.client_id": "TRADOVATE_CLIENT_ID",
		"tradovate.cid":       "TRADOVATE_CID",
		"tradovate.secret":    "TRADOVATE_SECRET",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
