package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Scenario      string
	Out           string
	PGDSN         string
	RPCURL        string
	BaseFeed      string
	QuoteFeed     string
	BaseToken     string
	QuoteToken    string
	BaseDecimals  uint8
	QuoteDecimals uint8
	BaseRate      string
	QuoteRate     string
	BaseWeight    string
	MaxAge        time.Duration
	Alpha         string
	Beta          string
	Max           string
	Epsilon       string
	Lambda        string
	LogLevel      string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("POOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/operations.jsonl")
	v.SetDefault("base-token", "0x0000000000000000000000000000000000000001")
	v.SetDefault("quote-token", "0x0000000000000000000000000000000000000002")
	v.SetDefault("base-decimals", 18)
	v.SetDefault("quote-decimals", 18)
	v.SetDefault("base-rate", "100000000")
	v.SetDefault("quote-rate", "")
	v.SetDefault("base-weight", "0.5")
	v.SetDefault("max-age", time.Hour)
	v.SetDefault("alpha", "0.5")
	v.SetDefault("beta", "0.35")
	v.SetDefault("max", "0.15")
	v.SetDefault("epsilon", "0.0004")
	v.SetDefault("lambda", "0.3")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return SimulateConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return SimulateConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return SimulateConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := SimulateConfig{
		Scenario:      v.GetString("in"),
		Out:           v.GetString("out"),
		PGDSN:         v.GetString("pg-dsn"),
		RPCURL:        v.GetString("rpc"),
		BaseFeed:      v.GetString("base-feed"),
		QuoteFeed:     v.GetString("quote-feed"),
		BaseToken:     v.GetString("base-token"),
		QuoteToken:    v.GetString("quote-token"),
		BaseDecimals:  uint8(v.GetUint("base-decimals")),
		QuoteDecimals: uint8(v.GetUint("quote-decimals")),
		BaseRate:      v.GetString("base-rate"),
		QuoteRate:     v.GetString("quote-rate"),
		BaseWeight:    v.GetString("base-weight"),
		MaxAge:        v.GetDuration("max-age"),
		Alpha:         v.GetString("alpha"),
		Beta:          v.GetString("beta"),
		Max:           v.GetString("max"),
		Epsilon:       v.GetString("epsilon"),
		Lambda:        v.GetString("lambda"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}
