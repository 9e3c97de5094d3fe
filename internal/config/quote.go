package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Op           string
	BaseBalance  string
	QuoteBalance string
	Supply       string
	Amount       string
	TokenIn      string
	BaseWeight   string
	Alpha        string
	Beta         string
	Max          string
	Epsilon      string
	Lambda       string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("POOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("op", "origin")
	v.SetDefault("token-in", "base")
	v.SetDefault("base-weight", "0.5")
	v.SetDefault("alpha", "0.5")
	v.SetDefault("beta", "0.35")
	v.SetDefault("max", "0.15")
	v.SetDefault("epsilon", "0.0004")
	v.SetDefault("lambda", "0.3")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return QuoteConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return QuoteConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return QuoteConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := QuoteConfig{
		Op:           v.GetString("op"),
		BaseBalance:  v.GetString("base-balance"),
		QuoteBalance: v.GetString("quote-balance"),
		Supply:       v.GetString("supply"),
		Amount:       v.GetString("amount"),
		TokenIn:      v.GetString("token-in"),
		BaseWeight:   v.GetString("base-weight"),
		Alpha:        v.GetString("alpha"),
		Beta:         v.GetString("beta"),
		Max:          v.GetString("max"),
		Epsilon:      v.GetString("epsilon"),
		Lambda:       v.GetString("lambda"),
	}

	return cfg, nil
}
