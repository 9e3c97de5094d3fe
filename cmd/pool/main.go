package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pool",
		Short:        "Oracle-anchored liquidity pool tools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a single pool operation against in-memory reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("op", "origin", "operation (origin, target, deposit, withdraw)")
	quoteCmd.Flags().String("base-balance", "", "base reserve in numeraire units (e.g. 1000.5)")
	quoteCmd.Flags().String("quote-balance", "", "quote reserve in numeraire units")
	quoteCmd.Flags().String("supply", "", "LP token supply (deposit/withdraw)")
	quoteCmd.Flags().String("amount", "", "trade amount in numeraire units")
	quoteCmd.Flags().String("token-in", "base", "input side for swaps (base or quote)")
	quoteCmd.Flags().String("base-weight", "0.5", "target base weight")
	quoteCmd.Flags().String("alpha", "0.5", "hard deviation limit")
	quoteCmd.Flags().String("beta", "0.35", "fee-free band half-width")
	quoteCmd.Flags().String("max", "0.15", "maximum marginal slippage rate")
	quoteCmd.Flags().String("epsilon", "0.0004", "flat trade fee")
	quoteCmd.Flags().String("lambda", "0.3", "solver damping factor")

	root.AddCommand(quoteCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario file against a fresh pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input scenario JSONL")
	simulateCmd.Flags().String("out", "./data/operations.jsonl", "operation journal JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for journal and snapshot")
	simulateCmd.Flags().String("rpc", "", "optional RPC URL for Chainlink-seeded rates")
	simulateCmd.Flags().String("base-feed", "", "Chainlink aggregator address for the base token")
	simulateCmd.Flags().String("quote-feed", "", "Chainlink aggregator address for the quote token")
	simulateCmd.Flags().String("base-token", "0x0000000000000000000000000000000000000001", "base token address")
	simulateCmd.Flags().String("quote-token", "0x0000000000000000000000000000000000000002", "quote token address")
	simulateCmd.Flags().Uint("base-decimals", 18, "base token decimals")
	simulateCmd.Flags().Uint("quote-decimals", 18, "quote token decimals")
	simulateCmd.Flags().String("base-rate", "100000000", "initial base oracle answer (8 decimals)")
	simulateCmd.Flags().String("quote-rate", "", "initial quote oracle answer (8 decimals), empty for 1:1")
	simulateCmd.Flags().String("base-weight", "0.5", "target base weight")
	simulateCmd.Flags().Duration("max-age", time.Hour, "maximum oracle answer age")
	simulateCmd.Flags().String("alpha", "0.5", "hard deviation limit")
	simulateCmd.Flags().String("beta", "0.35", "fee-free band half-width")
	simulateCmd.Flags().String("max", "0.15", "maximum marginal slippage rate")
	simulateCmd.Flags().String("epsilon", "0.0004", "flat trade fee")
	simulateCmd.Flags().String("lambda", "0.3", "solver damping factor")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
