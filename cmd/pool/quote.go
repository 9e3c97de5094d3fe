package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"oraclepool/internal/config"
	"oraclepool/internal/curve"
	"oraclepool/internal/fixed"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	params, err := parseParams(cfg.Alpha, cfg.Beta, cfg.Max, cfg.Epsilon, cfg.Lambda)
	if err != nil {
		return err
	}

	snap, err := parseSnapshot(cfg.BaseBalance, cfg.QuoteBalance, cfg.BaseWeight)
	if err != nil {
		return err
	}

	amount, err := fixed.Parse(cfg.Amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	var inIsBase bool
	switch cfg.TokenIn {
	case "base":
		inIsBase = true
	case "quote":
		inIsBase = false
	default:
		return fmt.Errorf("token-in must be base or quote, got %q", cfg.TokenIn)
	}

	out := map[string]string{"op": cfg.Op}
	switch cfg.Op {
	case "origin":
		q, err := curve.QuoteOriginSwap(snap, params, inIsBase, amount)
		if err != nil {
			return err
		}
		out["amount_in"] = q.AmountIn.String()
		out["amount_out"] = q.AmountOut.String()
		out["fee"] = q.Fee.String()

	case "target":
		q, err := curve.QuoteTargetSwap(snap, params, inIsBase, amount)
		if err != nil {
			return err
		}
		out["amount_in"] = q.AmountIn.String()
		out["amount_out"] = q.AmountOut.String()
		out["fee"] = q.Fee.String()

	case "deposit":
		supply, err := parseOptionalFixed(cfg.Supply)
		if err != nil {
			return fmt.Errorf("parse supply: %w", err)
		}
		q, err := curve.QuoteDeposit(snap, supply, amount)
		if err != nil {
			return err
		}
		out["lp_amount"] = q.LPAmount.String()
		out["base_amount"] = q.BaseAmount.String()
		out["quote_amount"] = q.QuoteAmount.String()

	case "withdraw":
		supply, err := parseOptionalFixed(cfg.Supply)
		if err != nil {
			return fmt.Errorf("parse supply: %w", err)
		}
		q, err := curve.QuoteWithdraw(snap, supply, amount)
		if err != nil {
			return err
		}
		out["base_amount"] = q.BaseAmount.String()
		out["quote_amount"] = q.QuoteAmount.String()

	default:
		return fmt.Errorf("unknown op %q", cfg.Op)
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(out)
}

func parseParams(alpha, beta, max, epsilon, lambda string) (curve.Params, error) {
	vals := make([]*big.Int, 0, 5)
	for _, s := range []string{alpha, beta, max, epsilon, lambda} {
		v, err := fixed.Parse(s)
		if err != nil {
			return curve.Params{}, fmt.Errorf("parse curve parameter %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return curve.NewParams(vals[0], vals[1], vals[2], vals[3], vals[4])
}

func parseSnapshot(baseBalance, quoteBalance, baseWeight string) (curve.Snapshot, error) {
	base, err := parseOptionalFixed(baseBalance)
	if err != nil {
		return curve.Snapshot{}, fmt.Errorf("parse base-balance: %w", err)
	}
	quote, err := parseOptionalFixed(quoteBalance)
	if err != nil {
		return curve.Snapshot{}, fmt.Errorf("parse quote-balance: %w", err)
	}
	weight, err := fixed.Parse(baseWeight)
	if err != nil {
		return curve.Snapshot{}, fmt.Errorf("parse base-weight: %w", err)
	}
	if weight.Cmp(fixed.One) >= 0 {
		return curve.Snapshot{}, fmt.Errorf("base-weight must be below one")
	}
	return curve.Snapshot{
		BaseBalance:  base,
		QuoteBalance: quote,
		BaseWeight:   weight,
		QuoteWeight:  new(big.Int).Sub(fixed.One, weight),
	}, nil
}

func parseOptionalFixed(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return fixed.Parse(s)
}
