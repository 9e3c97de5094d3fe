package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oraclepool/internal/assimilator"
	"oraclepool/internal/chain"
	"oraclepool/internal/config"
	"oraclepool/internal/fixed"
	"oraclepool/internal/model"
	"oraclepool/internal/oracle"
	"oraclepool/internal/pool"
	"oraclepool/internal/scenario"
	"oraclepool/internal/storage"
	"oraclepool/internal/storage/postgres"
	"oraclepool/internal/token"
)

// poolAccount is the pool's own account with the in-memory token bank.
var poolAccount = common.HexToAddress("0x0000000000000000000000000000000000000ff0")

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}

	params, err := parseParams(cfg.Alpha, cfg.Beta, cfg.Max, cfg.Epsilon, cfg.Lambda)
	if err != nil {
		return err
	}
	baseWeight, err := fixed.Parse(cfg.BaseWeight)
	if err != nil {
		return fmt.Errorf("parse base-weight: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("read chain id: %w", err)
		}
		header, err := chainClient.LatestHeader(ctx)
		if err != nil {
			return fmt.Errorf("read latest header: %w", err)
		}
		logger.Info("rpc connected",
			zap.String("chain_id", chainID.String()),
			zap.Uint64("head", header.Number.Uint64()),
		)
	}

	clock := scenario.NewClock(time.Now())
	baseToken := common.HexToAddress(cfg.BaseToken)
	quoteToken := common.HexToAddress(cfg.QuoteToken)

	feeds := make(map[common.Address]*oracle.FixedFeed)
	baseAsm, err := buildAssimilator(ctx, chainClient, clock, feeds, side{
		token:    baseToken,
		decimals: cfg.BaseDecimals,
		rate:     cfg.BaseRate,
		feedAddr: cfg.BaseFeed,
		maxAge:   cfg.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("base assimilator: %w", err)
	}
	quoteAsm, err := buildAssimilator(ctx, chainClient, clock, feeds, side{
		token:    quoteToken,
		decimals: cfg.QuoteDecimals,
		rate:     cfg.QuoteRate,
		feedAddr: cfg.QuoteFeed,
		maxAge:   cfg.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("quote assimilator: %w", err)
	}

	bank := token.NewBank()
	if err := fundHolders(bank, cfg.Scenario, baseToken, quoteToken, cfg.BaseDecimals, cfg.QuoteDecimals); err != nil {
		return err
	}

	journal := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		journal = append(journal, store)
	}

	p, err := pool.New(pool.Config{
		Address:     poolAccount,
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		BaseWeight:  baseWeight,
		QuoteWeight: new(big.Int).Sub(fixed.One, baseWeight),
		Params:      params,
		Clock:       clock.Now,
	}, baseAsm, quoteAsm, bank, journal, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("in", cfg.Scenario),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("base_token", baseToken.Hex()),
		zap.String("quote_token", quoteToken.Hex()),
	)

	runner := scenario.NewRunner(p, feeds, clock, logger)
	stats, err := runner.Run(ctx, cfg.Scenario)
	if err != nil {
		return err
	}

	snap, err := p.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	if store != nil {
		if err := store.UpsertSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
	}

	logger.Info("simulate done",
		zap.Uint64("applied", stats.Applied),
		zap.Uint64("failed", stats.Failed),
		zap.String("base_reserve", snap.BaseReserve),
		zap.String("quote_reserve", snap.QuoteReserve),
		zap.String("lp_supply", snap.LPSupply),
	)
	return nil
}

type side struct {
	token    common.Address
	decimals uint8
	rate     string
	feedAddr string
	maxAge   time.Duration
}

// buildAssimilator wires one pool side. An empty rate means the token already
// trades at the numeraire and needs no oracle. When an RPC client and a
// Chainlink aggregator address are available the initial rate is read from
// chain; scenario set_rate steps mutate the resulting in-memory feed either way.
func buildAssimilator(
	ctx context.Context,
	chainClient *chain.Client,
	clock *scenario.Clock,
	feeds map[common.Address]*oracle.FixedFeed,
	s side,
) (assimilator.Assimilator, error) {
	if s.rate == "" && s.feedAddr == "" {
		return assimilator.New(assimilator.Binding{Decimals: s.decimals}, clock.Now), nil
	}

	answer := new(big.Int)
	if s.rate != "" {
		v, ok := answer.SetString(s.rate, 10)
		if !ok || v.Sign() <= 0 {
			return nil, fmt.Errorf("invalid oracle rate %q", s.rate)
		}
	}

	if s.feedAddr != "" {
		if chainClient == nil {
			return nil, fmt.Errorf("feed address %s needs an rpc url", s.feedAddr)
		}
		live := oracle.NewChainlinkFeed(chainClient, common.HexToAddress(s.feedAddr))
		q, err := live.LatestQuote(ctx)
		if err != nil {
			return nil, fmt.Errorf("read aggregator %s: %w", s.feedAddr, err)
		}
		answer = q.Answer
	}

	feed := oracle.NewFixedFeed(answer, clock.Now())
	feeds[s.token] = feed
	return assimilator.New(assimilator.Binding{
		Decimals: s.decimals,
		Feed:     feed,
		MaxAge:   s.maxAge,
	}, clock.Now), nil
}

// fundHolders scans the scenario once and credits every holder a balance large
// enough that the run is limited by pool semantics, not by the bank.
func fundHolders(bank *token.Bank, path string, baseToken, quoteToken common.Address, baseDec, quoteDec uint8) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	seen := make(map[common.Address]struct{})
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var step model.ScenarioStep
		if err := json.Unmarshal(line, &step); err != nil {
			continue // the runner reports malformed lines
		}
		if step.Holder == "" {
			continue
		}
		seen[common.HexToAddress(step.Holder)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	units := big.NewInt(1_000_000_000_000)
	baseGrant := new(big.Int).Mul(units, fixed.Scale(baseDec))
	quoteGrant := new(big.Int).Mul(units, fixed.Scale(quoteDec))
	for holder := range seen {
		bank.Mint(baseToken, holder, new(big.Int).Set(baseGrant))
		bank.Mint(quoteToken, holder, new(big.Int).Set(quoteGrant))
	}
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
