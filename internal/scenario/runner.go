// Package scenario replays JSONL operation scenarios against a pool,
// exercising the full deposit/withdraw/swap surface at scale.
package scenario

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oraclepool/internal/model"
	"oraclepool/internal/oracle"
	"oraclepool/internal/pool"
)

const (
	opDeposit    = "deposit"
	opWithdraw   = "withdraw"
	opOriginSwap = "origin_swap"
	opTargetSwap = "target_swap"
	opSetRate    = "set_rate"
	opAdvance    = "advance"
)

// Clock is the simulated time source shared by the pool and the runner.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Runner applies scenario steps to a pool, one per JSONL line.
type Runner struct {
	pool   *pool.Pool
	feeds  map[common.Address]*oracle.FixedFeed
	clock  *Clock
	logger *zap.Logger
}

func NewRunner(p *pool.Pool, feeds map[common.Address]*oracle.FixedFeed, clock *Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pool: p, feeds: feeds, clock: clock, logger: logger}
}

// Stats summarizes a scenario run.
type Stats struct {
	Applied uint64
	Failed  uint64
}

// Run executes the scenario file. A failed step is logged and counted but
// does not stop the run; malformed lines abort.
func (r *Runner) Run(ctx context.Context, inputPath string) (Stats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	var stats Stats
	lineNo := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var step model.ScenarioStep
		if err := json.Unmarshal(line, &step); err != nil {
			return stats, fmt.Errorf("line %d: decode step: %w", lineNo, err)
		}

		if err := r.apply(ctx, step); err != nil {
			stats.Failed++
			r.logger.Warn("step failed",
				zap.Int("line", lineNo),
				zap.String("op", step.Op),
				zap.Error(err),
			)
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read scenario: %w", err)
	}

	r.logger.Info("scenario done",
		zap.Uint64("applied", stats.Applied),
		zap.Uint64("failed", stats.Failed),
	)
	return stats, nil
}

func (r *Runner) apply(ctx context.Context, step model.ScenarioStep) error {
	switch step.Op {
	case opDeposit:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.pool.Deposit(ctx, common.HexToAddress(step.Holder), amount, deadline(step))
		return err

	case opWithdraw:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.pool.Withdraw(ctx, common.HexToAddress(step.Holder), amount, deadline(step))
		return err

	case opOriginSwap:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		limit, err := parseOptionalAmount(step.Limit)
		if err != nil {
			return err
		}
		_, err = r.pool.OriginSwap(ctx, common.HexToAddress(step.Holder),
			common.HexToAddress(step.TokenIn), common.HexToAddress(step.TokenOut),
			amount, limit, deadline(step))
		return err

	case opTargetSwap:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		limit, err := parseOptionalAmount(step.Limit)
		if err != nil {
			return err
		}
		_, err = r.pool.TargetSwap(ctx, common.HexToAddress(step.Holder),
			common.HexToAddress(step.TokenIn), common.HexToAddress(step.TokenOut),
			limit, amount, deadline(step))
		return err

	case opSetRate:
		feed, ok := r.feeds[common.HexToAddress(step.Token)]
		if !ok {
			return fmt.Errorf("no feed for token %s", step.Token)
		}
		rate, err := parseAmount(step.Rate)
		if err != nil {
			return err
		}
		feed.Set(rate, r.clock.Now())
		return nil

	case opAdvance:
		if step.Seconds <= 0 {
			return fmt.Errorf("advance needs positive seconds")
		}
		r.clock.Advance(time.Duration(step.Seconds) * time.Second)
		return nil

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func deadline(step model.ScenarioStep) time.Time {
	if step.Deadline == 0 {
		return time.Time{}
	}
	return time.Unix(step.Deadline, 0)
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseOptionalAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	return parseAmount(s)
}
