// Package pool holds mutable pool state and sequences assimilator calls,
// curve engine calls, and state mutation for each public operation.
//
// Every operation is atomic: checks run first, the quote is computed from a
// pure snapshot, all internal reserve and LP-supply mutation commits before
// any external token transfer is invoked, and a failed transfer rolls the
// internal state back so no partial update is ever observable.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"oraclepool/internal/assimilator"
	"oraclepool/internal/curve"
	"oraclepool/internal/fixed"
	"oraclepool/internal/model"
	"oraclepool/internal/storage"
	"oraclepool/internal/token"
)

var (
	// ErrExpired is returned when an operation's deadline has passed.
	ErrExpired = errors.New("pool: deadline expired")
	// ErrZeroAmount is returned for zero-valued requests.
	ErrZeroAmount = errors.New("pool: zero amount")
	// ErrSlippageExceeded is returned when a swap outcome falls outside the
	// caller-specified bound.
	ErrSlippageExceeded = errors.New("pool: slippage exceeded")
	// ErrInsufficientBalance is returned when an LP burn exceeds the
	// holder's balance.
	ErrInsufficientBalance = errors.New("pool: insufficient lp balance")
	// ErrUnknownToken is returned when a swap names a token pair the pool
	// does not hold.
	ErrUnknownToken = errors.New("pool: unknown token pair")
	// ErrInvalidConfig is returned when pool configuration is inconsistent.
	ErrInvalidConfig = errors.New("pool: invalid configuration")
)

// State is the pool lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateActive
)

// Config describes a pool at creation time. All fields are immutable once
// the pool is constructed.
type Config struct {
	// Address is the pool's own account with the token collaborator.
	Address    common.Address
	BaseToken  common.Address
	QuoteToken common.Address
	// BaseWeight + QuoteWeight must equal one (18-decimal fractions).
	BaseWeight  *big.Int
	QuoteWeight *big.Int
	Params      curve.Params
	// Clock overrides time.Now, used by the simulator and tests.
	Clock func() time.Time
}

// Pool is the orchestrator for one two-asset pool.
type Pool struct {
	cfg        Config
	baseAsm    assimilator.Assimilator
	quoteAsm   assimilator.Assimilator
	transferor token.Transferor
	journal    storage.Storage
	logger     *zap.Logger
	now        func() time.Time

	mu           sync.Mutex
	state        State
	baseReserve  *big.Int
	quoteReserve *big.Int
	ledger       *Ledger
}

// New creates an initialized pool with zero reserves and supply. journal may
// be nil to disable the operation journal.
func New(
	cfg Config,
	baseAsm, quoteAsm assimilator.Assimilator,
	transferor token.Transferor,
	journal storage.Storage,
	logger *zap.Logger,
) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseAsm == nil || quoteAsm == nil || transferor == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.BaseToken == cfg.QuoteToken {
		return nil, ErrInvalidConfig
	}
	if cfg.BaseWeight == nil || cfg.QuoteWeight == nil {
		return nil, ErrInvalidConfig
	}
	sum := new(big.Int).Add(cfg.BaseWeight, cfg.QuoteWeight)
	if sum.Cmp(fixed.One) != 0 {
		return nil, ErrInvalidConfig
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Pool{
		cfg:          cfg,
		baseAsm:      baseAsm,
		quoteAsm:     quoteAsm,
		transferor:   transferor,
		journal:      journal,
		logger:       logger,
		now:          cfg.Clock,
		state:        StateInitialized,
		baseReserve:  new(big.Int),
		quoteReserve: new(big.Int),
		ledger:       NewLedger(),
	}, nil
}

// DepositResult reports the realized amounts of a deposit or deposit view.
type DepositResult struct {
	LPAmount       *big.Int
	BaseNumeraire  *big.Int
	QuoteNumeraire *big.Int
	BaseRaw        *big.Int
	QuoteRaw       *big.Int
}

// WithdrawResult reports the realized amounts of a withdraw or withdraw view.
type WithdrawResult struct {
	BaseNumeraire  *big.Int
	QuoteNumeraire *big.Int
	BaseRaw        *big.Int
	QuoteRaw       *big.Int
}

// SwapResult reports the realized amounts of a swap.
type SwapResult struct {
	AmountInRaw        *big.Int
	AmountOutRaw       *big.Int
	AmountInNumeraire  *big.Int
	AmountOutNumeraire *big.Int
	FeeNumeraire       *big.Int
}

// snapshot returns a defensive copy of the reserve state for the engine.
func (p *Pool) snapshot() curve.Snapshot {
	return curve.Snapshot{
		BaseBalance:  fixed.Clone(p.baseReserve),
		QuoteBalance: fixed.Clone(p.quoteReserve),
		BaseWeight:   p.cfg.BaseWeight,
		QuoteWeight:  p.cfg.QuoteWeight,
	}
}

func (p *Pool) expired(deadline time.Time) bool {
	return !deadline.IsZero() && p.now().After(deadline)
}

// quoteDeposit is the single arithmetic path shared by ViewDeposit and
// Deposit, so a view followed by the mutating call reports identical
// amounts.
func (p *Pool) quoteDeposit(ctx context.Context, amount *big.Int) (curve.DepositQuote, *DepositResult, error) {
	dq, err := curve.QuoteDeposit(p.snapshot(), p.ledger.TotalSupply(), amount)
	if err != nil {
		return curve.DepositQuote{}, nil, err
	}

	baseRaw, err := p.baseAsm.Denormalize(ctx, dq.BaseAmount)
	if err != nil {
		return curve.DepositQuote{}, nil, fmt.Errorf("denormalize base: %w", err)
	}
	quoteRaw, err := p.quoteAsm.Denormalize(ctx, dq.QuoteAmount)
	if err != nil {
		return curve.DepositQuote{}, nil, fmt.Errorf("denormalize quote: %w", err)
	}

	return dq, &DepositResult{
		LPAmount:       dq.LPAmount,
		BaseNumeraire:  dq.BaseAmount,
		QuoteNumeraire: dq.QuoteAmount,
		BaseRaw:        baseRaw,
		QuoteRaw:       quoteRaw,
	}, nil
}

// quoteWithdraw is the shared arithmetic path for ViewWithdraw and Withdraw.
func (p *Pool) quoteWithdraw(ctx context.Context, lpAmount *big.Int) (*WithdrawResult, error) {
	wq, err := curve.QuoteWithdraw(p.snapshot(), p.ledger.TotalSupply(), lpAmount)
	if err != nil {
		return nil, err
	}

	baseRaw, err := p.baseAsm.Denormalize(ctx, wq.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("denormalize base: %w", err)
	}
	quoteRaw, err := p.quoteAsm.Denormalize(ctx, wq.QuoteAmount)
	if err != nil {
		return nil, fmt.Errorf("denormalize quote: %w", err)
	}

	return &WithdrawResult{
		BaseNumeraire:  wq.BaseAmount,
		QuoteNumeraire: wq.QuoteAmount,
		BaseRaw:        baseRaw,
		QuoteRaw:       quoteRaw,
	}, nil
}

// ViewDeposit simulates a deposit of numeraire units against the current
// snapshot without committing any delta.
func (p *Pool) ViewDeposit(ctx context.Context, amount *big.Int) (*DepositResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	_, res, err := p.quoteDeposit(ctx, amount)
	return res, err
}

// ViewWithdraw simulates a withdraw of lpAmount shares against the current
// snapshot without committing any delta.
func (p *Pool) ViewWithdraw(ctx context.Context, lpAmount *big.Int) (*WithdrawResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if lpAmount.Cmp(p.ledger.TotalSupply()) > 0 {
		return nil, ErrInsufficientBalance
	}
	return p.quoteWithdraw(ctx, lpAmount)
}

// Deposit adds amount numeraire units of proportional liquidity from holder,
// pulling the denormalized raw token amounts and minting LP shares.
func (p *Pool) Deposit(ctx context.Context, holder common.Address, amount *big.Int, deadline time.Time) (*DepositResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expired(deadline) {
		return nil, ErrExpired
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	dq, res, err := p.quoteDeposit(ctx, amount)
	if err != nil {
		return nil, err
	}

	// effects
	prevState := p.state
	p.baseReserve.Add(p.baseReserve, dq.BaseAmount)
	p.quoteReserve.Add(p.quoteReserve, dq.QuoteAmount)
	p.ledger.Mint(holder, dq.LPAmount)
	p.state = StateActive

	rollback := func() {
		p.baseReserve.Sub(p.baseReserve, dq.BaseAmount)
		p.quoteReserve.Sub(p.quoteReserve, dq.QuoteAmount)
		_ = p.ledger.Burn(holder, dq.LPAmount)
		p.state = prevState
	}

	// interactions
	if err := p.transferor.Transfer(ctx, p.cfg.BaseToken, holder, p.cfg.Address, res.BaseRaw); err != nil {
		rollback()
		return nil, fmt.Errorf("pull base: %w", err)
	}
	if err := p.transferor.Transfer(ctx, p.cfg.QuoteToken, holder, p.cfg.Address, res.QuoteRaw); err != nil {
		if rerr := p.transferor.Transfer(ctx, p.cfg.BaseToken, p.cfg.Address, holder, res.BaseRaw); rerr != nil {
			p.logger.Error("deposit unwind failed", zap.Error(rerr))
		}
		rollback()
		return nil, fmt.Errorf("pull quote: %w", err)
	}

	p.logger.Info("deposit",
		zap.String("holder", holder.Hex()),
		zap.String("amount", amount.String()),
		zap.String("lp_minted", dq.LPAmount.String()),
	)
	p.appendJournal(model.OperationRecord{
		Op:       "deposit",
		Holder:   holder.Hex(),
		AmountIn: amount.String(),
		BaseRaw:  res.BaseRaw.String(),
		QuoteRaw: res.QuoteRaw.String(),
		LPDelta:  dq.LPAmount.String(),
	})

	return res, nil
}

// Withdraw burns lpAmount shares from holder and pushes the proportional
// denormalized raw amounts back.
func (p *Pool) Withdraw(ctx context.Context, holder common.Address, lpAmount *big.Int, deadline time.Time) (*WithdrawResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expired(deadline) {
		return nil, ErrExpired
	}
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if p.ledger.BalanceOf(holder).Cmp(lpAmount) < 0 {
		return nil, ErrInsufficientBalance
	}

	res, err := p.quoteWithdraw(ctx, lpAmount)
	if err != nil {
		return nil, err
	}

	// effects
	if err := p.ledger.Burn(holder, lpAmount); err != nil {
		return nil, err
	}
	p.baseReserve.Sub(p.baseReserve, res.BaseNumeraire)
	p.quoteReserve.Sub(p.quoteReserve, res.QuoteNumeraire)

	rollback := func() {
		p.baseReserve.Add(p.baseReserve, res.BaseNumeraire)
		p.quoteReserve.Add(p.quoteReserve, res.QuoteNumeraire)
		p.ledger.Mint(holder, lpAmount)
	}

	// interactions
	if err := p.transferor.Transfer(ctx, p.cfg.BaseToken, p.cfg.Address, holder, res.BaseRaw); err != nil {
		rollback()
		return nil, fmt.Errorf("push base: %w", err)
	}
	if err := p.transferor.Transfer(ctx, p.cfg.QuoteToken, p.cfg.Address, holder, res.QuoteRaw); err != nil {
		if rerr := p.transferor.Transfer(ctx, p.cfg.BaseToken, holder, p.cfg.Address, res.BaseRaw); rerr != nil {
			p.logger.Error("withdraw unwind failed", zap.Error(rerr))
		}
		rollback()
		return nil, fmt.Errorf("push quote: %w", err)
	}

	p.logger.Info("withdraw",
		zap.String("holder", holder.Hex()),
		zap.String("lp_burned", lpAmount.String()),
	)
	p.appendJournal(model.OperationRecord{
		Op:       "withdraw",
		Holder:   holder.Hex(),
		BaseRaw:  res.BaseRaw.String(),
		QuoteRaw: res.QuoteRaw.String(),
		LPDelta:  new(big.Int).Neg(lpAmount).String(),
	})

	return res, nil
}

// direction resolves a tokenIn/tokenOut pair against the pool's assets.
func (p *Pool) direction(tokenIn, tokenOut common.Address) (inIsBase bool, err error) {
	switch {
	case tokenIn == p.cfg.BaseToken && tokenOut == p.cfg.QuoteToken:
		return true, nil
	case tokenIn == p.cfg.QuoteToken && tokenOut == p.cfg.BaseToken:
		return false, nil
	default:
		return false, ErrUnknownToken
	}
}

func (p *Pool) assimilators(inIsBase bool) (in, out assimilator.Assimilator) {
	if inIsBase {
		return p.baseAsm, p.quoteAsm
	}
	return p.quoteAsm, p.baseAsm
}

// OriginSwap trades a fixed raw input amount of tokenIn for tokenOut,
// failing with ErrSlippageExceeded when the realized output falls below
// minAmountOut (raw units).
func (p *Pool) OriginSwap(
	ctx context.Context,
	trader common.Address,
	tokenIn, tokenOut common.Address,
	amountIn, minAmountOut *big.Int,
	deadline time.Time,
) (*SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expired(deadline) {
		return nil, ErrExpired
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	inIsBase, err := p.direction(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	inAsm, outAsm := p.assimilators(inIsBase)

	inNumeraire, err := inAsm.Normalize(ctx, amountIn)
	if err != nil {
		return nil, fmt.Errorf("normalize input: %w", err)
	}

	q, err := curve.QuoteOriginSwap(p.snapshot(), p.cfg.Params, inIsBase, inNumeraire)
	if err != nil {
		return nil, err
	}

	outRaw, err := outAsm.Denormalize(ctx, q.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("denormalize output: %w", err)
	}
	if minAmountOut != nil && outRaw.Cmp(minAmountOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	p.commitSwap(inIsBase, q)
	rollback := func() { p.uncommitSwap(inIsBase, q) }

	// interactions
	if err := p.transferor.Transfer(ctx, tokenIn, trader, p.cfg.Address, amountIn); err != nil {
		rollback()
		return nil, fmt.Errorf("pull input: %w", err)
	}
	if err := p.transferor.Transfer(ctx, tokenOut, p.cfg.Address, trader, outRaw); err != nil {
		if rerr := p.transferor.Transfer(ctx, tokenIn, p.cfg.Address, trader, amountIn); rerr != nil {
			p.logger.Error("swap unwind failed", zap.Error(rerr))
		}
		rollback()
		return nil, fmt.Errorf("push output: %w", err)
	}

	res := &SwapResult{
		AmountInRaw:        fixed.Clone(amountIn),
		AmountOutRaw:       outRaw,
		AmountInNumeraire:  q.AmountIn,
		AmountOutNumeraire: q.AmountOut,
		FeeNumeraire:       q.Fee,
	}
	p.logSwap("origin_swap", trader, res)
	return res, nil
}

// TargetSwap trades tokenIn for a fixed raw output amount of tokenOut,
// failing with ErrSlippageExceeded when the required input exceeds
// maxAmountIn (raw units).
func (p *Pool) TargetSwap(
	ctx context.Context,
	trader common.Address,
	tokenIn, tokenOut common.Address,
	maxAmountIn, amountOut *big.Int,
	deadline time.Time,
) (*SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expired(deadline) {
		return nil, ErrExpired
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	inIsBase, err := p.direction(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	inAsm, outAsm := p.assimilators(inIsBase)

	outNumeraire, err := outAsm.Normalize(ctx, amountOut)
	if err != nil {
		return nil, fmt.Errorf("normalize output: %w", err)
	}

	q, err := curve.QuoteTargetSwap(p.snapshot(), p.cfg.Params, inIsBase, outNumeraire)
	if err != nil {
		return nil, err
	}

	inRaw, err := inAsm.Denormalize(ctx, q.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("denormalize input: %w", err)
	}
	if maxAmountIn != nil && inRaw.Cmp(maxAmountIn) > 0 {
		return nil, ErrSlippageExceeded
	}

	p.commitSwap(inIsBase, q)
	rollback := func() { p.uncommitSwap(inIsBase, q) }

	// interactions
	if err := p.transferor.Transfer(ctx, tokenIn, trader, p.cfg.Address, inRaw); err != nil {
		rollback()
		return nil, fmt.Errorf("pull input: %w", err)
	}
	if err := p.transferor.Transfer(ctx, tokenOut, p.cfg.Address, trader, amountOut); err != nil {
		if rerr := p.transferor.Transfer(ctx, tokenIn, p.cfg.Address, trader, inRaw); rerr != nil {
			p.logger.Error("swap unwind failed", zap.Error(rerr))
		}
		rollback()
		return nil, fmt.Errorf("push output: %w", err)
	}

	res := &SwapResult{
		AmountInRaw:        inRaw,
		AmountOutRaw:       fixed.Clone(amountOut),
		AmountInNumeraire:  q.AmountIn,
		AmountOutNumeraire: q.AmountOut,
		FeeNumeraire:       q.Fee,
	}
	p.logSwap("target_swap", trader, res)
	return res, nil
}

// commitSwap applies the gross input and net output of a quote to the
// reserves; the epsilon fee stays in the pool.
func (p *Pool) commitSwap(inIsBase bool, q curve.Quote) {
	if inIsBase {
		p.baseReserve.Add(p.baseReserve, q.AmountIn)
		p.quoteReserve.Sub(p.quoteReserve, q.AmountOut)
	} else {
		p.quoteReserve.Add(p.quoteReserve, q.AmountIn)
		p.baseReserve.Sub(p.baseReserve, q.AmountOut)
	}
}

func (p *Pool) uncommitSwap(inIsBase bool, q curve.Quote) {
	if inIsBase {
		p.baseReserve.Sub(p.baseReserve, q.AmountIn)
		p.quoteReserve.Add(p.quoteReserve, q.AmountOut)
	} else {
		p.quoteReserve.Sub(p.quoteReserve, q.AmountIn)
		p.baseReserve.Add(p.baseReserve, q.AmountOut)
	}
}

func (p *Pool) logSwap(op string, trader common.Address, res *SwapResult) {
	p.logger.Info(op,
		zap.String("trader", trader.Hex()),
		zap.String("amount_in", res.AmountInNumeraire.String()),
		zap.String("amount_out", res.AmountOutNumeraire.String()),
		zap.String("fee", res.FeeNumeraire.String()),
	)
	p.appendJournal(model.OperationRecord{
		Op:        op,
		Holder:    trader.Hex(),
		AmountIn:  res.AmountInNumeraire.String(),
		AmountOut: res.AmountOutNumeraire.String(),
		Fee:       res.FeeNumeraire.String(),
	})
}

// appendJournal records a committed operation. Journal failures are logged
// but never unwind the operation itself.
func (p *Pool) appendJournal(rec model.OperationRecord) {
	if p.journal == nil {
		return
	}
	rec.Pool = p.cfg.Address.Hex()
	rec.BaseReserve = p.baseReserve.String()
	rec.QuoteReserve = p.quoteReserve.String()
	rec.LPSupply = p.ledger.TotalSupply().String()
	rec.Timestamp = p.now().Unix()

	if err := p.journal.AppendOperations([]model.OperationRecord{rec}); err != nil {
		p.logger.Warn("journal append failed", zap.Error(err))
	}
}

// BalanceOf returns holder's LP balance.
func (p *Pool) BalanceOf(holder common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.BalanceOf(holder)
}

// TotalSupply returns the outstanding LP supply.
func (p *Pool) TotalSupply() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.TotalSupply()
}

// Reserves returns copies of the normalized base and quote reserves.
func (p *Pool) Reserves() (base, quote *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fixed.Clone(p.baseReserve), fixed.Clone(p.quoteReserve)
}

// State returns the pool lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot renders the current state, including assimilator rates, for
// persistence.
func (p *Pool) Snapshot(ctx context.Context) (model.PoolSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	baseRate, err := p.baseAsm.Rate(ctx)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("base rate: %w", err)
	}
	quoteRate, err := p.quoteAsm.Rate(ctx)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("quote rate: %w", err)
	}

	return model.PoolSnapshot{
		Pool:         p.cfg.Address.Hex(),
		BaseReserve:  p.baseReserve.String(),
		QuoteReserve: p.quoteReserve.String(),
		LPSupply:     p.ledger.TotalSupply().String(),
		BaseRate:     baseRate.String(),
		QuoteRate:    quoteRate.String(),
		Timestamp:    p.now().Unix(),
	}, nil
}
