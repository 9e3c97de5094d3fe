package pool

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclepool/internal/assimilator"
	"oraclepool/internal/curve"
	"oraclepool/internal/fixed"
	"oraclepool/internal/oracle"
	"oraclepool/internal/token"
)

var (
	poolAddr   = common.HexToAddress("0x70")
	baseToken  = common.HexToAddress("0x01")
	quoteToken = common.HexToAddress("0x02")
	alice      = common.HexToAddress("0xa1")
	bob        = common.HexToAddress("0xb0")
)

const (
	baseDecimals  = 6
	quoteDecimals = 6
)

type fixture struct {
	pool *Pool
	bank *token.Bank
	feed *oracle.FixedFeed
	now  time.Time
}

// newFixture builds a 50/50 pool whose base token is oracle-priced at rate
// (8 decimals) and whose quote token is the numeraire itself.
func newFixture(t *testing.T, rate int64) *fixture {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	params, err := curve.NewParams(
		fixed.Frac(1, 2),
		fixed.Frac(35, 100),
		fixed.Frac(15, 100),
		fixed.Frac(4, 10000),
		fixed.Frac(3, 10),
	)
	require.NoError(t, err)

	feed := oracle.NewFixedFeed(big.NewInt(rate), now)
	baseAsm := assimilator.New(assimilator.Binding{
		Decimals: baseDecimals,
		Feed:     feed,
		MaxAge:   time.Hour,
	}, clock)
	quoteAsm := assimilator.New(assimilator.Binding{Decimals: quoteDecimals}, clock)

	bank := token.NewBank()
	p, err := New(Config{
		Address:     poolAddr,
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		BaseWeight:  fixed.Frac(1, 2),
		QuoteWeight: fixed.Frac(1, 2),
		Params:      params,
		Clock:       clock,
	}, baseAsm, quoteAsm, bank, nil, nil)
	require.NoError(t, err)

	// generous balances for both actors
	whale := new(big.Int).Mul(big.NewInt(1_000_000_000), fixed.Scale(baseDecimals))
	bank.Mint(baseToken, alice, whale)
	bank.Mint(quoteToken, alice, new(big.Int).Set(whale))
	bank.Mint(baseToken, bob, new(big.Int).Set(whale))
	bank.Mint(quoteToken, bob, new(big.Int).Set(whale))

	return &fixture{pool: p, bank: bank, feed: feed, now: now}
}

func (f *fixture) bootstrap(t *testing.T, units uint64) {
	t.Helper()
	_, err := f.pool.Deposit(context.Background(), alice, fixed.FromUint(units), time.Time{})
	require.NoError(t, err)
}

func relDiff(a, b *big.Int) *big.Int {
	d := new(big.Int).Sub(a, b)
	d.Abs(d)
	r, _ := fixed.Div(d, b)
	return r
}

func TestBootstrapDepositSplitsByWeight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2_0000_0000) // rate 2.0

	require.Equal(t, StateInitialized, f.pool.State())

	amount := fixed.FromUint(1_000_000)
	res, err := f.pool.Deposit(ctx, alice, amount, time.Time{})
	require.NoError(t, err)

	require.Equal(t, StateActive, f.pool.State())
	assert.Zero(t, res.LPAmount.Cmp(amount))
	assert.Zero(t, f.pool.BalanceOf(alice).Cmp(amount))
	assert.Zero(t, f.pool.TotalSupply().Cmp(amount))

	// base raw pulled: 500,000 * 1e8 / rate, scaled to base decimals
	wantBaseRaw := new(big.Int).Mul(big.NewInt(250_000), fixed.Scale(baseDecimals))
	wantQuoteRaw := new(big.Int).Mul(big.NewInt(500_000), fixed.Scale(quoteDecimals))

	tol := fixed.Frac(1, 2000)
	assert.True(t, relDiff(res.BaseRaw, wantBaseRaw).Cmp(tol) <= 0,
		"base raw %s want %s", res.BaseRaw, wantBaseRaw)
	assert.True(t, relDiff(res.QuoteRaw, wantQuoteRaw).Cmp(tol) <= 0,
		"quote raw %s want %s", res.QuoteRaw, wantQuoteRaw)

	// raw amounts left the depositor and landed with the pool
	assert.Zero(t, f.bank.BalanceOf(baseToken, poolAddr).Cmp(res.BaseRaw))
	assert.Zero(t, f.bank.BalanceOf(quoteToken, poolAddr).Cmp(res.QuoteRaw))
}

func TestViewDepositMatchesDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_5000_0000)
	f.bootstrap(t, 2_000_000)

	amount := fixed.FromUint(12_345)
	view, err := f.pool.ViewDeposit(ctx, amount)
	require.NoError(t, err)

	real, err := f.pool.Deposit(ctx, bob, amount, time.Time{})
	require.NoError(t, err)

	assert.Zero(t, view.LPAmount.Cmp(real.LPAmount))
	assert.Zero(t, view.BaseNumeraire.Cmp(real.BaseNumeraire))
	assert.Zero(t, view.QuoteNumeraire.Cmp(real.QuoteNumeraire))
	assert.Zero(t, view.BaseRaw.Cmp(real.BaseRaw))
	assert.Zero(t, view.QuoteRaw.Cmp(real.QuoteRaw))
}

func TestViewWithdrawMatchesWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_5000_0000)
	f.bootstrap(t, 2_000_000)

	lp := fixed.FromUint(500_000)
	view, err := f.pool.ViewWithdraw(ctx, lp)
	require.NoError(t, err)

	real, err := f.pool.Withdraw(ctx, alice, lp, time.Time{})
	require.NoError(t, err)

	assert.Zero(t, view.BaseNumeraire.Cmp(real.BaseNumeraire))
	assert.Zero(t, view.QuoteNumeraire.Cmp(real.QuoteNumeraire))
	assert.Zero(t, view.BaseRaw.Cmp(real.BaseRaw))
	assert.Zero(t, view.QuoteRaw.Cmp(real.QuoteRaw))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2_0000_0000)
	f.bootstrap(t, 2_000_000)

	amount := fixed.FromUint(100_000)
	dep, err := f.pool.Deposit(ctx, bob, amount, time.Time{})
	require.NoError(t, err)

	wd, err := f.pool.Withdraw(ctx, bob, dep.LPAmount, time.Time{})
	require.NoError(t, err)

	tol := fixed.Frac(5, 10000) // 0.05%
	assert.True(t, relDiff(wd.BaseRaw, dep.BaseRaw).Cmp(tol) <= 0,
		"base %s vs %s", wd.BaseRaw, dep.BaseRaw)
	assert.True(t, relDiff(wd.QuoteRaw, dep.QuoteRaw).Cmp(tol) <= 0,
		"quote %s vs %s", wd.QuoteRaw, dep.QuoteRaw)
	assert.Zero(t, f.pool.BalanceOf(bob).Sign())
}

func TestOriginSwapThenTargetSwapRecoversInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000) // rate 1.0
	f.bootstrap(t, 2_000_000)

	k := new(big.Int).Mul(big.NewInt(1000), fixed.Scale(baseDecimals))

	first, err := f.pool.OriginSwap(ctx, bob, baseToken, quoteToken, k, nil, time.Time{})
	require.NoError(t, err)

	second, err := f.pool.TargetSwap(ctx, bob, baseToken, quoteToken, nil, first.AmountOutRaw, time.Time{})
	require.NoError(t, err)

	tol := fixed.Frac(1, 1500)
	assert.True(t, relDiff(second.AmountInRaw, k).Cmp(tol) <= 0,
		"recovered input %s vs %s", second.AmountInRaw, k)
}

func TestOriginSwapSlippageBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	amountIn := new(big.Int).Mul(big.NewInt(1000), fixed.Scale(baseDecimals))
	minOut := new(big.Int).Mul(big.NewInt(1001), fixed.Scale(quoteDecimals))

	_, err := f.pool.OriginSwap(ctx, bob, baseToken, quoteToken, amountIn, minOut, time.Time{})
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	base, quote := f.pool.Reserves()
	assert.Zero(t, base.Cmp(fixed.FromUint(1_000_000)))
	assert.Zero(t, quote.Cmp(fixed.FromUint(1_000_000)))
}

func TestTargetSwapSlippageBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	amountOut := new(big.Int).Mul(big.NewInt(1000), fixed.Scale(quoteDecimals))
	maxIn := new(big.Int).Mul(big.NewInt(999), fixed.Scale(baseDecimals))

	_, err := f.pool.TargetSwap(ctx, bob, baseToken, quoteToken, maxIn, amountOut, time.Time{})
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestDeadlineExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	past := f.now.Add(-time.Second)

	_, err := f.pool.Deposit(ctx, bob, fixed.FromUint(10), past)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.pool.Withdraw(ctx, alice, fixed.FromUint(10), past)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.pool.OriginSwap(ctx, bob, baseToken, quoteToken, big.NewInt(1), nil, past)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.pool.TargetSwap(ctx, bob, baseToken, quoteToken, nil, big.NewInt(1), past)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestZeroAmountRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	_, err := f.pool.Deposit(ctx, bob, new(big.Int), time.Time{})
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = f.pool.ViewDeposit(ctx, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = f.pool.OriginSwap(ctx, bob, baseToken, quoteToken, new(big.Int), nil, time.Time{})
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	_, err := f.pool.Withdraw(ctx, bob, fixed.FromUint(1), time.Time{})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestUnknownTokenPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	other := common.HexToAddress("0xff")
	_, err := f.pool.OriginSwap(ctx, bob, other, quoteToken, big.NewInt(1), nil, time.Time{})
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = f.pool.OriginSwap(ctx, bob, baseToken, baseToken, big.NewInt(1), nil, time.Time{})
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestSwapOnEmptyPoolFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)

	_, err := f.pool.OriginSwap(ctx, bob, baseToken, quoteToken, big.NewInt(100), nil, time.Time{})
	assert.ErrorIs(t, err, curve.ErrZeroLiquidity)
}

func TestOracleIndependenceOfDepositSplit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	amount := fixed.FromUint(10_000)
	before, err := f.pool.ViewDeposit(ctx, amount)
	require.NoError(t, err)

	// only the oracle rate moves; reserves are untouched
	f.feed.Set(big.NewInt(1_2345_0000), f.now)

	after, err := f.pool.ViewDeposit(ctx, amount)
	require.NoError(t, err)

	assert.Zero(t, before.LPAmount.Cmp(after.LPAmount))
	assert.Zero(t, before.BaseNumeraire.Cmp(after.BaseNumeraire))
	assert.Zero(t, before.QuoteNumeraire.Cmp(after.QuoteNumeraire))
}

func TestFailedTransferRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	// pauper holds no tokens, so the pull must fail after effects applied
	pauper := common.HexToAddress("0xdead")
	_, err := f.pool.OriginSwap(ctx, pauper, baseToken, quoteToken,
		new(big.Int).Mul(big.NewInt(100), fixed.Scale(baseDecimals)), nil, time.Time{})
	require.Error(t, err)

	base, quote := f.pool.Reserves()
	assert.Zero(t, base.Cmp(fixed.FromUint(1_000_000)))
	assert.Zero(t, quote.Cmp(fixed.FromUint(1_000_000)))

	_, err = f.pool.Deposit(ctx, pauper, fixed.FromUint(100), time.Time{})
	require.Error(t, err)
	assert.Zero(t, f.pool.BalanceOf(pauper).Sign())
	assert.Zero(t, f.pool.TotalSupply().Cmp(fixed.FromUint(2_000_000)))
}

func TestStaleOracleAbortsOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1_0000_0000)
	f.bootstrap(t, 2_000_000)

	f.feed.Set(big.NewInt(1_0000_0000), f.now.Add(-2*time.Hour))

	_, err := f.pool.OriginSwap(ctx, bob, baseToken, quoteToken,
		new(big.Int).Mul(big.NewInt(10), fixed.Scale(baseDecimals)), nil, time.Time{})
	assert.ErrorIs(t, err, oracle.ErrStale)

	f.feed.Set(big.NewInt(0), f.now)
	_, err = f.pool.ViewDeposit(ctx, fixed.FromUint(10))
	assert.ErrorIs(t, err, oracle.ErrInvalid)
}
