package curve

import (
	"math/big"

	"oraclepool/internal/fixed"
)

// DepositQuote is the result of a deposit split, in numeraire units.
type DepositQuote struct {
	LPAmount    *big.Int
	BaseAmount  *big.Int
	QuoteAmount *big.Int
}

// WithdrawQuote is the result of a withdraw split, in numeraire units.
type WithdrawQuote struct {
	BaseAmount  *big.Int
	QuoteAmount *big.Int
}

// QuoteDeposit splits an incoming numeraire amount between base and quote in
// proportion to the current reserve ratio, so a depleted side receives less
// of the new deposit. LP minted grows the supply by the same factor the
// deposit grows the pool's liquidity, rounded down.
//
// Bootstrap: with zero supply the split follows the target weights instead
// and LP minted equals the numeraire amount.
func QuoteDeposit(s Snapshot, totalSupply, amount *big.Int) (DepositQuote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return DepositQuote{}, ErrZeroAmount
	}
	if totalSupply == nil || totalSupply.Sign() == 0 {
		base := fixed.Mul(amount, s.BaseWeight)
		return DepositQuote{
			LPAmount:    fixed.Clone(amount),
			BaseAmount:  base,
			QuoteAmount: new(big.Int).Sub(amount, base),
		}, nil
	}

	gLiq := s.total()
	if gLiq.Sign() == 0 {
		return DepositQuote{}, ErrZeroLiquidity
	}

	base, err := fixed.MulDiv(amount, s.BaseBalance, gLiq)
	if err != nil {
		return DepositQuote{}, err
	}
	lp, err := fixed.MulDiv(totalSupply, amount, gLiq)
	if err != nil {
		return DepositQuote{}, err
	}
	if lp.Sign() == 0 {
		return DepositQuote{}, ErrZeroAmount
	}

	return DepositQuote{
		LPAmount:    lp,
		BaseAmount:  base,
		QuoteAmount: new(big.Int).Sub(amount, base),
	}, nil
}

// QuoteWithdraw returns each reserve scaled by lpAmount/totalSupply, rounded
// down. The split depends only on the internal reserve ratio, never on the
// oracle rate.
func QuoteWithdraw(s Snapshot, totalSupply, lpAmount *big.Int) (WithdrawQuote, error) {
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return WithdrawQuote{}, ErrZeroAmount
	}
	if totalSupply == nil || totalSupply.Sign() == 0 {
		return WithdrawQuote{}, ErrZeroLiquidity
	}
	if lpAmount.Cmp(totalSupply) > 0 {
		return WithdrawQuote{}, ErrSupplyExceeded
	}

	base, err := fixed.MulDiv(s.BaseBalance, lpAmount, totalSupply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	quote, err := fixed.MulDiv(s.QuoteBalance, lpAmount, totalSupply)
	if err != nil {
		return WithdrawQuote{}, err
	}

	return WithdrawQuote{BaseAmount: base, QuoteAmount: quote}, nil
}
