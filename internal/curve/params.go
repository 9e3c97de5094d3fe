// Package curve implements the invariant curve engine: pure, stateless
// quote computations over a reserve/weight/parameter snapshot.
//
// The curve tracks the oracle peg 1:1 while both reserves sit inside the
// beta band around their ideal (weight-proportional) balances, ramps a
// quadratic penalty between the beta and alpha bands, and refuses trades
// that would push a reserve beyond the alpha band. Epsilon is the flat fee
// and lambda damps the credit applied when a trade improves balance.
//
// All arithmetic is integer fixed-point over big.Int, so identical inputs
// produce identical outputs on every re-execution.
package curve

import (
	"errors"
	"math/big"

	"oraclepool/internal/fixed"
)

var (
	// ErrConvergence is returned when the solver exceeds its iteration
	// bound before reaching the fixed-point tolerance.
	ErrConvergence = errors.New("curve: solver did not converge")
	// ErrBoundsExceeded is returned when a trade would push a reserve
	// beyond the alpha divergence band.
	ErrBoundsExceeded = errors.New("curve: reserve bounds exceeded")
	// ErrZeroLiquidity is returned when an operation needs reserves or
	// supply that are zero.
	ErrZeroLiquidity = errors.New("curve: zero liquidity")
	// ErrZeroAmount is returned for zero-valued quote requests.
	ErrZeroAmount = errors.New("curve: zero amount")
	// ErrInvalidParams is returned when curve parameters are out of range.
	ErrInvalidParams = errors.New("curve: invalid parameters")
	// ErrSupplyExceeded is returned when a withdraw quote asks for more LP
	// than the outstanding supply.
	ErrSupplyExceeded = errors.New("curve: lp amount exceeds supply")
)

const (
	// maxIterations bounds the swap solver.
	maxIterations = 32
)

// tolerance is the solver convergence bound: 1e-13 of one numeraire unit.
var tolerance = big.NewInt(100_000)

// Params are the five curve shape parameters, 18-decimal fractions in [0,1].
// They are fixed at pool creation.
type Params struct {
	Alpha   *big.Int
	Beta    *big.Int
	Max     *big.Int
	Epsilon *big.Int
	Lambda  *big.Int

	// delta is the penalty slope max/(2*(alpha-beta)), derived once.
	delta *big.Int
}

// NewParams validates the shape parameters and derives the penalty slope.
func NewParams(alpha, beta, max, epsilon, lambda *big.Int) (Params, error) {
	for _, v := range []*big.Int{alpha, beta, max, epsilon, lambda} {
		if v == nil || v.Sign() < 0 || v.Cmp(fixed.One) > 0 {
			return Params{}, ErrInvalidParams
		}
	}
	if alpha.Cmp(beta) <= 0 {
		return Params{}, ErrInvalidParams
	}

	band := new(big.Int).Sub(alpha, beta)
	band.Mul(band, big.NewInt(2))
	delta, err := fixed.Div(max, band)
	if err != nil {
		return Params{}, ErrInvalidParams
	}

	return Params{
		Alpha:   fixed.Clone(alpha),
		Beta:    fixed.Clone(beta),
		Max:     fixed.Clone(max),
		Epsilon: fixed.Clone(epsilon),
		Lambda:  fixed.Clone(lambda),
		delta:   delta,
	}, nil
}

// Snapshot is an immutable view of pool reserves and weights in numeraire
// units. The engine never mutates a snapshot.
type Snapshot struct {
	BaseBalance  *big.Int
	QuoteBalance *big.Int
	BaseWeight   *big.Int
	QuoteWeight  *big.Int
}

// total returns the summed numeraire liquidity of the snapshot.
func (s Snapshot) total() *big.Int {
	return new(big.Int).Add(s.BaseBalance, s.QuoteBalance)
}

// weights returns the base/quote weights as an ordered pair.
func (s Snapshot) weights() [2]*big.Int {
	return [2]*big.Int{s.BaseWeight, s.QuoteWeight}
}

// balances returns the base/quote balances as an ordered pair of copies.
func (s Snapshot) balances() [2]*big.Int {
	return [2]*big.Int{fixed.Clone(s.BaseBalance), fixed.Clone(s.QuoteBalance)}
}
