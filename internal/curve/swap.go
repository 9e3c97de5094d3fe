package curve

import (
	"math/big"

	"oraclepool/internal/fixed"
)

// Quote is the result of a swap solve, in numeraire units. AmountIn is the
// gross amount the pool pulls, AmountOut the net amount it pays, Fee the
// epsilon portion retained by the reserves.
type Quote struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Fee       *big.Int
}

// penaltyAt sums the per-asset divergence penalty for the given balances at
// total liquidity gLiq. A balance inside the beta band around its ideal
// (weight * gLiq) contributes nothing; outside it the penalty grows
// quadratically with slope delta, marginal rate capped at max.
func penaltyAt(bals [2]*big.Int, gLiq *big.Int, weights [2]*big.Int, p Params) *big.Int {
	sum := new(big.Int)
	for i := 0; i < 2; i++ {
		ideal := fixed.Mul(gLiq, weights[i])
		sum.Add(sum, microPenalty(bals[i], ideal, p))
	}
	return sum
}

func microPenalty(bal, ideal *big.Int, p Params) *big.Int {
	if ideal.Sign() == 0 {
		return new(big.Int)
	}

	lower := fixed.Mul(ideal, new(big.Int).Sub(fixed.One, p.Beta))
	upper := fixed.MulUp(ideal, new(big.Int).Add(fixed.One, p.Beta))

	var margin *big.Int
	switch {
	case bal.Cmp(lower) < 0:
		margin = new(big.Int).Sub(lower, bal)
	case bal.Cmp(upper) > 0:
		margin = new(big.Int).Sub(bal, upper)
	default:
		return new(big.Int)
	}

	// penalty is owed to the pool, both roundings go up
	rate, err := fixed.MulDivUp(margin, p.delta, ideal)
	if err != nil {
		return new(big.Int)
	}
	if rate.Cmp(p.Max) > 0 {
		rate = p.Max
	}
	return fixed.MulUp(rate, margin)
}

// enforceBounds rejects balances deviating from their ideal by more than
// alpha, or depleted entirely.
func enforceBounds(bals [2]*big.Int, gLiq *big.Int, weights [2]*big.Int, alpha *big.Int) error {
	for i := 0; i < 2; i++ {
		if bals[i].Sign() <= 0 {
			return ErrBoundsExceeded
		}
		ideal := fixed.Mul(gLiq, weights[i])
		dev := new(big.Int).Sub(bals[i], ideal)
		dev.Abs(dev)
		if dev.Cmp(fixed.MulUp(ideal, alpha)) > 0 {
			return ErrBoundsExceeded
		}
	}
	return nil
}

// QuoteOriginSwap solves the output amount for a fixed input such that the
// curve invariant is preserved, then deducts the epsilon fee from the
// output. tokenInIsBase selects the swap direction. The solve runs a
// bounded fixed-point iteration; exceeding the bound fails with
// ErrConvergence rather than returning an approximation.
func QuoteOriginSwap(s Snapshot, p Params, tokenInIsBase bool, amountIn *big.Int) (Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return Quote{}, ErrZeroAmount
	}

	oBals := s.balances()
	weights := s.weights()
	oGLiq := s.total()
	if oGLiq.Sign() == 0 {
		return Quote{}, ErrZeroLiquidity
	}

	inIdx, outIdx := swapIndexes(tokenInIsBase)
	omega := penaltyAt(oBals, oGLiq, weights, p)

	nBals := s.balances()
	nBals[inIdx].Add(nBals[inIdx], amountIn)

	guess := fixed.Clone(amountIn)
	converged := false
	for i := 0; i < maxIterations; i++ {
		if guess.Cmp(oBals[outIdx]) >= 0 {
			return Quote{}, ErrBoundsExceeded
		}
		nBals[outIdx] = new(big.Int).Sub(oBals[outIdx], guess)
		nGLiq := new(big.Int).Add(nBals[0], nBals[1])
		psi := penaltyAt(nBals, nGLiq, weights, p)

		next := new(big.Int)
		if psi.Cmp(omega) >= 0 {
			// trade deepens imbalance: output shrinks by the penalty growth
			next.Sub(amountIn, new(big.Int).Sub(psi, omega))
		} else {
			// trade improves balance: credit lambda of the penalty release
			next.Add(amountIn, fixed.Mul(p.Lambda, new(big.Int).Sub(omega, psi)))
		}
		if next.Sign() <= 0 {
			return Quote{}, ErrBoundsExceeded
		}

		diff := new(big.Int).Sub(next, guess)
		diff.Abs(diff)
		guess = next
		if diff.Cmp(tolerance) <= 0 {
			converged = true
			break
		}
	}
	if !converged {
		return Quote{}, ErrConvergence
	}

	if guess.Cmp(oBals[outIdx]) >= 0 {
		return Quote{}, ErrBoundsExceeded
	}
	nBals[outIdx] = new(big.Int).Sub(oBals[outIdx], guess)
	nGLiq := new(big.Int).Add(nBals[0], nBals[1])
	if err := enforceBounds(nBals, nGLiq, weights, p.Alpha); err != nil {
		return Quote{}, err
	}

	// flat fee on the way out; amount owed to the caller rounds down
	fee := fixed.MulUp(guess, p.Epsilon)
	amountOut := new(big.Int).Sub(guess, fee)
	if amountOut.Sign() <= 0 {
		return Quote{}, ErrZeroAmount
	}

	return Quote{
		AmountIn:  fixed.Clone(amountIn),
		AmountOut: amountOut,
		Fee:       fee,
	}, nil
}

// QuoteTargetSwap is the dual solve: the required gross input for a fixed
// desired output, with the epsilon fee added to the input. Same convergence
// contract as QuoteOriginSwap.
func QuoteTargetSwap(s Snapshot, p Params, tokenInIsBase bool, amountOut *big.Int) (Quote, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return Quote{}, ErrZeroAmount
	}

	oBals := s.balances()
	weights := s.weights()
	oGLiq := s.total()
	if oGLiq.Sign() == 0 {
		return Quote{}, ErrZeroLiquidity
	}

	inIdx, outIdx := swapIndexes(tokenInIsBase)
	if amountOut.Cmp(oBals[outIdx]) >= 0 {
		return Quote{}, ErrBoundsExceeded
	}

	omega := penaltyAt(oBals, oGLiq, weights, p)

	nBals := s.balances()
	nBals[outIdx] = new(big.Int).Sub(oBals[outIdx], amountOut)

	guess := fixed.Clone(amountOut)
	converged := false
	for i := 0; i < maxIterations; i++ {
		nBals[inIdx] = new(big.Int).Add(oBals[inIdx], guess)
		nGLiq := new(big.Int).Add(nBals[0], nBals[1])
		psi := penaltyAt(nBals, nGLiq, weights, p)

		next := new(big.Int)
		if psi.Cmp(omega) >= 0 {
			next.Add(amountOut, new(big.Int).Sub(psi, omega))
		} else {
			next.Sub(amountOut, fixed.Mul(p.Lambda, new(big.Int).Sub(omega, psi)))
		}
		if next.Sign() <= 0 {
			return Quote{}, ErrBoundsExceeded
		}

		diff := new(big.Int).Sub(next, guess)
		diff.Abs(diff)
		guess = next
		if diff.Cmp(tolerance) <= 0 {
			converged = true
			break
		}
	}
	if !converged {
		return Quote{}, ErrConvergence
	}

	nBals[inIdx] = new(big.Int).Add(oBals[inIdx], guess)
	nGLiq := new(big.Int).Add(nBals[0], nBals[1])
	if err := enforceBounds(nBals, nGLiq, weights, p.Alpha); err != nil {
		return Quote{}, err
	}

	// flat fee on the way in; amount owed to the pool rounds up
	fee := fixed.MulUp(guess, p.Epsilon)
	amountIn := new(big.Int).Add(guess, fee)

	return Quote{
		AmountIn:  amountIn,
		AmountOut: fixed.Clone(amountOut),
		Fee:       fee,
	}, nil
}

func swapIndexes(tokenInIsBase bool) (in, out int) {
	if tokenInIsBase {
		return 0, 1
	}
	return 1, 0
}
