// Package fixed provides 18-decimal fixed-point arithmetic over big.Int.
//
// All pool-internal amounts are unsigned 18-decimal fixed-point values
// ("wei" style). Rounding direction is explicit at every call site: amounts
// owed to the pool round up, amounts owed to the caller round down.
package fixed

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the numeraire scale.
const Decimals = 18

// OracleDecimals is the fixed scale of oracle answers.
const OracleDecimals = 8

var (
	// ErrNegative is returned when a value that must be unsigned is negative.
	ErrNegative = errors.New("fixed: negative value")
	// ErrDivZero is returned on division by zero.
	ErrDivZero = errors.New("fixed: division by zero")

	ten = big.NewInt(10)

	// precomputed 10^dec for typical token decimals (0..36)
	scales [37]*big.Int
)

// One is 10^18, the fixed-point unit. Treat as read-only.
var One *big.Int

// OracleOne is 10^8, the oracle fixed-point unit. Treat as read-only.
var OracleOne *big.Int

func init() {
	scales[0] = big.NewInt(1)
	for i := 1; i < len(scales); i++ {
		scales[i] = new(big.Int).Mul(scales[i-1], ten)
	}
	One = scales[Decimals]
	OracleOne = scales[OracleDecimals]
}

// Scale returns 10^dec. The returned value MUST NOT be modified when
// dec is within the precomputed range.
func Scale(dec uint8) *big.Int {
	if int(dec) < len(scales) {
		return scales[dec]
	}
	return new(big.Int).Exp(ten, big.NewInt(int64(dec)), nil)
}

// FromUint converts whole units to an 18-decimal value.
func FromUint(u uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(u), One)
}

// Frac builds num/den as an 18-decimal fraction, truncating.
func Frac(num, den int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(num), One)
	return v.Quo(v, big.NewInt(den))
}

// Parse converts a non-negative decimal string such as "0.5" or "1200.25"
// to an 18-decimal value. Fractional digits past the 18th are rejected.
func Parse(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("fixed: empty value")
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("fixed: too many fractional digits in %q", s)
	}

	v, ok := new(big.Int).SetString(whole, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("fixed: invalid value %q", s)
	}
	v.Mul(v, One)

	if frac != "" {
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok || f.Sign() < 0 {
			return nil, fmt.Errorf("fixed: invalid value %q", s)
		}
		f.Mul(f, Scale(uint8(Decimals-len(frac))))
		v.Add(v, f)
	}
	return v, nil
}

// Mul returns a*b/1e18, truncated toward zero.
func Mul(a, b *big.Int) *big.Int {
	v := new(big.Int).Mul(a, b)
	return v.Quo(v, One)
}

// MulUp returns a*b/1e18, rounded away from zero.
func MulUp(a, b *big.Int) *big.Int {
	v := new(big.Int).Mul(a, b)
	return divUp(v, One)
}

// Div returns a*1e18/b, truncated toward zero.
func Div(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivZero
	}
	v := new(big.Int).Mul(a, One)
	return v.Quo(v, b), nil
}

// MulDiv returns a*b/den, truncated toward zero.
func MulDiv(a, b, den *big.Int) (*big.Int, error) {
	if den.Sign() == 0 {
		return nil, ErrDivZero
	}
	v := new(big.Int).Mul(a, b)
	return v.Quo(v, den), nil
}

// MulDivUp returns a*b/den, rounded away from zero.
func MulDivUp(a, b, den *big.Int) (*big.Int, error) {
	if den.Sign() == 0 {
		return nil, ErrDivZero
	}
	v := new(big.Int).Mul(a, b)
	return divUp(v, den), nil
}

func divUp(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 && (num.Sign() > 0) == (den.Sign() > 0) {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// Rescale converts a value from one decimal scale to another. Scaling down
// truncates toward zero so a party is never over-credited.
func Rescale(v *big.Int, fromDec, toDec uint8) *big.Int {
	if fromDec == toDec {
		return new(big.Int).Set(v)
	}
	if toDec > fromDec {
		return new(big.Int).Mul(v, Scale(toDec-fromDec))
	}
	return new(big.Int).Quo(v, Scale(fromDec-toDec))
}

// Clone returns a defensive copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
