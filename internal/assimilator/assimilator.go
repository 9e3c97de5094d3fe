// Package assimilator converts raw token amounts to and from the pool's
// 18-decimal numeraire, applying an oracle rate where the token is not the
// numeraire itself.
package assimilator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"oraclepool/internal/fixed"
	"oraclepool/internal/oracle"
)

// Assimilator adapts one token's raw units to numeraire units.
//
// Normalize and Denormalize are exact inverses up to fixed-point rounding;
// Denormalize truncates toward zero so a party is never over-credited.
type Assimilator interface {
	// Normalize converts a raw token amount into 18-decimal numeraire units.
	Normalize(ctx context.Context, raw *big.Int) (*big.Int, error)
	// Denormalize converts 18-decimal numeraire units into raw token units.
	Denormalize(ctx context.Context, numeraire *big.Int) (*big.Int, error)
	// Rate returns the token's price per numeraire unit, 8-decimal fixed.
	Rate(ctx context.Context) (*big.Int, error)
	// Decimals returns the token's native decimal count.
	Decimals() uint8
}

// Binding describes one token's conversion setup, fixed at pool creation.
type Binding struct {
	Decimals uint8
	// Feed is nil when the token is the numeraire itself.
	Feed oracle.Feed
	// MaxAge bounds feed staleness; zero disables the check.
	MaxAge time.Duration
}

// New selects the assimilator variant for a binding.
func New(b Binding, now func() time.Time) Assimilator {
	if now == nil {
		now = time.Now
	}
	if b.Feed == nil {
		return &direct{decimals: b.Decimals}
	}
	return &oracleBacked{decimals: b.Decimals, feed: b.Feed, maxAge: b.MaxAge, now: now}
}

// direct handles the numeraire token itself: pure decimal rescaling.
type direct struct {
	decimals uint8
}

func (d *direct) Normalize(_ context.Context, raw *big.Int) (*big.Int, error) {
	if raw.Sign() < 0 {
		return nil, fixed.ErrNegative
	}
	return fixed.Rescale(raw, d.decimals, fixed.Decimals), nil
}

func (d *direct) Denormalize(_ context.Context, numeraire *big.Int) (*big.Int, error) {
	if numeraire.Sign() < 0 {
		return nil, fixed.ErrNegative
	}
	return fixed.Rescale(numeraire, fixed.Decimals, d.decimals), nil
}

func (d *direct) Rate(context.Context) (*big.Int, error) {
	return new(big.Int).Set(fixed.OracleOne), nil
}

func (d *direct) Decimals() uint8 { return d.decimals }

// oracleBacked scales by decimals and multiplies by the latest oracle rate.
type oracleBacked struct {
	decimals uint8
	feed     oracle.Feed
	maxAge   time.Duration
	now      func() time.Time
}

func (o *oracleBacked) Rate(ctx context.Context) (*big.Int, error) {
	quote, err := o.feed.LatestQuote(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest quote: %w", err)
	}
	if err := oracle.Validate(quote, o.maxAge, o.now()); err != nil {
		return nil, err
	}
	return quote.Answer, nil
}

func (o *oracleBacked) Normalize(ctx context.Context, raw *big.Int) (*big.Int, error) {
	if raw.Sign() < 0 {
		return nil, fixed.ErrNegative
	}
	rate, err := o.Rate(ctx)
	if err != nil {
		return nil, err
	}
	scaled := fixed.Rescale(raw, o.decimals, fixed.Decimals)
	return fixed.MulDiv(scaled, rate, fixed.OracleOne)
}

func (o *oracleBacked) Denormalize(ctx context.Context, numeraire *big.Int) (*big.Int, error) {
	if numeraire.Sign() < 0 {
		return nil, fixed.ErrNegative
	}
	rate, err := o.Rate(ctx)
	if err != nil {
		return nil, err
	}
	scaled, err := fixed.MulDiv(numeraire, fixed.OracleOne, rate)
	if err != nil {
		return nil, err
	}
	return fixed.Rescale(scaled, fixed.Decimals, o.decimals), nil
}

func (o *oracleBacked) Decimals() uint8 { return o.decimals }
