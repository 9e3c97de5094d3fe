package assimilator

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"oraclepool/internal/fixed"
	"oraclepool/internal/oracle"
)

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func TestDirectNormalizeRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		decimals uint8
		raw      int64
	}{
		{"six decimals", 6, 1_000_000},
		{"eight decimals", 8, 123_456_789},
		{"eighteen decimals", 18, 42},
	}

	ctx := context.Background()
	for _, tc := range cases {
		a := New(Binding{Decimals: tc.decimals}, fixedNow)

		raw := big.NewInt(tc.raw)
		numeraire, err := a.Normalize(ctx, raw)
		if err != nil {
			t.Fatalf("%s: normalize: %v", tc.name, err)
		}
		back, err := a.Denormalize(ctx, numeraire)
		if err != nil {
			t.Fatalf("%s: denormalize: %v", tc.name, err)
		}
		if back.Cmp(raw) != 0 {
			t.Fatalf("%s: round-trip mismatch: %s != %s", tc.name, back, raw)
		}
	}
}

func TestOracleBackedNormalize(t *testing.T) {
	ctx := context.Background()

	// rate 2.0: one raw unit is worth two numeraire units
	feed := oracle.NewFixedFeed(big.NewInt(2_0000_0000), fixedNow())
	a := New(Binding{Decimals: 6, Feed: feed, MaxAge: time.Hour}, fixedNow)

	raw := big.NewInt(1_000_000) // 1.0 token
	numeraire, err := a.Normalize(ctx, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if numeraire.Cmp(fixed.FromUint(2)) != 0 {
		t.Fatalf("normalize mismatch: %s", numeraire)
	}

	back, err := a.Denormalize(ctx, numeraire)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	if back.Cmp(raw) != 0 {
		t.Fatalf("round-trip mismatch: %s != %s", back, raw)
	}
}

func TestOracleBackedRoundTripWithinOneUnit(t *testing.T) {
	ctx := context.Background()

	// awkward rate to force rounding
	feed := oracle.NewFixedFeed(big.NewInt(123_456_789), fixedNow())
	a := New(Binding{Decimals: 8, Feed: feed, MaxAge: time.Hour}, fixedNow)

	raw := big.NewInt(987_654_321)
	numeraire, err := a.Normalize(ctx, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	back, err := a.Denormalize(ctx, numeraire)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}

	diff := new(big.Int).Sub(raw, back)
	if diff.Sign() < 0 {
		t.Fatalf("denormalize over-credited: %s > %s", back, raw)
	}
	if diff.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("round-trip off by more than one unit: %s", diff)
	}
}

func TestOracleBackedRejectsBadFeed(t *testing.T) {
	ctx := context.Background()

	feed := oracle.NewFixedFeed(big.NewInt(0), fixedNow())
	feed.Set(big.NewInt(0), fixedNow())
	a := New(Binding{Decimals: 6, Feed: feed, MaxAge: time.Hour}, fixedNow)

	if _, err := a.Normalize(ctx, big.NewInt(1)); !errors.Is(err, oracle.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	feed.Set(big.NewInt(1e8), fixedNow().Add(-2*time.Hour))
	if _, err := a.Normalize(ctx, big.NewInt(1)); !errors.Is(err, oracle.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestNegativeAmountRejected(t *testing.T) {
	ctx := context.Background()
	a := New(Binding{Decimals: 6}, fixedNow)

	if _, err := a.Normalize(ctx, big.NewInt(-1)); !errors.Is(err, fixed.ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
	if _, err := a.Denormalize(ctx, big.NewInt(-1)); !errors.Is(err, fixed.ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
}
