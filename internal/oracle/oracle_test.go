package oracle

import (
	"context"
	"math/big"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name    string
		quote   Quote
		maxAge  time.Duration
		wantErr error
	}{
		{"fresh", Quote{Answer: big.NewInt(1e8), UpdatedAt: now}, time.Hour, nil},
		{"no-staleness-tracking", Quote{Answer: big.NewInt(1e8), UpdatedAt: now.Add(-48 * time.Hour)}, 0, nil},
		{"zero answer", Quote{Answer: big.NewInt(0), UpdatedAt: now}, time.Hour, ErrInvalid},
		{"negative answer", Quote{Answer: big.NewInt(-5), UpdatedAt: now}, time.Hour, ErrInvalid},
		{"nil answer", Quote{}, time.Hour, ErrInvalid},
		{"stale", Quote{Answer: big.NewInt(1e8), UpdatedAt: now.Add(-2 * time.Hour)}, time.Hour, ErrStale},
	}

	for _, tc := range cases {
		err := Validate(tc.quote, tc.maxAge, now)
		if err != tc.wantErr {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestFixedFeedSet(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	feed := NewFixedFeed(big.NewInt(2_0000_0000), t0)

	q, err := feed.LatestQuote(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Answer.Cmp(big.NewInt(2_0000_0000)) != 0 {
		t.Fatalf("answer mismatch: %s", q.Answer)
	}

	t1 := t0.Add(time.Minute)
	feed.Set(big.NewInt(3_0000_0000), t1)

	q, err = feed.LatestQuote(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Answer.Cmp(big.NewInt(3_0000_0000)) != 0 || !q.UpdatedAt.Equal(t1) {
		t.Fatalf("set not applied: %s at %v", q.Answer, q.UpdatedAt)
	}

	// mutating the caller's copy must not affect the feed
	q.Answer.SetInt64(0)
	q2, _ := feed.LatestQuote(context.Background())
	if q2.Answer.Sign() == 0 {
		t.Fatalf("feed answer aliased to caller copy")
	}
}
