// Package oracle provides price feeds quoting a token against the numeraire
// at a fixed 8-decimal scale.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"
)

var (
	// ErrInvalid is returned when a feed reports a non-positive answer.
	ErrInvalid = errors.New("oracle: invalid answer")
	// ErrStale is returned when a feed's last update exceeds the allowed age.
	ErrStale = errors.New("oracle: stale answer")
)

// Quote is a single price observation: token per numeraire unit, 8 decimals.
type Quote struct {
	Answer    *big.Int
	UpdatedAt time.Time
}

// Feed supplies the latest price quote for one token.
type Feed interface {
	LatestQuote(ctx context.Context) (Quote, error)
}

// Validate rejects non-positive answers and, when maxAge > 0, quotes older
// than maxAge relative to now.
func Validate(q Quote, maxAge time.Duration, now time.Time) error {
	if q.Answer == nil || q.Answer.Sign() <= 0 {
		return ErrInvalid
	}
	if maxAge > 0 && now.Sub(q.UpdatedAt) > maxAge {
		return ErrStale
	}
	return nil
}

// FixedFeed is an in-memory feed with a settable answer, used by the
// simulator and tests.
type FixedFeed struct {
	mu        sync.RWMutex
	answer    *big.Int
	updatedAt time.Time
}

// NewFixedFeed creates a feed reporting answer (8 decimals) as of updatedAt.
func NewFixedFeed(answer *big.Int, updatedAt time.Time) *FixedFeed {
	return &FixedFeed{answer: new(big.Int).Set(answer), updatedAt: updatedAt}
}

// Set replaces the reported answer and update time.
func (f *FixedFeed) Set(answer *big.Int, updatedAt time.Time) {
	f.mu.Lock()
	f.answer = new(big.Int).Set(answer)
	f.updatedAt = updatedAt
	f.mu.Unlock()
}

// LatestQuote returns the current answer.
func (f *FixedFeed) LatestQuote(context.Context) (Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Quote{Answer: new(big.Int).Set(f.answer), UpdatedAt: f.updatedAt}, nil
}
