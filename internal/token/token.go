// Package token defines the fungible-token transfer collaborator and an
// in-memory implementation used by the simulator and tests.
package token

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds is returned when a transfer exceeds the sender's
// balance.
var ErrInsufficientFunds = errors.New("token: insufficient funds")

// Transferor moves raw, token-decimal-scaled amounts between accounts.
type Transferor interface {
	Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error
}

// Bank is an in-memory Transferor with mintable balances.
type Bank struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int
}

func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

// Mint credits amount of asset to holder.
func (b *Bank) Mint(asset, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(asset, holder, amount)
}

// Transfer moves amount of asset from one account to another.
func (b *Bank) Transfer(_ context.Context, asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("token: negative amount")
	}
	if amount.Sign() == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balance(asset, from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	b.credit(asset, to, amount)
	return nil
}

// BalanceOf returns holder's raw balance of asset.
func (b *Bank) BalanceOf(asset, holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(asset, holder))
}

func (b *Bank) balance(asset, holder common.Address) *big.Int {
	holders, ok := b.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		b.balances[asset] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	return bal
}

func (b *Bank) credit(asset, holder common.Address, amount *big.Int) {
	bal := b.balance(asset, holder)
	bal.Add(bal, amount)
}
