package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger tracks LP share balances. It is owned by the Pool and only mutated
// through Mint and Burn, keeping sum(balances) == supply at all times.
type Ledger struct {
	balances map[common.Address]*big.Int
	supply   *big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]*big.Int),
		supply:   new(big.Int),
	}
}

// Mint credits amount of LP shares to holder.
func (l *Ledger) Mint(holder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	bal, ok := l.balances[holder]
	if !ok {
		bal = new(big.Int)
		l.balances[holder] = bal
	}
	bal.Add(bal, amount)
	l.supply.Add(l.supply, amount)
}

// Burn debits amount of LP shares from holder. Fails with
// ErrInsufficientBalance when amount exceeds the holder's balance.
func (l *Ledger) Burn(holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	bal, ok := l.balances[holder]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	l.supply.Sub(l.supply, amount)
	return nil
}

// BalanceOf returns holder's LP balance.
func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	bal, ok := l.balances[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// TotalSupply returns the outstanding LP supply.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}
