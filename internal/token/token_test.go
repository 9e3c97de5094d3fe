package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	usdc  = common.HexToAddress("0x01")
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb0")
)

func TestBankTransfer(t *testing.T) {
	bank := NewBank()
	bank.Mint(usdc, alice, big.NewInt(100))

	if err := bank.Transfer(context.Background(), usdc, alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got := bank.BalanceOf(usdc, alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice balance mismatch: %s", got)
	}
	if got := bank.BalanceOf(usdc, bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob balance mismatch: %s", got)
	}
}

func TestBankTransferInsufficient(t *testing.T) {
	bank := NewBank()
	bank.Mint(usdc, alice, big.NewInt(10))

	err := bank.Transfer(context.Background(), usdc, alice, bob, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := bank.BalanceOf(usdc, alice); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed transfer mutated balance: %s", got)
	}
}

func TestBankZeroTransferNoop(t *testing.T) {
	bank := NewBank()
	if err := bank.Transfer(context.Background(), usdc, alice, bob, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer failed: %v", err)
	}
	if err := bank.Transfer(context.Background(), usdc, alice, bob, big.NewInt(-1)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
