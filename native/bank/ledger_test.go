package bank

import (
	"errors"
	"math/big"
	"testing"

	"lumifi/core/state"
	"lumifi/storage"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(state.NewManager(storage.NewMemDB()))
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestLedgerCreditAndBalance(t *testing.T) {
	l := newTestLedger(t)
	asset := addr(0x01)
	account := addr(0xA1)

	balance, err := l.Balance(asset, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("fresh account balance = %s, want 0", balance)
	}

	if err := l.Credit(asset, account, big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	balance, err = l.Balance(asset, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 500 {
		t.Fatalf("balance = %s, want 500", balance)
	}

	if err := l.Credit(asset, account, big.NewInt(0)); err == nil {
		t.Fatalf("zero credit should fail")
	}
	if err := l.Credit(asset, account, big.NewInt(-5)); err == nil {
		t.Fatalf("negative credit should fail")
	}
}

func TestLedgerTransfer(t *testing.T) {
	l := newTestLedger(t)
	asset := addr(0x01)
	alice := addr(0xA1)
	bob := addr(0xB2)

	if err := l.Credit(asset, alice, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Transfer(asset, alice, bob, big.NewInt(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	aliceBalance, _ := l.Balance(asset, alice)
	bobBalance, _ := l.Balance(asset, bob)
	if aliceBalance.Int64() != 40 || bobBalance.Int64() != 60 {
		t.Fatalf("balances = %s/%s, want 40/60", aliceBalance, bobBalance)
	}

	err := l.Transfer(asset, alice, bob, big.NewInt(41))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw error = %v, want ErrInsufficientBalance", err)
	}
	aliceBalance, _ = l.Balance(asset, alice)
	if aliceBalance.Int64() != 40 {
		t.Fatalf("failed transfer must not move funds, balance = %s", aliceBalance)
	}

	if err := l.Transfer(asset, alice, bob, big.NewInt(-1)); err == nil {
		t.Fatalf("negative transfer should fail")
	}
}

func TestLedgerAssetsAreIsolated(t *testing.T) {
	l := newTestLedger(t)
	account := addr(0xA1)

	if err := l.Credit(addr(0x01), account, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	other, err := l.Balance(addr(0x02), account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if other.Sign() != 0 {
		t.Fatalf("other asset balance = %s, want 0", other)
	}
}

func TestAssetClient(t *testing.T) {
	l := newTestLedger(t)
	asset := addr(0x01)
	alice := addr(0xA1)
	bob := addr(0xB2)
	client := NewAssetClient(l, asset)

	if err := l.Credit(asset, alice, big.NewInt(25)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := client.Transfer(alice, bob, big.NewInt(25)); err != nil {
		t.Fatalf("client transfer: %v", err)
	}
	balance, err := client.BalanceOf(bob)
	if err != nil {
		t.Fatalf("client balance: %v", err)
	}
	if balance.Int64() != 25 {
		t.Fatalf("balance = %s, want 25", balance)
	}
}
