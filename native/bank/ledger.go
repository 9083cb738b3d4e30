package bank

import (
	"errors"
	"fmt"
	"math/big"

	nativecommon "lumifi/native/common"
)

var (
	// ErrInsufficientBalance is returned when a transfer would overdraw the
	// source account.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	errNilStore            = errors.New("bank: ledger not initialised")
)

// Storage abstracts the subset of state manager functionality required by the
// account ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var balancePrefix = []byte("bank/balance/")

func balanceKey(asset, account [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(asset)+1+len(account))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], asset[:])
	buf[len(balancePrefix)+len(asset)] = ':'
	copy(buf[len(balancePrefix)+len(asset)+1:], account[:])
	return buf
}

// Balances are persisted as decimal strings so the stored form stays uniform
// with the other ledger records.
type storedBalance struct {
	Amount string
}

// Ledger tracks per-asset account balances in the underlying key-value store.
// Transfers are atomic with respect to a single call: the debit and credit are
// both applied or the operation fails before any write.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) balance(asset, account [20]byte) (*big.Int, error) {
	var stored storedBalance
	ok, err := l.store.KVGet(balanceKey(asset, account), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	value, parseOK := new(big.Int).SetString(stored.Amount, 10)
	if !parseOK {
		return nil, fmt.Errorf("bank: corrupt balance record %q", stored.Amount)
	}
	return value, nil
}

func (l *Ledger) setBalance(asset, account [20]byte, value *big.Int) error {
	return l.store.KVPut(balanceKey(asset, account), &storedBalance{Amount: value.String()})
}

// Balance returns the balance held by account in the given asset. Accounts
// with no record hold zero.
func (l *Ledger) Balance(asset, account [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, errNilStore
	}
	return l.balance(asset, account)
}

// Credit mints amount of asset into account. It exists so deployments can fund
// accounts at genesis and tests can seed balances; amount must be positive.
func (l *Ledger) Credit(asset, account [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return errNilStore
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: credit amount must be positive")
	}
	balance, err := l.balance(asset, account)
	if err != nil {
		return err
	}
	updated, err := nativecommon.CheckedAdd128(balance, amount)
	if err != nil {
		return err
	}
	return l.setBalance(asset, account, updated)
}

// Transfer moves amount of asset from one account to another, failing with
// ErrInsufficientBalance when the source lacks funds. Nothing is written
// before every precondition has passed.
func (l *Ledger) Transfer(asset, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return errNilStore
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: negative transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.balance(asset, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.balance(asset, to)
	if err != nil {
		return err
	}
	updatedTo, err := nativecommon.CheckedAdd128(toBalance, amount)
	if err != nil {
		return err
	}
	if err := l.setBalance(asset, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.setBalance(asset, to, updatedTo)
}
