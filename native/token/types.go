package token

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	nativecommon "lumifi/native/common"
)

// Token is the registry record for an issued token: its owner, the running
// total supply and the per-account balance map. The record as a whole lives
// under one storage slot keyed by the owner address.
type Token struct {
	Owner       [20]byte
	TotalSupply *big.Int
	Balances    map[[20]byte]*big.Int
}

// NewToken builds the initial record for an owner: the entire initial supply
// sits on the owner's balance.
func NewToken(owner [20]byte, initialSupply *big.Int) *Token {
	supply := nativecommon.CloneBig(initialSupply)
	return &Token{
		Owner:       owner,
		TotalSupply: supply,
		Balances:    map[[20]byte]*big.Int{owner: new(big.Int).Set(supply)},
	}
}

// BalanceOf returns the balance recorded for account, zero when absent.
func (t *Token) BalanceOf(account [20]byte) *big.Int {
	if t == nil || t.Balances == nil {
		return big.NewInt(0)
	}
	balance, ok := t.Balances[account]
	if !ok || balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := &Token{
		Owner:       t.Owner,
		TotalSupply: nativecommon.CloneBig(t.TotalSupply),
		Balances:    make(map[[20]byte]*big.Int, len(t.Balances)),
	}
	for account, balance := range t.Balances {
		clone.Balances[account] = nativecommon.CloneBig(balance)
	}
	return clone
}

// Stored mirrors keep amounts as decimal strings: the wire codec cannot carry
// negative big integers and burns can push balances negative.
type storedBalance struct {
	Account [20]byte
	Amount  string
}

type storedToken struct {
	Owner       [20]byte
	TotalSupply string
	Balances    []storedBalance
}

func toStoredToken(t *Token) *storedToken {
	stored := &storedToken{
		Owner:       t.Owner,
		TotalSupply: nativecommon.BigOrZero(t.TotalSupply).String(),
		Balances:    make([]storedBalance, 0, len(t.Balances)),
	}
	for account, balance := range t.Balances {
		stored.Balances = append(stored.Balances, storedBalance{
			Account: account,
			Amount:  nativecommon.BigOrZero(balance).String(),
		})
	}
	sort.Slice(stored.Balances, func(i, j int) bool {
		return bytes.Compare(stored.Balances[i].Account[:], stored.Balances[j].Account[:]) < 0
	})
	return stored
}

func fromStoredToken(stored *storedToken) (*Token, error) {
	supply, ok := new(big.Int).SetString(stored.TotalSupply, 10)
	if !ok {
		return nil, fmt.Errorf("token: corrupt supply record %q", stored.TotalSupply)
	}
	t := &Token{
		Owner:       stored.Owner,
		TotalSupply: supply,
		Balances:    make(map[[20]byte]*big.Int, len(stored.Balances)),
	}
	for _, entry := range stored.Balances {
		balance, parseOK := new(big.Int).SetString(entry.Amount, 10)
		if !parseOK {
			return nil, fmt.Errorf("token: corrupt balance record %q", entry.Amount)
		}
		t.Balances[entry.Account] = balance
	}
	return t, nil
}
