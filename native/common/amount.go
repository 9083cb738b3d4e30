package common

import (
	"errors"
	"math/big"
)

// ErrAmountRange is returned when an arithmetic result leaves the signed
// 128-bit range the ledger's quantities are defined over.
var ErrAmountRange = errors.New("amount: outside signed 128-bit range")

var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// FitsInt128 reports whether v lies within [-2^127, 2^127-1]. A nil value is
// treated as zero.
func FitsInt128(v *big.Int) bool {
	if v == nil {
		return true
	}
	return v.Cmp(minInt128) >= 0 && v.Cmp(maxInt128) <= 0
}

// CheckedAdd128 returns a+b, failing with ErrAmountRange when the sum leaves
// the signed 128-bit range. Nil operands are treated as zero.
func CheckedAdd128(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(BigOrZero(a), BigOrZero(b))
	if !FitsInt128(sum) {
		return nil, ErrAmountRange
	}
	return sum, nil
}

// BigOrZero returns v, or a fresh zero when v is nil. The result is never the
// caller's pointer for nil inputs, so it is safe to mutate.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// CloneBig returns an independent copy of v, treating nil as zero.
func CloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
