package ico

import (
	"fmt"
	"math/big"

	nativecommon "lumifi/native/common"
)

// Sale is the record stored for an opened crowd-sale. It is immutable once
// written: the amount raised so far is not tracked on the record, only on the
// per-account contribution ledger.
type Sale struct {
	Token        [20]byte
	TargetAmount *big.Int
	Deadline     uint64
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	return &Sale{
		Token:        s.Token,
		TargetAmount: nativecommon.CloneBig(s.TargetAmount),
		Deadline:     s.Deadline,
	}
}

type storedSale struct {
	Token        [20]byte
	TargetAmount string
	Deadline     uint64
}

func toStoredSale(s *Sale) *storedSale {
	return &storedSale{
		Token:        s.Token,
		TargetAmount: nativecommon.BigOrZero(s.TargetAmount).String(),
		Deadline:     s.Deadline,
	}
}

func fromStoredSale(stored *storedSale) (*Sale, error) {
	target, ok := new(big.Int).SetString(stored.TargetAmount, 10)
	if !ok {
		return nil, fmt.Errorf("ico: corrupt target record %q", stored.TargetAmount)
	}
	return &Sale{Token: stored.Token, TargetAmount: target, Deadline: stored.Deadline}, nil
}

type storedContribution struct {
	Amount string
}
