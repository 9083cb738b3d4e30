package amm

import (
	"fmt"
	"math/big"

	nativecommon "lumifi/native/common"
)

// Pool holds the paired reserves of a constant-product liquidity pool. Pools
// are keyed by symbol and created lazily on the first liquidity addition.
type Pool struct {
	TokenReserve     *big.Int
	ReferenceReserve *big.Int
}

// Clone returns a deep copy to avoid callers mutating shared pointers.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	return &Pool{
		TokenReserve:     nativecommon.CloneBig(p.TokenReserve),
		ReferenceReserve: nativecommon.CloneBig(p.ReferenceReserve),
	}
}

type storedPool struct {
	TokenReserve     string
	ReferenceReserve string
}

func toStoredPool(p *Pool) *storedPool {
	return &storedPool{
		TokenReserve:     nativecommon.BigOrZero(p.TokenReserve).String(),
		ReferenceReserve: nativecommon.BigOrZero(p.ReferenceReserve).String(),
	}
}

func fromStoredPool(stored *storedPool) (*Pool, error) {
	tokenReserve, ok := new(big.Int).SetString(stored.TokenReserve, 10)
	if !ok {
		return nil, fmt.Errorf("amm: corrupt token reserve %q", stored.TokenReserve)
	}
	referenceReserve, ok := new(big.Int).SetString(stored.ReferenceReserve, 10)
	if !ok {
		return nil, fmt.Errorf("amm: corrupt reference reserve %q", stored.ReferenceReserve)
	}
	return &Pool{TokenReserve: tokenReserve, ReferenceReserve: referenceReserve}, nil
}
