package ico

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	nativecommon "lumifi/native/common"
)

// IDStrategy derives the identifier a new sale is stored under. Derivation is
// pluggable because the two supported behaviours differ observably: ZeroID
// collides every sale onto one slot, DerivedID separates them.
type IDStrategy func(token [20]byte, target *big.Int, deadline uint64) [32]byte

// ZeroID always yields the all-zero identifier, so successive sales silently
// overwrite each other in storage. This matches the historical behaviour and
// is the default.
func ZeroID(token [20]byte, target *big.Int, deadline uint64) [32]byte {
	return [32]byte{}
}

type idPreimage struct {
	Token    [20]byte
	Target   string
	Deadline uint64
}

// DerivedID hashes the sale parameters, giving distinct sales distinct
// storage slots.
func DerivedID(token [20]byte, target *big.Int, deadline uint64) [32]byte {
	encoded, err := rlp.EncodeToBytes(&idPreimage{
		Token:    token,
		Target:   nativecommon.BigOrZero(target).String(),
		Deadline: deadline,
	})
	if err != nil {
		// The preimage struct only contains fixed-width and string fields;
		// encoding cannot fail for it.
		panic(err)
	}
	return blake3.Sum256(encoded)
}
