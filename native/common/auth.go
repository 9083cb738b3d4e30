package common

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Authorizer proves that the invoking context controls an account. Engines
// consult it before any state mutation; a failed check must abort the call
// with no side effects.
//
// Implementations decide what "control" means: a signature over the call
// payload, a local keyring, or a fixed allow-set in tests.
type Authorizer interface {
	RequireAuth(account [20]byte) error
}

// AssetTransferor moves the reference asset between accounts and reports held
// balances. It is expected to be atomic and to fail loudly when the source
// lacks funds.
type AssetTransferor interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	BalanceOf(account [20]byte) (*big.Int, error)
}

// ModuleAccount is the ledger's own holding account: ICO contributions land
// here and withdrawals are paid out of it. The address is derived from a fixed
// preimage so every deployment custodies funds under the same account.
var ModuleAccount = deriveModuleAccount()

func deriveModuleAccount() [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("lumifi/module-account"))
	copy(addr[:], hash[12:])
	return addr
}
