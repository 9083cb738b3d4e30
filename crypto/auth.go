package crypto

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrNotProven is returned by RequireAuth when the invoking context has not
// presented a valid signature for the account.
var ErrNotProven = errors.New("crypto: account control not proven")

// Sign produces a recoverable secp256k1 signature over the keccak digest of
// payload.
func (k *PrivateKey) Sign(payload []byte) ([]byte, error) {
	if k == nil || k.PrivateKey == nil {
		return nil, errors.New("crypto: nil private key")
	}
	return ethcrypto.Sign(ethcrypto.Keccak256(payload), k.PrivateKey)
}

// RecoverAddress returns the account that produced sig over payload.
func RecoverAddress(payload, sig []byte) ([20]byte, error) {
	var addr [20]byte
	pub, err := ethcrypto.SigToPub(ethcrypto.Keccak256(payload), sig)
	if err != nil {
		return addr, fmt.Errorf("crypto: recover signer: %w", err)
	}
	copy(addr[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return addr, nil
}

// SignatureAuthority proves account control from signatures presented with a
// call. It is built per call: each valid signature adds its recovered signer
// to the proven set, and RequireAuth admits exactly those accounts.
type SignatureAuthority struct {
	proven map[[20]byte]bool
}

// NewSignatureAuthority returns an authority with an empty proven set.
func NewSignatureAuthority() *SignatureAuthority {
	return &SignatureAuthority{proven: make(map[[20]byte]bool)}
}

// Prove verifies sig over payload and records the recovered account as
// controlled by the invoking context.
func (a *SignatureAuthority) Prove(payload, sig []byte) ([20]byte, error) {
	addr, err := RecoverAddress(payload, sig)
	if err != nil {
		return addr, err
	}
	a.proven[addr] = true
	return addr, nil
}

// RequireAuth implements the authorization collaborator consumed by the
// engines.
func (a *SignatureAuthority) RequireAuth(account [20]byte) error {
	if a == nil || !a.proven[account] {
		return ErrNotProven
	}
	return nil
}
