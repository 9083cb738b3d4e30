package events

import "math/big"

const (
	// TypeTokenCreated is emitted when a token record is first written (or
	// overwritten) for an owner.
	TypeTokenCreated = "token.created"
	// TypeTokenMinted is emitted when the owner mints (or, with a negative
	// amount, burns) supply.
	TypeTokenMinted = "token.minted"
)

// TokenCreated captures the initial state of a newly issued token.
type TokenCreated struct {
	Owner         [20]byte
	InitialSupply *big.Int
}

func (TokenCreated) EventType() string { return TypeTokenCreated }

// TokenMinted records a supply mutation applied by the token owner.
type TokenMinted struct {
	Token       [20]byte
	Owner       [20]byte
	Amount      *big.Int
	TotalSupply *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }
