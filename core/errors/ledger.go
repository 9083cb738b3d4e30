package errors

import stderrors "errors"

// Terminal failure kinds shared by the ledger engines. Every engine operation
// resolves to success or exactly one of these; none are retryable by the
// engine itself.
var (
	ErrUnauthorized      = stderrors.New("ledger: unauthorized")
	ErrInsufficientFunds = stderrors.New("ledger: insufficient funds")
	ErrICOExpired        = stderrors.New("ledger: ico expired")
	ErrInvalidAmount     = stderrors.New("ledger: invalid amount")
	ErrTokenNotFound     = stderrors.New("ledger: token not found")
	ErrICONotFound       = stderrors.New("ledger: ico not found")

	// ErrAlreadyInitialized is part of the public taxonomy but no operation
	// currently raises it: re-creating a token silently overwrites the prior
	// record. Callers should still be prepared to observe it.
	ErrAlreadyInitialized = stderrors.New("ledger: already initialized")
)
