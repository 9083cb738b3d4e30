package token

import (
	"errors"
	"math/big"

	ledgererr "lumifi/core/errors"
	"lumifi/core/events"
	nativecommon "lumifi/native/common"
)

const moduleName = "token"

var (
	errNilState = errors.New("token engine: state not configured")
	errNilAuth  = errors.New("token engine: authorizer not configured")
)

// Storage abstracts the subset of state manager functionality required by the
// token registry.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine implements token issuance and minting over the keyed state store.
type Engine struct {
	store   Storage
	auth    nativecommon.Authorizer
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a token engine with a no-op emitter. Callers wire the
// state backend and authorizer before invoking operations.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(store Storage) { e.store = store }

// SetAuthorizer configures the collaborator that proves account control.
func (e *Engine) SetAuthorizer(auth nativecommon.Authorizer) { e.auth = auth }

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) requireAuth(account [20]byte) error {
	if e.auth == nil {
		return errNilAuth
	}
	if err := e.auth.RequireAuth(account); err != nil {
		return ledgererr.ErrUnauthorized
	}
	return nil
}

// Create issues a new token owned by owner, with the entire initial supply on
// the owner's balance, and returns the owner address as the token identity.
// Re-creating a token for the same owner silently overwrites the prior record.
func (e *Engine) Create(owner [20]byte, initialSupply *big.Int) ([20]byte, error) {
	if e == nil || e.store == nil {
		return [20]byte{}, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return [20]byte{}, err
	}
	if err := e.requireAuth(owner); err != nil {
		return [20]byte{}, err
	}
	supply := nativecommon.BigOrZero(initialSupply)
	if supply.Sign() < 0 {
		return [20]byte{}, ledgererr.ErrInvalidAmount
	}
	if !nativecommon.FitsInt128(supply) {
		return [20]byte{}, nativecommon.ErrAmountRange
	}
	record := NewToken(owner, supply)
	if err := e.store.KVPut(tokenKey(owner), toStoredToken(record)); err != nil {
		return [20]byte{}, err
	}
	e.emit(events.TokenCreated{Owner: owner, InitialSupply: nativecommon.CloneBig(supply)})
	return owner, nil
}

// Mint adjusts the total supply and the owner's balance by amount. Only the
// recorded owner may authorize the call. A negative amount burns: it decreases
// supply and the owner balance, and may drive both negative.
func (e *Engine) Mint(tokenAddr [20]byte, amount *big.Int) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	record, ok, err := e.load(tokenAddr)
	if err != nil {
		return err
	}
	if !ok {
		return ledgererr.ErrTokenNotFound
	}
	if err := e.requireAuth(record.Owner); err != nil {
		return err
	}
	if !nativecommon.FitsInt128(amount) {
		return nativecommon.ErrAmountRange
	}
	newSupply, err := nativecommon.CheckedAdd128(record.TotalSupply, amount)
	if err != nil {
		return err
	}
	newBalance, err := nativecommon.CheckedAdd128(record.BalanceOf(record.Owner), amount)
	if err != nil {
		return err
	}
	record.TotalSupply = newSupply
	record.Balances[record.Owner] = newBalance
	if err := e.store.KVPut(tokenKey(tokenAddr), toStoredToken(record)); err != nil {
		return err
	}
	e.emit(events.TokenMinted{
		Token:       tokenAddr,
		Owner:       record.Owner,
		Amount:      nativecommon.CloneBig(amount),
		TotalSupply: nativecommon.CloneBig(newSupply),
	})
	return nil
}

// Get returns the token record stored for tokenAddr.
func (e *Engine) Get(tokenAddr [20]byte) (*Token, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	return e.load(tokenAddr)
}

func (e *Engine) load(tokenAddr [20]byte) (*Token, bool, error) {
	var stored storedToken
	ok, err := e.store.KVGet(tokenKey(tokenAddr), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	record, err := fromStoredToken(&stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
