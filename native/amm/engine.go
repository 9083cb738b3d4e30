package amm

import (
	"errors"
	"math/big"

	ledgererr "lumifi/core/errors"
	"lumifi/core/events"
	nativecommon "lumifi/native/common"
)

const moduleName = "amm"

var (
	errNilState = errors.New("amm engine: state not configured")
	errNilAuth  = errors.New("amm engine: authorizer not configured")
)

// Storage abstracts the subset of state manager functionality required by the
// pool engine.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine maintains constant-product liquidity pools: providers deposit paired
// reserves and anyone may swap the reference asset for tokens against the
// combined reserves. There is no fee and no share accounting; deposits are
// pooled without attribution.
type Engine struct {
	store   Storage
	auth    nativecommon.Authorizer
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a pool engine with a no-op emitter. Callers wire the state
// backend and authorizer before invoking operations.
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

// AddLiquidity deposits both amounts into the pool's reserves, creating the
// pool at (0,0) when it does not exist yet.
func (e *Engine) AddLiquidity(symbol string, provider [20]byte, amountToken, amountReference *big.Int) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireAuth(provider); err != nil {
		return err
	}
	if amountToken == nil || amountToken.Sign() <= 0 || amountReference == nil || amountReference.Sign() <= 0 {
		return ledgererr.ErrInvalidAmount
	}
	if !nativecommon.FitsInt128(amountToken) || !nativecommon.FitsInt128(amountReference) {
		return nativecommon.ErrAmountRange
	}
	pool, _, err := e.load(symbol)
	if err != nil {
		return err
	}
	if pool == nil {
		pool = &Pool{TokenReserve: big.NewInt(0), ReferenceReserve: big.NewInt(0)}
	}
	newTokenReserve, err := nativecommon.CheckedAdd128(pool.TokenReserve, amountToken)
	if err != nil {
		return err
	}
	newReferenceReserve, err := nativecommon.CheckedAdd128(pool.ReferenceReserve, amountReference)
	if err != nil {
		return err
	}
	pool.TokenReserve = newTokenReserve
	pool.ReferenceReserve = newReferenceReserve
	if err := e.store.KVPut(poolKey(symbol), toStoredPool(pool)); err != nil {
		return err
	}
	e.emit(events.LiquidityAdded{
		Pool:            symbol,
		Provider:        provider,
		AmountToken:     nativecommon.CloneBig(amountToken),
		AmountReference: nativecommon.CloneBig(amountReference),
	})
	return nil
}

// Swap trades amountIn of the reference asset against the pool and returns
// the token output:
//
//	tokenOut = amountIn * tokenReserve / (referenceReserve + amountIn)
//
// with the division truncating toward zero. On non-negative operands that is
// floor division, which rounds in the pool's favour by at most one unit per
// swap; the rounding direction is part of the pricing contract. An output of
// exactly the token reserve is permitted and zeroes the token side of the
// pool.
func (e *Engine) Swap(symbol string, amountIn *big.Int) (*big.Int, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !nativecommon.FitsInt128(amountIn) {
		return nil, nativecommon.ErrAmountRange
	}
	pool, ok, err := e.load(symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ledgererr.ErrTokenNotFound
	}
	in := nativecommon.BigOrZero(amountIn)
	divisor := new(big.Int).Add(pool.ReferenceReserve, in)
	if divisor.Sign() == 0 {
		return nil, ledgererr.ErrInvalidAmount
	}
	tokenOut := new(big.Int).Quo(new(big.Int).Mul(in, pool.TokenReserve), divisor)
	if tokenOut.Cmp(pool.TokenReserve) > 0 {
		return nil, ledgererr.ErrInsufficientFunds
	}
	newReferenceReserve, err := nativecommon.CheckedAdd128(pool.ReferenceReserve, in)
	if err != nil {
		return nil, err
	}
	pool.TokenReserve = new(big.Int).Sub(pool.TokenReserve, tokenOut)
	pool.ReferenceReserve = newReferenceReserve
	if err := e.store.KVPut(poolKey(symbol), toStoredPool(pool)); err != nil {
		return nil, err
	}
	e.emit(events.SwapExecuted{
		Pool:             symbol,
		AmountIn:         nativecommon.CloneBig(in),
		TokenOut:         nativecommon.CloneBig(tokenOut),
		TokenReserve:     nativecommon.CloneBig(pool.TokenReserve),
		ReferenceReserve: nativecommon.CloneBig(pool.ReferenceReserve),
	})
	return tokenOut, nil
}

// GetPool returns the pool stored under symbol.
func (e *Engine) GetPool(symbol string) (*Pool, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	return e.load(symbol)
}

func (e *Engine) load(symbol string) (*Pool, bool, error) {
	var stored storedPool
	ok, err := e.store.KVGet(poolKey(symbol), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	pool, err := fromStoredPool(&stored)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
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

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
