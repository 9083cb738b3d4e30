package treasury

import (
	"errors"
	"math/big"

	ledgererr "lumifi/core/errors"
	"lumifi/core/events"
	nativecommon "lumifi/native/common"
)

const moduleName = "treasury"

var (
	errNilAuth    = errors.New("treasury engine: authorizer not configured")
	errNilFactory = errors.New("treasury engine: asset client factory not configured")
)

// ClientFactory resolves the transfer client for an asset. Withdrawals query
// the live held balance through it rather than any locally tracked counter.
type ClientFactory func(asset [20]byte) nativecommon.AssetTransferor

// Engine pays held funds out of the module holding account. Withdrawal is not
// tied to any particular sale: the holding account is one shared custodial
// pool and any authorized recipient may draw from it up to the live balance.
type Engine struct {
	factory ClientFactory
	auth    nativecommon.Authorizer
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a withdrawal engine with a no-op emitter. Callers wire the
// client factory and authorizer before use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetClientFactory configures how per-asset transfer clients are resolved.
func (e *Engine) SetClientFactory(factory ClientFactory) { e.factory = factory }

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

// Withdraw moves amount of asset from the module holding account to
// recipient, bounded by the account's live balance.
func (e *Engine) Withdraw(asset, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.factory == nil {
		return errNilFactory
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.auth == nil {
		return errNilAuth
	}
	if err := e.auth.RequireAuth(recipient); err != nil {
		return ledgererr.ErrUnauthorized
	}
	if !nativecommon.FitsInt128(amount) {
		return nativecommon.ErrAmountRange
	}
	client := e.factory(asset)
	if client == nil {
		return errNilFactory
	}
	held, err := client.BalanceOf(nativecommon.ModuleAccount)
	if err != nil {
		return err
	}
	requested := nativecommon.BigOrZero(amount)
	if requested.Cmp(held) > 0 {
		return ledgererr.ErrInsufficientFunds
	}
	if err := client.Transfer(nativecommon.ModuleAccount, recipient, requested); err != nil {
		return err
	}
	e.emit(events.Withdrawal{
		Asset:     asset,
		Recipient: recipient,
		Amount:    nativecommon.CloneBig(requested),
	})
	return nil
}

// HeldBalance reports the module holding account's live balance of asset.
func (e *Engine) HeldBalance(asset [20]byte) (*big.Int, error) {
	if e == nil || e.factory == nil {
		return nil, errNilFactory
	}
	client := e.factory(asset)
	if client == nil {
		return nil, errNilFactory
	}
	return client.BalanceOf(nativecommon.ModuleAccount)
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
