package ico

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ledgererr "lumifi/core/errors"
	"lumifi/core/events"
	nativecommon "lumifi/native/common"
)

const moduleName = "ico"

var (
	errNilState   = errors.New("ico engine: state not configured")
	errNilAuth    = errors.New("ico engine: authorizer not configured")
	errNilFactory = errors.New("ico engine: asset client factory not configured")
)

// ClientFactory resolves the transfer client used to move a sale's asset from
// the buyer into the module holding account.
type ClientFactory func(asset [20]byte) nativecommon.AssetTransferor

// Storage abstracts the subset of state manager functionality required by the
// sale manager.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine runs time-boxed crowd-sales: it opens sale records and accepts
// contributions against them until the deadline passes. Contributions move the
// reference asset from the buyer into the module holding account before the
// buyer's cumulative contribution entry is updated.
type Engine struct {
	store   Storage
	auth    nativecommon.Authorizer
	factory ClientFactory
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() uint64
	idFn    IDStrategy
}

// NewEngine creates a sale engine with the zero-identifier strategy and a
// no-op emitter. Callers wire state, authorizer and transferor before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   defaultNow,
		idFn:    ZeroID,
	}
}

func defaultNow() uint64 {
	now := time.Now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(store Storage) { e.store = store }

// SetAuthorizer configures the collaborator that proves account control.
func (e *Engine) SetAuthorizer(auth nativecommon.Authorizer) { e.auth = auth }

// SetClientFactory configures how per-asset transfer clients are resolved.
func (e *Engine) SetClientFactory(factory ClientFactory) { e.factory = factory }

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

// SetNowFunc overrides the clock used for deadline checks. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = defaultNow
		return
	}
	e.nowFn = now
}

// SetIDStrategy overrides how sale identifiers are derived. Passing nil
// restores the default zero-identifier strategy.
func (e *Engine) SetIDStrategy(fn IDStrategy) {
	if fn == nil {
		e.idFn = ZeroID
		return
	}
	e.idFn = fn
}

// Start opens a sale for the given token and returns the identifier it was
// stored under. With the default identifier strategy every sale lands on the
// same slot and overwrites the previous record.
func (e *Engine) Start(tokenAddr [20]byte, target *big.Int, deadline uint64) ([32]byte, error) {
	if e == nil || e.store == nil {
		return [32]byte{}, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return [32]byte{}, err
	}
	if !nativecommon.FitsInt128(target) {
		return [32]byte{}, nativecommon.ErrAmountRange
	}
	id := e.idFn(tokenAddr, target, deadline)
	sale := &Sale{Token: tokenAddr, TargetAmount: nativecommon.CloneBig(target), Deadline: deadline}
	if err := e.store.KVPut(saleKey(id), toStoredSale(sale)); err != nil {
		return [32]byte{}, err
	}
	e.emit(events.ICOStarted{
		ID:           id,
		Token:        tokenAddr,
		TargetAmount: nativecommon.CloneBig(target),
		Deadline:     deadline,
	})
	return id, nil
}

// Buy records a contribution of amount by buyer against the sale. The asset
// transfer into the module holding account must succeed before the
// contribution ledger is touched; a failed transfer aborts the call with no
// ledger write.
func (e *Engine) Buy(id [32]byte, buyer [20]byte, amount *big.Int) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if e.factory == nil {
		return errNilFactory
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireAuth(buyer); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ledgererr.ErrInvalidAmount
	}
	if !nativecommon.FitsInt128(amount) {
		return nativecommon.ErrAmountRange
	}
	sale, ok, err := e.load(id)
	if err != nil {
		return err
	}
	if !ok {
		return ledgererr.ErrICONotFound
	}
	if e.nowFn() > sale.Deadline {
		return ledgererr.ErrICOExpired
	}
	client := e.factory(sale.Token)
	if client == nil {
		return errNilFactory
	}
	if err := client.Transfer(buyer, nativecommon.ModuleAccount, amount); err != nil {
		return err
	}
	total, err := e.contribution(buyer)
	if err != nil {
		return err
	}
	updated, err := nativecommon.CheckedAdd128(total, amount)
	if err != nil {
		return err
	}
	if err := e.store.KVPut(contributionKey(buyer), &storedContribution{Amount: updated.String()}); err != nil {
		return err
	}
	e.emit(events.ICOContribution{
		ID:     id,
		Buyer:  buyer,
		Amount: nativecommon.CloneBig(amount),
		Total:  nativecommon.CloneBig(updated),
	})
	return nil
}

// GetSale returns the sale stored under id.
func (e *Engine) GetSale(id [32]byte) (*Sale, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	return e.load(id)
}

// Contribution returns the cumulative amount account has contributed across
// all sales.
func (e *Engine) Contribution(account [20]byte) (*big.Int, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.contribution(account)
}

func (e *Engine) load(id [32]byte) (*Sale, bool, error) {
	var stored storedSale
	ok, err := e.store.KVGet(saleKey(id), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	sale, err := fromStoredSale(&stored)
	if err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

func (e *Engine) contribution(account [20]byte) (*big.Int, error) {
	var stored storedContribution
	ok, err := e.store.KVGet(contributionKey(account), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	total, parseOK := new(big.Int).SetString(stored.Amount, 10)
	if !parseOK {
		return nil, fmt.Errorf("ico: corrupt contribution record %q", stored.Amount)
	}
	return total, nil
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
