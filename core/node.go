package core

import (
	"math/big"
	"sync"

	"lumifi/core/events"
	"lumifi/core/state"
	"lumifi/native/amm"
	"lumifi/native/bank"
	nativecommon "lumifi/native/common"
	"lumifi/native/ico"
	"lumifi/native/token"
	"lumifi/native/treasury"
	"lumifi/observability"
	"lumifi/storage"
)

// Node owns the storage substrate and exposes the ledger's entry points. Every
// call runs to completion under one mutex: the engines read a record, mutate
// an in-memory copy and write it back, so the node guarantees that no two
// calls interleave on the same key.
//
// Authorization is per call: the caller passes the authorizer that proved
// account control for this invocation (for RPC, a signature authority built
// from the request's signatures).
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	state   *state.Manager
	bank    *bank.Ledger
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() uint64
	idFn    ico.IDStrategy
}

// NewNode constructs a node over the given database.
func NewNode(db storage.Database) *Node {
	manager := state.NewManager(db)
	return &Node{
		db:      db,
		state:   manager,
		bank:    bank.NewLedger(manager),
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter shared by all engines.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetPauses configures the module pause view shared by all engines.
func (n *Node) SetPauses(p nativecommon.PauseView) { n.pauses = p }

// SetNowFunc overrides the clock used for sale deadline checks.
func (n *Node) SetNowFunc(now func() uint64) { n.nowFn = now }

// SetIDStrategy overrides how sale identifiers are derived.
func (n *Node) SetIDStrategy(fn ico.IDStrategy) { n.idFn = fn }

// Bank exposes the account ledger, primarily so deployments can fund accounts
// at genesis.
func (n *Node) Bank() *bank.Ledger { return n.bank }

func (n *Node) clientFactory() func(asset [20]byte) nativecommon.AssetTransferor {
	return func(asset [20]byte) nativecommon.AssetTransferor {
		return bank.NewAssetClient(n.bank, asset)
	}
}

// Engines are cheap wiring structs, so the node builds one per call with the
// call's authorizer attached.

func (n *Node) tokenEngine(auth nativecommon.Authorizer) *token.Engine {
	e := token.NewEngine()
	e.SetState(n.state)
	e.SetAuthorizer(auth)
	e.SetEmitter(n.emitter)
	e.SetPauses(n.pauses)
	return e
}

func (n *Node) icoEngine(auth nativecommon.Authorizer) *ico.Engine {
	e := ico.NewEngine()
	e.SetState(n.state)
	e.SetAuthorizer(auth)
	e.SetClientFactory(n.clientFactory())
	e.SetEmitter(n.emitter)
	e.SetPauses(n.pauses)
	if n.nowFn != nil {
		e.SetNowFunc(n.nowFn)
	}
	if n.idFn != nil {
		e.SetIDStrategy(n.idFn)
	}
	return e
}

func (n *Node) ammEngine(auth nativecommon.Authorizer) *amm.Engine {
	e := amm.NewEngine()
	e.SetState(n.state)
	e.SetAuthorizer(auth)
	e.SetEmitter(n.emitter)
	e.SetPauses(n.pauses)
	return e
}

func (n *Node) treasuryEngine(auth nativecommon.Authorizer) *treasury.Engine {
	e := treasury.NewEngine()
	e.SetAuthorizer(auth)
	e.SetClientFactory(n.clientFactory())
	e.SetEmitter(n.emitter)
	e.SetPauses(n.pauses)
	return e
}

// CreateToken issues a token owned by owner and returns its identity.
func (n *Node) CreateToken(auth nativecommon.Authorizer, owner [20]byte, initialSupply *big.Int) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.tokenEngine(auth).Create(owner, initialSupply)
	observability.OperationObserved("create_token", err)
	return id, err
}

// Mint adjusts a token's supply; only the recorded owner may authorize.
func (n *Node) Mint(auth nativecommon.Authorizer, tokenAddr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.tokenEngine(auth).Mint(tokenAddr, amount)
	observability.OperationObserved("mint", err)
	return err
}

// StartICO opens a sale and returns the identifier it was stored under.
func (n *Node) StartICO(tokenAddr [20]byte, target *big.Int, deadline uint64) ([32]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.icoEngine(nil).Start(tokenAddr, target, deadline)
	observability.OperationObserved("start_ico", err)
	return id, err
}

// BuyToken records a contribution by buyer against the sale.
func (n *Node) BuyToken(auth nativecommon.Authorizer, id [32]byte, buyer [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.icoEngine(auth).Buy(id, buyer, amount)
	observability.OperationObserved("buy_token", err)
	return err
}

// Withdraw pays held funds out of the module holding account.
func (n *Node) Withdraw(auth nativecommon.Authorizer, asset, recipient [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.treasuryEngine(auth).Withdraw(asset, recipient, amount)
	observability.OperationObserved("withdraw", err)
	return err
}

// AddLiquidity deposits paired reserves into a pool.
func (n *Node) AddLiquidity(auth nativecommon.Authorizer, symbol string, provider [20]byte, amountToken, amountReference *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.ammEngine(auth).AddLiquidity(symbol, provider, amountToken, amountReference)
	observability.OperationObserved("add_liquidity", err)
	return err
}

// Swap trades the reference asset against a pool and returns the token output.
func (n *Node) Swap(symbol string, amountIn *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out, err := n.ammEngine(nil).Swap(symbol, amountIn)
	observability.OperationObserved("swap", err)
	return out, err
}

// GetToken returns the token record stored for tokenAddr.
func (n *Node) GetToken(tokenAddr [20]byte) (*token.Token, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokenEngine(nil).Get(tokenAddr)
}

// GetICO returns the sale stored under id.
func (n *Node) GetICO(id [32]byte) (*ico.Sale, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.icoEngine(nil).GetSale(id)
}

// GetPool returns the pool stored under symbol.
func (n *Node) GetPool(symbol string) (*amm.Pool, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ammEngine(nil).GetPool(symbol)
}

// Contribution returns the cumulative amount account has contributed across
// all sales.
func (n *Node) Contribution(account [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.icoEngine(nil).Contribution(account)
}

// HeldBalance reports the module holding account's balance of asset.
func (n *Node) HeldBalance(asset [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasuryEngine(nil).HeldBalance(asset)
}

// Balance reports account's balance of asset.
func (n *Node) Balance(asset, account [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bank.Balance(asset, account)
}

// FundAccount credits amount of asset to account. It backs the development
// faucet; production deployments fund accounts at genesis instead.
func (n *Node) FundAccount(asset, account [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bank.Credit(asset, account, amount)
}
