package events

import "math/big"

const (
	// TypeLiquidityAdded is emitted when a provider deposits into a pool.
	TypeLiquidityAdded = "amm.liquidity_added"
	// TypeSwapExecuted is emitted after a constant-product swap has settled.
	TypeSwapExecuted = "amm.swap"
)

// LiquidityAdded records a reserve deposit into a pool.
type LiquidityAdded struct {
	Pool            string
	Provider        [20]byte
	AmountToken     *big.Int
	AmountReference *big.Int
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

// SwapExecuted records the settled reserves and output of a swap.
type SwapExecuted struct {
	Pool             string
	AmountIn         *big.Int
	TokenOut         *big.Int
	TokenReserve     *big.Int
	ReferenceReserve *big.Int
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }
