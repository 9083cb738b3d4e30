package bank

import (
	"math/big"

	nativecommon "lumifi/native/common"
)

// AssetClient binds the account ledger to a single asset, presenting the
// narrow transfer interface the engines consume. It mirrors how callers on
// other ledgers obtain a per-token client before moving funds.
type AssetClient struct {
	ledger *Ledger
	asset  [20]byte
}

var _ nativecommon.AssetTransferor = (*AssetClient)(nil)

// NewAssetClient returns a client scoped to the given asset.
func NewAssetClient(ledger *Ledger, asset [20]byte) *AssetClient {
	return &AssetClient{ledger: ledger, asset: asset}
}

// Transfer moves amount of the bound asset between accounts.
func (c *AssetClient) Transfer(from, to [20]byte, amount *big.Int) error {
	if c == nil || c.ledger == nil {
		return errNilStore
	}
	return c.ledger.Transfer(c.asset, from, to, amount)
}

// BalanceOf reports the bound-asset balance held by account.
func (c *AssetClient) BalanceOf(account [20]byte) (*big.Int, error) {
	if c == nil || c.ledger == nil {
		return nil, errNilStore
	}
	return c.ledger.Balance(c.asset, account)
}
