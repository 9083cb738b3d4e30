package events

import "math/big"

const (
	// TypeICOStarted is emitted when a sale record is written.
	TypeICOStarted = "ico.started"
	// TypeICOContribution is emitted after a successful purchase has moved
	// funds and updated the buyer's cumulative contribution.
	TypeICOContribution = "ico.contribution"
)

// ICOStarted captures the parameters of a newly opened sale.
type ICOStarted struct {
	ID           [32]byte
	Token        [20]byte
	TargetAmount *big.Int
	Deadline     uint64
}

func (ICOStarted) EventType() string { return TypeICOStarted }

// ICOContribution records a successful purchase against a sale.
type ICOContribution struct {
	ID     [32]byte
	Buyer  [20]byte
	Amount *big.Int
	// Total is the buyer's cumulative contribution across all sales; the
	// contribution ledger is keyed by account only.
	Total *big.Int
}

func (ICOContribution) EventType() string { return TypeICOContribution }
