package events

import "math/big"

// TypeWithdrawal is emitted when held funds leave the module account.
const TypeWithdrawal = "treasury.withdrawal"

// Withdrawal records an outbound transfer from the module holding account.
type Withdrawal struct {
	Asset     [20]byte
	Recipient [20]byte
	Amount    *big.Int
}

func (Withdrawal) EventType() string { return TypeWithdrawal }
