package ico

var (
	salePrefix = []byte("ledger/ico/")
	userPrefix = []byte("ledger/user/")
)

func saleKey(id [32]byte) []byte {
	buf := make([]byte, len(salePrefix)+len(id))
	copy(buf, salePrefix)
	copy(buf[len(salePrefix):], id[:])
	return buf
}

// contributionKey addresses the global per-account contribution ledger. The
// key space deliberately carries no sale identifier: contributions across all
// sales accumulate into one counter per account.
func contributionKey(account [20]byte) []byte {
	buf := make([]byte, len(userPrefix)+len(account))
	copy(buf, userPrefix)
	copy(buf[len(userPrefix):], account[:])
	return buf
}
