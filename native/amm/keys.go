package amm

import "strings"

var poolPrefix = []byte("ledger/pool/")

func poolKey(symbol string) []byte {
	trimmed := strings.TrimSpace(symbol)
	buf := make([]byte, len(poolPrefix)+len(trimmed))
	copy(buf, poolPrefix)
	copy(buf[len(poolPrefix):], trimmed)
	return buf
}
