package token

var tokenPrefix = []byte("ledger/token/")

func tokenKey(owner [20]byte) []byte {
	buf := make([]byte, len(tokenPrefix)+len(owner))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], owner[:])
	return buf
}
