package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"lumifi/crypto"
	nativecommon "lumifi/native/common"
)

// Mutating methods are authorized by a recoverable secp256k1 signature over
// the canonical call payload: the method's wire name and its fields joined
// with '|', exactly as rendered in the params. The recovered signer is the
// account the engines check control for, so a signature from the wrong key
// simply fails the engine's authorization.

type createTokenParams struct {
	Owner         string `json:"owner"`
	InitialSupply string `json:"initialSupply"`
	Signature     string `json:"signature"`
}

type mintParams struct {
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type startICOParams struct {
	Token        string `json:"token"`
	TargetAmount string `json:"targetAmount"`
	Deadline     uint64 `json:"deadline"`
}

type buyTokenParams struct {
	ID        string `json:"id"`
	Buyer     string `json:"buyer"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type withdrawParams struct {
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type addLiquidityParams struct {
	Symbol          string `json:"symbol"`
	Provider        string `json:"provider"`
	AmountToken     string `json:"amountToken"`
	AmountReference string `json:"amountReference"`
	Signature       string `json:"signature"`
}

type swapParams struct {
	Symbol   string `json:"symbol"`
	AmountIn string `json:"amountIn"`
}

type fundAccountParams struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type tokenResult struct {
	Token       string `json:"token"`
	Owner       string `json:"owner"`
	TotalSupply string `json:"totalSupply"`
}

type saleResult struct {
	ID           string `json:"id"`
	Token        string `json:"token"`
	TargetAmount string `json:"targetAmount"`
	Deadline     uint64 `json:"deadline"`
}

type poolResult struct {
	Symbol           string `json:"symbol"`
	TokenReserve     string `json:"tokenReserve"`
	ReferenceReserve string `json:"referenceReserve"`
}

type swapResult struct {
	Symbol    string `json:"symbol"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

type balanceResult struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type contributionResult struct {
	Account string `json:"account"`
	Total   string `json:"total"`
}

func signingPayload(method string, fields ...string) []byte {
	return []byte(strings.Join(append([]string{method}, fields...), "|"))
}

func decodeAddressParam(value, field string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid %s address: %w", field, err)
	}
	return addr.Array(), nil
}

func encodeAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.LumiPrefix, addr[:]).String()
}

func parseAmount(value, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s", field)
	}
	return amount, nil
}

func decodeSaleID(value string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("invalid sale id: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("sale id must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func encodeSaleID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

// proveSigner verifies the signature over payload and returns an authorizer
// admitting exactly the recovered account.
func proveSigner(payload []byte, signature string) (nativecommon.Authorizer, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	authority := crypto.NewSignatureAuthority()
	if _, err := authority.Prove(payload, sig); err != nil {
		return nil, err
	}
	return authority, nil
}

func unmarshalSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %w", err)
	}
	return nil
}

func (s *Server) handleCreateToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params createTokenParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := decodeAddressParam(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	supply, err := parseAmount(params.InitialSupply, "initialSupply")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := proveSigner(signingPayload("create_token", params.Owner, params.InitialSupply), params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenAddr, err := s.node.CreateToken(authority, owner, supply)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, tokenResult{
		Token:       encodeAddress(tokenAddr),
		Owner:       params.Owner,
		TotalSupply: supply.String(),
	})
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenAddr, err := decodeAddressParam(params.Token, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := proveSigner(signingPayload("mint", params.Token, params.Amount), params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Mint(authority, tokenAddr, amount); err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	record, ok, err := s.node.GetToken(tokenAddr)
	if err != nil || !ok {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, tokenResult{
		Token:       params.Token,
		Owner:       encodeAddress(record.Owner),
		TotalSupply: record.TotalSupply.String(),
	})
}

func (s *Server) handleStartICO(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params startICOParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenAddr, err := decodeAddressParam(params.Token, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAmount(params.TargetAmount, "targetAmount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.StartICO(tokenAddr, target, params.Deadline)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, saleResult{
		ID:           encodeSaleID(id),
		Token:        params.Token,
		TargetAmount: target.String(),
		Deadline:     params.Deadline,
	})
}

func (s *Server) handleBuyToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params buyTokenParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeSaleID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	buyer, err := decodeAddressParam(params.Buyer, "buyer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := proveSigner(signingPayload("buy_token", params.ID, params.Buyer, params.Amount), params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.BuyToken(authority, id, buyer, amount); err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	total, err := s.node.Contribution(buyer)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, contributionResult{Account: params.Buyer, Total: total.String()})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params withdrawParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeAddressParam(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := decodeAddressParam(params.Recipient, "recipient")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	authority, err := proveSigner(signingPayload("withdraw", params.Asset, params.Recipient, params.Amount), params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Withdraw(authority, asset, recipient, amount); err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	balance, err := s.node.Balance(asset, recipient)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Account: params.Recipient, Asset: params.Asset, Amount: balance.String()})
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addLiquidityParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	provider, err := decodeAddressParam(params.Provider, "provider")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountToken, err := parseAmount(params.AmountToken, "amountToken")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountReference, err := parseAmount(params.AmountReference, "amountReference")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payload := signingPayload("add_liquidity", params.Symbol, params.Provider, params.AmountToken, params.AmountReference)
	authority, err := proveSigner(payload, params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.AddLiquidity(authority, params.Symbol, provider, amountToken, amountReference); err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	pool, ok, err := s.node.GetPool(params.Symbol)
	if err != nil || !ok {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, poolResult{
		Symbol:           strings.TrimSpace(params.Symbol),
		TokenReserve:     pool.TokenReserve.String(),
		ReferenceReserve: pool.ReferenceReserve.String(),
	})
}

func (s *Server) handleSwap(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params swapParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountIn, err := parseAmount(params.AmountIn, "amountIn")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountOut, err := s.node.Swap(params.Symbol, amountIn)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, swapResult{
		Symbol:    strings.TrimSpace(params.Symbol),
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
	})
}

func (s *Server) handleGetToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Token string `json:"token"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenAddr, err := decodeAddressParam(params.Token, "token")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	record, ok, err := s.node.GetToken(tokenAddr)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "token not found", nil)
		return
	}
	writeResult(w, req.ID, tokenResult{
		Token:       params.Token,
		Owner:       encodeAddress(record.Owner),
		TotalSupply: record.TotalSupply.String(),
	})
}

func (s *Server) handleGetICO(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		ID string `json:"id"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeSaleID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sale, ok, err := s.node.GetICO(id)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "sale not found", nil)
		return
	}
	writeResult(w, req.ID, saleResult{
		ID:           encodeSaleID(id),
		Token:        encodeAddress(sale.Token),
		TargetAmount: sale.TargetAmount.String(),
		Deadline:     sale.Deadline,
	})
}

func (s *Server) handleGetPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Symbol string `json:"symbol"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	pool, ok, err := s.node.GetPool(params.Symbol)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "pool not found", nil)
		return
	}
	writeResult(w, req.ID, poolResult{
		Symbol:           strings.TrimSpace(params.Symbol),
		TokenReserve:     pool.TokenReserve.String(),
		ReferenceReserve: pool.ReferenceReserve.String(),
	})
}

func (s *Server) handleGetContribution(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Account string `json:"account"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	total, err := s.node.Contribution(account)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, contributionResult{Account: params.Account, Total: total.String()})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Asset   string `json:"asset"`
		Account string `json:"account"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeAddressParam(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.Balance(asset, account)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Account: params.Account, Asset: params.Asset, Amount: balance.String()})
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params struct {
		Asset string `json:"asset"`
	}
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeAddressParam(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	held, err := s.node.HeldBalance(asset)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Account: encodeAddress(nativecommon.ModuleAccount),
		Asset:   params.Asset,
		Amount:  held.String(),
	})
}

func (s *Server) handleFundAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params fundAccountParams
	if err := unmarshalSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeAddressParam(params.Asset, "asset")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeAddressParam(params.Account, "account")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.FundAccount(asset, account, amount); err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	balance, err := s.node.Balance(asset, account)
	if err != nil {
		s.writeLedgerError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Account: params.Account, Asset: params.Asset, Amount: balance.String()})
}
