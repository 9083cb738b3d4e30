package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"lumifi/core"
	"lumifi/crypto"
	"lumifi/storage"
)

const testBearerToken = "test-rpc-token"

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *core.Node) {
	t.Helper()
	node := core.NewNode(storage.NewMemDB())
	node.SetNowFunc(func() uint64 { return 1_000 })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(node, testBearerToken, log), node
}

func postRPC(t *testing.T, server *Server, bearer, method string, params interface{}) (*testResponse, int) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
		"params":  []json.RawMessage{raw},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	resp := &testResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp, rec.Code
}

func decodeResult(t *testing.T, resp *testResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", resp.Error)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signHex(t *testing.T, key *crypto.PrivateKey, payload []byte) string {
	t.Helper()
	sig, err := key.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return hex.EncodeToString(sig)
}

func bechAddr(fill byte) string {
	b := make([]byte, 20)
	for i := range b {
		b[i] = fill
	}
	return crypto.NewAddress(crypto.LumiPrefix, b).String()
}

func TestCreateTokenOverRPC(t *testing.T) {
	server, _ := newTestServer(t)
	key := newKey(t)
	owner := key.PubKey().Address().String()

	payload := signingPayload("create_token", owner, "1000")
	resp, code := postRPC(t, server, "", "lumifi_createToken", createTokenParams{
		Owner:         owner,
		InitialSupply: "1000",
		Signature:     signHex(t, key, payload),
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var result tokenResult
	decodeResult(t, resp, &result)
	if result.Token != owner || result.TotalSupply != "1000" {
		t.Fatalf("result = %+v", result)
	}

	resp, _ = postRPC(t, server, "", "lumifi_getToken", map[string]string{"token": owner})
	decodeResult(t, resp, &result)
	if result.Owner != owner || result.TotalSupply != "1000" {
		t.Fatalf("stored token = %+v", result)
	}
}

func TestMintRejectsWrongSigner(t *testing.T) {
	server, _ := newTestServer(t)
	ownerKey := newKey(t)
	owner := ownerKey.PubKey().Address().String()

	createPayload := signingPayload("create_token", owner, "500")
	resp, _ := postRPC(t, server, "", "lumifi_createToken", createTokenParams{
		Owner:         owner,
		InitialSupply: "500",
		Signature:     signHex(t, ownerKey, createPayload),
	})
	if resp.Error != nil {
		t.Fatalf("create: %+v", resp.Error)
	}

	intruder := newKey(t)
	mintPayload := signingPayload("mint", owner, "100")
	resp, code := postRPC(t, server, "", "lumifi_mint", mintParams{
		Token:     owner,
		Amount:    "100",
		Signature: signHex(t, intruder, mintPayload),
	})
	if code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeUnauthorized)
	}
}

func TestMintBurnsWithNegativeAmount(t *testing.T) {
	server, _ := newTestServer(t)
	key := newKey(t)
	owner := key.PubKey().Address().String()

	resp, _ := postRPC(t, server, "", "lumifi_createToken", createTokenParams{
		Owner:         owner,
		InitialSupply: "500",
		Signature:     signHex(t, key, signingPayload("create_token", owner, "500")),
	})
	if resp.Error != nil {
		t.Fatalf("create: %+v", resp.Error)
	}

	resp, _ = postRPC(t, server, "", "lumifi_mint", mintParams{
		Token:     owner,
		Amount:    "-200",
		Signature: signHex(t, key, signingPayload("mint", owner, "-200")),
	})
	var result tokenResult
	decodeResult(t, resp, &result)
	if result.TotalSupply != "300" {
		t.Fatalf("supply after burn = %s, want 300", result.TotalSupply)
	}
}

func TestSaleLifecycleOverRPC(t *testing.T) {
	server, _ := newTestServer(t)
	buyerKey := newKey(t)
	buyer := buyerKey.PubKey().Address().String()
	saleToken := bechAddr(0xA1)

	resp, _ := postRPC(t, server, testBearerToken, "lumifi_fundAccount", fundAccountParams{
		Asset:   saleToken,
		Account: buyer,
		Amount:  "1000",
	})
	if resp.Error != nil {
		t.Fatalf("fund: %+v", resp.Error)
	}

	resp, _ = postRPC(t, server, "", "lumifi_startICO", startICOParams{
		Token:        saleToken,
		TargetAmount: "10000",
		Deadline:     2_000,
	})
	var sale saleResult
	decodeResult(t, resp, &sale)
	if sale.ID != "0x"+hex.EncodeToString(make([]byte, 32)) {
		t.Fatalf("sale id = %s, want the all-zero slot", sale.ID)
	}

	buyPayload := signingPayload("buy_token", sale.ID, buyer, "250")
	resp, _ = postRPC(t, server, "", "lumifi_buyToken", buyTokenParams{
		ID:        sale.ID,
		Buyer:     buyer,
		Amount:    "250",
		Signature: signHex(t, buyerKey, buyPayload),
	})
	var contribution contributionResult
	decodeResult(t, resp, &contribution)
	if contribution.Total != "250" {
		t.Fatalf("contribution = %s, want 250", contribution.Total)
	}

	resp, _ = postRPC(t, server, "", "lumifi_treasuryBalance", map[string]string{"asset": saleToken})
	var held balanceResult
	decodeResult(t, resp, &held)
	if held.Amount != "250" {
		t.Fatalf("treasury balance = %s, want 250", held.Amount)
	}

	// Withdrawal pays the module's held funds out to the proven recipient.
	withdrawPayload := signingPayload("withdraw", saleToken, buyer, "100")
	resp, _ = postRPC(t, server, "", "lumifi_withdraw", withdrawParams{
		Asset:     saleToken,
		Recipient: buyer,
		Amount:    "100",
		Signature: signHex(t, buyerKey, withdrawPayload),
	})
	var balance balanceResult
	decodeResult(t, resp, &balance)
	if balance.Amount != "850" {
		t.Fatalf("recipient balance = %s, want 850", balance.Amount)
	}
}

func TestSwapOverRPC(t *testing.T) {
	server, _ := newTestServer(t)
	providerKey := newKey(t)
	provider := providerKey.PubKey().Address().String()

	payload := signingPayload("add_liquidity", "LUMI", provider, "1000", "1000")
	resp, _ := postRPC(t, server, "", "lumifi_addLiquidity", addLiquidityParams{
		Symbol:          "LUMI",
		Provider:        provider,
		AmountToken:     "1000",
		AmountReference: "1000",
		Signature:       signHex(t, providerKey, payload),
	})
	var pool poolResult
	decodeResult(t, resp, &pool)
	if pool.TokenReserve != "1000" || pool.ReferenceReserve != "1000" {
		t.Fatalf("pool = %+v", pool)
	}

	resp, _ = postRPC(t, server, "", "lumifi_swap", swapParams{Symbol: "LUMI", AmountIn: "100"})
	var swapped swapResult
	decodeResult(t, resp, &swapped)
	if swapped.AmountOut != "90" {
		t.Fatalf("amountOut = %s, want 90", swapped.AmountOut)
	}

	resp, _ = postRPC(t, server, "", "lumifi_getPool", map[string]string{"symbol": "LUMI"})
	decodeResult(t, resp, &pool)
	if pool.TokenReserve != "910" || pool.ReferenceReserve != "1100" {
		t.Fatalf("reserves after swap = %+v", pool)
	}
}

func TestFundAccountRequiresBearerToken(t *testing.T) {
	server, _ := newTestServer(t)
	resp, code := postRPC(t, server, "", "lumifi_fundAccount", fundAccountParams{
		Asset:   bechAddr(0xA1),
		Account: bechAddr(0xC3),
		Amount:  "10",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeUnauthorized)
	}
}

func TestUnknownMethod(t *testing.T) {
	server, _ := newTestServer(t)
	resp, code := postRPC(t, server, "", "lumifi_unknown", map[string]string{})
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeMethodNotFound)
	}
}

func TestBuyOnMissingSaleMapsToNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	buyerKey := newKey(t)
	buyer := buyerKey.PubKey().Address().String()
	id := "0x" + hex.EncodeToString(bytes.Repeat([]byte{0xFF}, 32))

	payload := signingPayload("buy_token", id, buyer, "10")
	resp, code := postRPC(t, server, "", "lumifi_buyToken", buyTokenParams{
		ID:        id,
		Buyer:     buyer,
		Amount:    "10",
		Signature: signHex(t, buyerKey, payload),
	})
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeNotFound)
	}
}
