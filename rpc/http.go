package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lumifi/core"
	ledgererr "lumifi/core/errors"
	"lumifi/native/bank"
	nativecommon "lumifi/native/common"
	"lumifi/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	requestsPerSecond = 20
	requestBurst      = 40
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
	codeSaleExpired    = -32011
	codeInsufficient   = -32012
	codeRateLimited    = -32020
	codeModulePaused   = -32030
)

// Server exposes the ledger's entry points over JSON-RPC 2.0. Mutating calls
// are authorized by caller signatures carried in the params; administrative
// calls additionally require the bearer token.
type Server struct {
	node      *core.Node
	authToken string
	log       *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer wires a server over node. token guards administrative methods; an
// empty token disables them.
func NewServer(node *core.Node, token string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(token),
		log:       log,
		limiters:  make(map[string]*rate.Limiter),
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// ServeHTTP implements http.Handler so the server can be mounted on any mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	rid := uuid.NewString()
	s.log.Info("rpc request", "rid", rid, "method", req.Method, "remote", r.RemoteAddr)
	observability.RPCServed(req.Method)

	switch req.Method {
	case "lumifi_createToken":
		s.handleCreateToken(w, r, req)
	case "lumifi_mint":
		s.handleMint(w, r, req)
	case "lumifi_startICO":
		s.handleStartICO(w, r, req)
	case "lumifi_buyToken":
		s.handleBuyToken(w, r, req)
	case "lumifi_withdraw":
		s.handleWithdraw(w, r, req)
	case "lumifi_addLiquidity":
		s.handleAddLiquidity(w, r, req)
	case "lumifi_swap":
		s.handleSwap(w, r, req)
	case "lumifi_getToken":
		s.handleGetToken(w, r, req)
	case "lumifi_getICO":
		s.handleGetICO(w, r, req)
	case "lumifi_getPool":
		s.handleGetPool(w, r, req)
	case "lumifi_getContribution":
		s.handleGetContribution(w, r, req)
	case "lumifi_getBalance":
		s.handleGetBalance(w, r, req)
	case "lumifi_treasuryBalance":
		s.handleTreasuryBalance(w, r, req)
	case "lumifi_fundAccount":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleFundAccount(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

func (s *Server) allow(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	s.mu.Lock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
		s.limiters[host] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// writeLedgerError maps engine errors onto JSON-RPC error codes.
func (s *Server) writeLedgerError(w http.ResponseWriter, id interface{}, method string, err error) {
	observability.RPCFailed(method)
	switch {
	case errors.Is(err, ledgererr.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "caller signature does not authorize this call", nil)
	case errors.Is(err, ledgererr.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, "token not found", nil)
	case errors.Is(err, ledgererr.ErrICONotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, "sale not found", nil)
	case errors.Is(err, ledgererr.ErrICOExpired):
		writeError(w, http.StatusBadRequest, id, codeSaleExpired, "sale deadline has passed", nil)
	case errors.Is(err, ledgererr.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid amount", nil)
	case errors.Is(err, ledgererr.ErrInsufficientFunds), errors.Is(err, bank.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, id, codeInsufficient, "insufficient funds", nil)
	case errors.Is(err, nativecommon.ErrAmountRange):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "amount outside the 128-bit range", nil)
	case errors.Is(err, nativecommon.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, id, codeModulePaused, "module paused", nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
	}
}
