package main

import "encoding/json"

// StratumRequest is one line of an inbound or outbound Stratum v1 message
// framed as a JSON object terminated by '\n'.
type StratumRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// StratumResponse mirrors a JSON-RPC-flavored Stratum reply: exactly one of
// Result/Error is meaningful for a given response.
type StratumResponse struct {
	ID     any            `json:"id"`
	Result any            `json:"result"`
	Error  *StratumError  `json:"error"`
}

// StratumError is the three-element [code, message, traceback] error tuple.
type StratumError struct {
	Code      int    `json:"-"`
	Message   string `json:"-"`
	Traceback any    `json:"-"`
}

// MarshalJSON renders StratumError as the bare 3-element array Stratum
// clients expect instead of an object.
func (e *StratumError) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	return fastJSONMarshal([]any{e.Code, e.Message, e.Traceback})
}

const (
	stratumErrJobNotFound   = 20
	stratumErrStaleShare    = 21
	stratumErrLowDifficulty = 23
)

func stratumErrorReply(id any, code int, msg string) StratumResponse {
	return StratumResponse{
		ID:     id,
		Result: false,
		Error:  &StratumError{Code: code, Message: msg},
	}
}

func stratumOKReply(id any, result any) StratumResponse {
	return StratumResponse{ID: id, Result: result, Error: nil}
}

// rpcRequest is a JSON-RPC 2.0 request envelope to the CKB node.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope from the CKB node. Result
// is kept as a raw JSON value so callers can decode it into whatever
// method-specific type they expect (blockTemplate, a bare string, ...).
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
