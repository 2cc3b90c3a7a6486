package server

import (
	"bytes"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"fitgate/internal/fault"
)

const jsonrpcVersion = "2.0"

// Request is an inbound JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id. Notifications
// never receive a JSON-RPC response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

// Response is an outbound JSON-RPC 2.0 response. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData tells the client which fault occurred and when to retry.
type ErrorData struct {
	Kind              fault.Kind `json:"kind"`
	RetryAfterSeconds int        `json:"retryAfterSeconds,omitempty"`
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// faultResponse translates err into a JSON-RPC error. Outside development
// mode only the generic message for the fault kind is exposed.
func faultResponse(id json.RawMessage, err error, dev bool) *Response {
	f := fault.As(err)
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error: &RPCError{
			Code:    f.JSONRPCCode(),
			Message: f.PublicMessage(dev),
			Data: &ErrorData{
				Kind:              f.Kind,
				RetryAfterSeconds: f.RetryAfterSeconds(),
			},
		},
	}
}

// decodeRequest parses a single JSON-RPC message. A malformed message
// yields an error response addressed to the null id.
func decodeRequest(body []byte) (*Request, *Response) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errorResponse(nil, mcp.PARSE_ERROR, "parse error: "+err.Error())
	}
	if req.JSONRPC != jsonrpcVersion {
		return nil, errorResponse(req.ID, mcp.INVALID_REQUEST, `invalid request: jsonrpc must be "2.0"`)
	}
	if req.Method == "" {
		return nil, errorResponse(req.ID, mcp.INVALID_REQUEST, "invalid request: method is required")
	}
	return &req, nil
}
