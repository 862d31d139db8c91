package tool

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "customer-support-mcp-server"
	ServerVersion   = "1.0.0"
)

var (
	ErrInvalidParams = errors.New("invalid params")
	ErrUnknownTool   = errors.New("tool not found")
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    map[string]any     `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

// callResult mirrors the content block of a tools/call result on the client side.
type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func errorResponse(id json.RawMessage, code int, msg string) Response {
	return Response{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      normalizeID(id),
		Error:   &RPCError{Code: code, Message: msg},
	}
}

func resultResponse(id json.RawMessage, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, mcp.INTERNAL_ERROR, "Tool execution error: "+err.Error())
	}
	return Response{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      normalizeID(id),
		Result:  raw,
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
