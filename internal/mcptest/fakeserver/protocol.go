// Package fakeserver implements a scriptable server for client testing. It
// speaks newline-delimited JSON-RPC over stdin/stdout and can be configured
// to delay, error, crash, or interleave noise into its responses.
package fakeserver

import (
	"encoding/json"
	"io"
	"time"
)

// Config controls the fake server's behavior.
type Config struct {
	// ProtocolVersions is what initialize advertises. Nil means ["2.0"].
	ProtocolVersions []string `json:"protocolVersions"`

	// SingularVersionOnly reports only the legacy protocolVersion field,
	// using the first entry of ProtocolVersions.
	SingularVersionOnly bool `json:"singularVersionOnly"`

	// OmitVersions advertises no version at all; clients are expected to
	// assume the lowest supported version.
	OmitVersions bool `json:"omitVersions"`

	// Tools to return from tools/list.
	Tools []Tool `json:"tools"`

	// Per-method delays. Keep these short (10-50ms) in tests.
	Delays map[string]time.Duration `json:"delays"`

	// Per-method forced error responses.
	Errors map[string]RPCError `json:"errors"`

	// Crash behavior.
	CrashOnMethod     string `json:"crashOnMethod"`
	CrashOnNthRequest int    `json:"crashOnNthRequest"`
	CrashExitCode     int    `json:"crashExitCode"`

	// Stream realism: interleave noise before each response.
	SendNotificationBeforeResponse bool `json:"sendNotificationBeforeResponse"`
	SendMismatchedIDFirst          bool `json:"sendMismatchedIDFirst"`

	// Malformed makes every response invalid JSON.
	Malformed bool `json:"malformed"`

	// EchoToolCalls makes tools/call return the tool name and arguments as
	// a text block.
	EchoToolCalls bool `json:"echoToolCalls"`
}

// Tool is a tool definition returned from tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type initializeResult struct {
	ProtocolVersion  string       `json:"protocolVersion,omitempty"`
	ProtocolVersions []string     `json:"protocolVersions,omitempty"`
	ServerInfo       serverInfo   `json:"serverInfo"`
	Capabilities     capabilities `json:"capabilities"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type capabilities struct {
	Tools map[string]any `json:"tools,omitempty"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type toolCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func writeLine(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out.Write(data)
	out.Write([]byte("\n"))
	return nil
}

// writeResponse writes one newline-framed response, preceded by configured
// stream noise.
func writeResponse(out io.Writer, id json.RawMessage, result any, cfg Config) error {
	if cfg.SendNotificationBeforeResponse {
		writeLine(out, rpcNotification{JSONRPC: "2.0", Method: "test/noise"})
	}
	if cfg.SendMismatchedIDFirst {
		writeLine(out, rpcResponse{JSONRPC: "2.0", ID: json.RawMessage(`"no-such-request"`), Result: json.RawMessage(`{}`)})
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return writeLine(out, rpcResponse{JSONRPC: "2.0", ID: id, Result: resultJSON})
}

func writeErrorResponse(out io.Writer, id json.RawMessage, rpcErr RPCError, cfg Config) error {
	if cfg.SendNotificationBeforeResponse {
		writeLine(out, rpcNotification{JSONRPC: "2.0", Method: "test/noise"})
	}
	if cfg.SendMismatchedIDFirst {
		writeLine(out, rpcResponse{JSONRPC: "2.0", ID: json.RawMessage(`"no-such-request"`), Error: &RPCError{Code: -1, Message: "wrong"}})
	}
	return writeLine(out, rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcErr})
}
