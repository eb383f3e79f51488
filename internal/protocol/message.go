// Package protocol implements the JSON-RPC 2.0 message model, wire framing,
// and protocol version negotiation shared by all transports.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version of the JSON-RPC envelope. Every message carries it.
const JSONRPCVersion = "2.0"

// Standard JSON-RPC error codes. MethodNotFound is the only code this layer
// emits itself; everything else is passed through from the server verbatim.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Message is a JSON-RPC 2.0 message. Exactly one of three shapes is valid:
//   - Request: ID, Method, and optionally Params are set
//   - Response: ID and either Result or Error are set
//   - Notification: Method is set with no ID
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsRequest reports whether m is a request that expects a response.
func (m Message) IsRequest() bool {
	return m.ID != "" && m.Method != ""
}

// IsResponse reports whether m is a response to an earlier request.
func (m Message) IsResponse() bool {
	return m.ID != "" && m.Method == ""
}

// IsNotification reports whether m is a one-way notification.
func (m Message) IsNotification() bool {
	return m.ID == "" && m.Method != ""
}

// NewRequest builds a request message. Params may be nil.
func NewRequest(id, method string, params any) (Message, error) {
	msg := Message{JSONRPC: JSONRPCVersion, ID: id, Method: method}
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			return Message{}, fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = bs
	}
	return msg, nil
}

// NewNotification builds a notification message. Params may be nil.
func NewNotification(method string, params any) (Message, error) {
	msg := Message{JSONRPC: JSONRPCVersion, Method: method}
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			return Message{}, fmt.Errorf("marshal params: %w", err)
		}
		msg.Params = bs
	}
	return msg, nil
}

// NewResponse builds a success response for the given request id.
func NewResponse(id string, result any) (Message, error) {
	bs, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("marshal result: %w", err)
	}
	return Message{JSONRPC: JSONRPCVersion, ID: id, Result: bs}, nil
}

// NewErrorResponse builds an error response for the given request id.
func NewErrorResponse(id string, code int, message string) Message {
	return Message{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}
