package conn

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool describes a tool advertised by the server.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a tool call.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one block of tool output. Raw JSON is preserved so
// non-text content types pass through untouched.
type ContentBlock json.RawMessage

// MarshalJSON implements json.Marshaler.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	return json.RawMessage(c), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	*c = ContentBlock(data)
	return nil
}

// Ping checks that the server is responsive.
func (c *Conn) Ping(ctx context.Context) error {
	if _, err := c.SendRequest(ctx, "ping", struct{}{}); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ListTools retrieves the tools the server advertises.
func (c *Conn) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.Supports("tools") {
		return nil, fmt.Errorf("server %s: negotiated version %s does not support tools", c.server, c.NegotiatedVersion())
	}
	raw, err := c.SendRequest(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("tools/list: malformed result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a named tool with raw JSON arguments.
func (c *Conn) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*ToolResult, error) {
	if !c.Supports("tools") {
		return nil, fmt.Errorf("server %s: negotiated version %s does not support tools", c.server, c.NegotiatedVersion())
	}
	raw, err := c.SendRequest(ctx, "tools/call", toolCallParams{Name: name, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("tools/call %s: malformed result: %w", name, err)
	}
	return &result, nil
}

// ListResources retrieves the resources the server advertises. Requires a
// protocol version with resource support.
func (c *Conn) ListResources(ctx context.Context) ([]Resource, error) {
	if !c.Supports("resources") {
		return nil, fmt.Errorf("server %s: negotiated version %s does not support resources", c.server, c.NegotiatedVersion())
	}
	raw, err := c.SendRequest(ctx, "resources/list", nil)
	if err != nil {
		return nil, fmt.Errorf("resources/list: %w", err)
	}
	var result resourcesListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("resources/list: malformed result: %w", err)
	}
	return result.Resources, nil
}

// Resource describes a resource advertised by the server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourcesListResult struct {
	Resources []Resource `json:"resources"`
}
