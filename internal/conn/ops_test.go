package conn_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hedworth/mcpline/internal/protocol"
)

func TestPing(t *testing.T) {
	c, st := newConnected(t, []string{"3.0"})
	st.OnSend = func(msg protocol.Message) {
		if msg.IsRequest() && msg.Method == "ping" {
			resp, _ := protocol.NewResponse(msg.ID, struct{}{})
			st.Deliver(resp)
		}
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestListTools(t *testing.T) {
	c, st := newConnected(t, []string{"3.0"})
	st.OnSend = func(msg protocol.Message) {
		if msg.IsRequest() && msg.Method == "tools/list" {
			resp, _ := protocol.NewResponse(msg.ID, map[string]any{
				"tools": []map[string]string{
					{"name": "echo", "description": "Echo input"},
					{"name": "search", "description": "Search things"},
				},
			})
			st.Deliver(resp)
		}
	}

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "echo" || tools[1].Name != "search" {
		t.Errorf("unexpected tools: %+v", tools)
	}
}

func TestCallTool(t *testing.T) {
	c, st := newConnected(t, []string{"3.0"})
	st.OnSend = func(msg protocol.Message) {
		if msg.IsRequest() && msg.Method == "tools/call" {
			var params struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			}
			if err := json.Unmarshal(msg.Params, &params); err != nil || params.Name != "echo" {
				st.Deliver(protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidParams, "bad call"))
				return
			}
			resp, _ := protocol.NewResponse(msg.ID, map[string]any{
				"content": []map[string]string{{"type": "text", "text": "hello"}},
			})
			st.Deliver(resp)
		}
	}

	result, err := c.CallTool(context.Background(), "echo", json.RawMessage(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Error("unexpected IsError")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content block, got %d", len(result.Content))
	}
	var block struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(result.Content[0], &block); err != nil {
		t.Fatalf("unmarshal content block: %v", err)
	}
	if block.Text != "hello" {
		t.Errorf("expected text 'hello', got %q", block.Text)
	}
}

func TestListResources_FeatureGated(t *testing.T) {
	// A 1.0 server has tools but no resources.
	c, _ := newConnected(t, []string{"1.0"})

	_, err := c.ListResources(context.Background())
	if err == nil {
		t.Fatal("expected resources to be rejected at 1.0")
	}
	if !strings.Contains(err.Error(), "does not support resources") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListResources(t *testing.T) {
	c, st := newConnected(t, []string{"2.0"})
	st.OnSend = func(msg protocol.Message) {
		if msg.IsRequest() && msg.Method == "resources/list" {
			resp, _ := protocol.NewResponse(msg.ID, map[string]any{
				"resources": []map[string]string{
					{"uri": "file:///tmp/a.txt", "name": "a", "mimeType": "text/plain"},
				},
			})
			st.Deliver(resp)
		}
	}

	resources, err := c.ListResources(context.Background())
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(resources) != 1 || resources[0].URI != "file:///tmp/a.txt" {
		t.Errorf("unexpected resources: %+v", resources)
	}
}
