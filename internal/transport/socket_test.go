package transport_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hedworth/mcpline/internal/protocol"
	"github.com/hedworth/mcpline/internal/transport"
)

// sseTestServer is an httptest server that speaks the socket wire protocol:
// a GET opens the event stream, POSTs to the rebound endpoint carry requests.
type sseTestServer struct {
	*httptest.Server

	mu       sync.Mutex
	posts    []protocol.Message
	events   chan string
	respond  func(msg protocol.Message) (protocol.Message, bool)
	lastAuth string
	postPath string
}

func newSSETestServer(t *testing.T) *sseTestServer {
	t.Helper()

	s := &sseTestServer{
		events:   make(chan string, 16),
		postPath: "/rpc",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.lastAuth = r.Header.Get("Authorization")
		path := s.postPath
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", path)
		flusher.Flush()

		for {
			select {
			case data := <-s.events:
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var msg protocol.Message
		body, _ := io.ReadAll(r.Body)
		if decoded, err := protocol.DecodeFrame(body); err == nil {
			msg = decoded
		}

		s.mu.Lock()
		s.posts = append(s.posts, msg)
		respond := s.respond
		s.mu.Unlock()

		if respond != nil {
			if reply, ok := respond(msg); ok {
				payload, _ := protocol.Encode(reply)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write(payload)
				return
			}
		}
		w.WriteHeader(http.StatusAccepted)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *sseTestServer) streamURL() string { return s.URL + "/stream" }

// push queues one SSE message event.
func (s *sseTestServer) push(msg protocol.Message) {
	payload, _ := protocol.Encode(msg)
	s.events <- string(payload)
}

func (s *sseTestServer) receivedPosts() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Message, len(s.posts))
	copy(out, s.posts)
	return out
}

func connectSocket(t *testing.T, srv *sseTestServer, cfg transport.SocketConfig) *transport.SocketTransport {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = srv.streamURL()
	}
	st := transport.NewSocketTransport(cfg)
	if err := st.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = st.Disconnect() })
	return st
}

func TestSocketTransport_InboundStream(t *testing.T) {
	srv := newSSETestServer(t)
	st := connectSocket(t, srv, transport.SocketConfig{})

	note, _ := protocol.NewNotification("tools/changed", nil)
	srv.push(note)

	select {
	case msg := <-st.Messages():
		if msg.Method != "tools/changed" || !msg.IsNotification() {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream message")
	}
}

func TestSocketTransport_SendPostsToReboundEndpoint(t *testing.T) {
	srv := newSSETestServer(t)
	srv.respond = func(msg protocol.Message) (protocol.Message, bool) {
		reply, _ := protocol.NewResponse(msg.ID, map[string]bool{"ok": true})
		return reply, true
	}
	st := connectSocket(t, srv, transport.SocketConfig{})

	// The endpoint event arrives asynchronously after Connect.
	time.Sleep(100 * time.Millisecond)

	req, _ := protocol.NewRequest("1", "ping", nil)
	if err := st.Send(context.Background(), req); err != nil {
		t.Fatalf("Send: %v", err)
	}

	posts := srv.receivedPosts()
	if len(posts) != 1 || posts[0].Method != "ping" {
		t.Fatalf("expected one ping POST, got %+v", posts)
	}

	// The JSON response body comes back as an inbound message.
	select {
	case msg := <-st.Messages():
		if msg.ID != "1" || !msg.IsResponse() {
			t.Errorf("unexpected inbound message: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for POST response message")
	}
}

func TestSocketTransport_BearerToken(t *testing.T) {
	srv := newSSETestServer(t)
	connectSocket(t, srv, transport.SocketConfig{BearerToken: "sekrit"})

	srv.mu.Lock()
	auth := srv.lastAuth
	srv.mu.Unlock()
	if auth != "Bearer sekrit" {
		t.Errorf("expected bearer header on stream request, got %q", auth)
	}
}

func TestSocketTransport_ConnectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	st := transport.NewSocketTransport(transport.SocketConfig{URL: srv.URL})
	err := st.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect failure")
	}
	var cErr *transport.ConnectError
	if !errors.As(err, &cErr) {
		t.Errorf("expected ConnectError, got %T", err)
	}
}

func TestSocketTransport_ConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	st := transport.NewSocketTransport(transport.SocketConfig{URL: url})
	err := st.Connect(context.Background())
	var cErr *transport.ConnectError
	if !errors.As(err, &cErr) {
		t.Errorf("expected ConnectError for refused connection, got %v", err)
	}
}

func TestSocketTransport_DeliberateDisconnect(t *testing.T) {
	srv := newSSETestServer(t)
	st := connectSocket(t, srv, transport.SocketConfig{})

	if err := st.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	select {
	case info := <-st.Closed():
		if info.Err != nil {
			t.Errorf("deliberate disconnect must not report an error, got %v", info.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for close")
	}

	req, _ := protocol.NewRequest("1", "ping", nil)
	if err := st.Send(context.Background(), req); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after disconnect, got %v", err)
	}
}
