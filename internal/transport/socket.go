package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tmaxmax/go-sse"

	"github.com/hedworth/mcpline/internal/protocol"
)

// MaxEventSize bounds a single inbound SSE event (1MB).
const MaxEventSize = 1024 * 1024

// SocketConfig parameterizes a socket transport.
type SocketConfig struct {
	// URL is the server's event-stream endpoint.
	URL string

	// Headers are static headers sent on every request.
	Headers map[string]string

	// BearerToken is attached as an Authorization header when set.
	BearerToken string

	// BearerTokenProvider resolves a token per request; takes precedence
	// over BearerToken.
	BearerTokenProvider func(context.Context) (string, error)

	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	// The client's Timeout must not apply to the long-lived event stream,
	// so a zero-timeout copy is used for the GET.
	Client *http.Client

	Logger *slog.Logger
}

// SocketTransport connects to a URL-addressed server: a long-lived SSE stream
// carries inbound messages (one frame per event), outbound messages are HTTP
// POSTs. An "endpoint" event from the server rebinds the POST URL; each
// "message" event is parsed independently and bad frames are dropped with a
// warning.
type SocketTransport struct {
	cfg       SocketConfig
	logger    *slog.Logger
	sseClient *http.Client
	rpcClient *http.Client

	msgs   chan protocol.Message
	closed chan CloseInfo

	cancel context.CancelFunc
	body   io.ReadCloser

	mu         sync.Mutex
	started    bool
	down       bool
	messageURL string
	closeOnce  sync.Once
}

// NewSocketTransport creates a socket transport bound to cfg.URL.
func NewSocketTransport(cfg SocketConfig) *SocketTransport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Client
	if base == nil {
		base = http.DefaultClient
	}
	streamClient := &http.Client{}
	*streamClient = *base
	streamClient.Timeout = 0

	return &SocketTransport{
		cfg:       cfg,
		logger:    logger.With("transport", "socket", "url", cfg.URL),
		sseClient: streamClient,
		rpcClient: base,
		msgs:      make(chan protocol.Message, 64),
		closed:    make(chan CloseInfo, 1),
	}
}

// Connect opens the event stream. A refused or non-200 open is a connect
// failure, never a later close event.
func (t *SocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.mu.Unlock()

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.cfg.URL, nil)
	if err != nil {
		cancel()
		return &ConnectError{Target: t.cfg.URL, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	if err := t.setCommonHeaders(ctx, req); err != nil {
		cancel()
		return &ConnectError{Target: t.cfg.URL, Err: err}
	}

	resp, err := t.sseClient.Do(req)
	if err != nil {
		cancel()
		return &ConnectError{Target: t.cfg.URL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		cancel()
		return &ConnectError{
			Target: t.cfg.URL,
			Err:    fmt.Errorf("unexpected status %s: %s", resp.Status, string(body)),
		}
	}

	t.mu.Lock()
	t.started = true
	t.cancel = cancel
	t.body = resp.Body
	t.messageURL = t.cfg.URL
	t.mu.Unlock()

	go t.readLoop(resp.Body)
	return nil
}

// Send POSTs one JSON message to the message endpoint. A JSON body in the
// response is queued as an inbound message so request/response servers work
// without a separate stream.
func (t *SocketTransport) Send(ctx context.Context, msg protocol.Message) error {
	t.mu.Lock()
	if !t.started || t.down {
		t.mu.Unlock()
		return ErrNotConnected
	}
	postURL := t.messageURL
	t.mu.Unlock()

	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if err := t.setCommonHeaders(ctx, req); err != nil {
		return err
	}

	resp, err := t.rpcClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send failed: %s - %s", resp.Status, string(body))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			reply, err := protocol.DecodeFrame(data)
			if err != nil {
				t.logger.Warn("dropping invalid response frame", "err", err)
				return nil
			}
			t.enqueue(reply)
		}
	}
	return nil
}

// Messages returns the inbound message stream.
func (t *SocketTransport) Messages() <-chan protocol.Message {
	return t.msgs
}

// Closed returns the channel that reports stream termination.
func (t *SocketTransport) Closed() <-chan CloseInfo {
	return t.closed
}

// Disconnect closes the event stream. A no-op when already down.
func (t *SocketTransport) Disconnect() error {
	t.mu.Lock()
	if !t.started || t.down {
		t.mu.Unlock()
		return nil
	}
	t.down = true
	cancel := t.cancel
	body := t.body
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		_ = body.Close()
	}
	t.deliverClose(CloseInfo{ExitCode: -1})
	return nil
}

func (t *SocketTransport) readLoop(body io.ReadCloser) {
	defer body.Close()

	cfg := &sse.ReadConfig{MaxEventSize: MaxEventSize}
	var streamErr error

	for ev, err := range sse.Read(body, cfg) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				streamErr = err
			}
			break
		}

		switch ev.Type {
		case "endpoint":
			t.rebindEndpoint(ev.Data)
		case "", "message":
			msg, err := protocol.DecodeFrame([]byte(ev.Data))
			if err != nil {
				t.logger.Warn("dropping invalid frame", "err", err)
				continue
			}
			t.enqueue(msg)
		default:
			t.logger.Warn("ignoring unknown event type", "type", ev.Type)
		}
	}

	t.mu.Lock()
	wasDisconnect := t.down
	t.down = true
	t.mu.Unlock()

	info := CloseInfo{ExitCode: -1}
	if streamErr != nil && !wasDisconnect {
		info.Err = streamErr
	}
	t.deliverClose(info)
}

// rebindEndpoint resolves a server-provided message endpoint against the
// stream URL so relative paths work.
func (t *SocketTransport) rebindEndpoint(raw string) {
	base, err := url.Parse(t.cfg.URL)
	if err != nil {
		return
	}
	ep, err := url.Parse(raw)
	if err != nil || ep.String() == "" {
		t.logger.Warn("ignoring invalid endpoint event", "endpoint", raw)
		return
	}
	resolved := base.ResolveReference(ep).String()

	t.mu.Lock()
	t.messageURL = resolved
	t.mu.Unlock()
	t.logger.Debug("message endpoint rebound", "endpoint", resolved)
}

func (t *SocketTransport) enqueue(msg protocol.Message) {
	t.mu.Lock()
	down := t.down
	t.mu.Unlock()
	if down {
		return
	}
	t.msgs <- msg
}

func (t *SocketTransport) deliverClose(info CloseInfo) {
	t.closeOnce.Do(func() {
		t.closed <- info
	})
}

func (t *SocketTransport) setCommonHeaders(ctx context.Context, req *http.Request) error {
	if t.cfg.BearerTokenProvider != nil {
		token, err := t.cfg.BearerTokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("resolve bearer token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	} else if t.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	}
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	return nil
}
