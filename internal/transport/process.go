package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hedworth/mcpline/internal/protocol"
)

const (
	// GracefulShutdownTimeout is how long Disconnect waits after SIGTERM
	// before escalating to SIGKILL.
	GracefulShutdownTimeout = 5 * time.Second

	// stderrTailLines bounds the retained diagnostic output.
	stderrTailLines = 200
)

// ProcessConfig parameterizes a child-process transport.
type ProcessConfig struct {
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string
	Logger  *slog.Logger

	// OnStderrLine, when set, is called for each diagnostic line the child
	// writes to stderr. Called from the transport's stderr goroutine.
	OnStderrLine func(line string)
}

// ProcessTransport runs a server as a child process and exchanges
// newline-delimited JSON over its stdin/stdout. Stderr is diagnostic text
// only: it is logged and retained in a bounded tail, never parsed as
// protocol data.
type ProcessTransport struct {
	cfg    ProcessConfig
	logger *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	msgs   chan protocol.Message
	closed chan CloseInfo
	done   chan struct{}

	mu        sync.Mutex
	started   bool
	down      bool
	stderr    []string
	closeOnce sync.Once
}

// NewProcessTransport creates a process transport. It does not start the
// process; call Connect.
func NewProcessTransport(cfg ProcessConfig) *ProcessTransport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessTransport{
		cfg:    cfg,
		logger: logger.With("transport", "process", "command", cfg.Command),
		msgs:   make(chan protocol.Message, 64),
		closed: make(chan CloseInfo, 1),
		done:   make(chan struct{}),
	}
}

// Connect spawns the child process and wires its standard streams.
func (t *ProcessTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyConnected
	}

	cmd := exec.Command(t.cfg.Command, t.cfg.Args...)
	cmd.Dir = t.cfg.Cwd
	cmd.Env = buildEnv(t.cfg.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &ConnectError{Target: t.cfg.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ConnectError{Target: t.cfg.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ConnectError{Target: t.cfg.Command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &ConnectError{Target: t.cfg.Command, Err: err}
	}

	t.cmd = cmd
	t.stdin = stdin
	t.started = true
	t.logger.Debug("process started", "pid", cmd.Process.Pid)

	go t.readLoop(stdout)
	go t.readStderr(stderr)
	go t.wait()

	return nil
}

// Send writes one newline-terminated JSON message to the child's stdin.
func (t *ProcessTransport) Send(ctx context.Context, msg protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started || t.down {
		return ErrNotConnected
	}

	line, err := protocol.EncodeLine(msg)
	if err != nil {
		return err
	}
	if _, err := t.stdin.Write(line); err != nil {
		return err
	}
	return nil
}

// Messages returns the inbound message stream.
func (t *ProcessTransport) Messages() <-chan protocol.Message {
	return t.msgs
}

// Closed returns the channel that reports process exit.
func (t *ProcessTransport) Closed() <-chan CloseInfo {
	return t.closed
}

// Disconnect terminates the child process: SIGTERM, then SIGKILL after a
// grace period. A no-op if the process is already gone.
func (t *ProcessTransport) Disconnect() error {
	t.mu.Lock()
	if !t.started || t.down {
		t.mu.Unlock()
		return nil
	}
	t.down = true
	stdin := t.stdin
	proc := t.cmd.Process
	t.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if proc != nil {
		_ = proc.Signal(syscall.SIGTERM)
		select {
		case <-t.done:
		case <-time.After(GracefulShutdownTimeout):
			t.logger.Warn("process did not exit after SIGTERM, killing")
			_ = proc.Signal(syscall.SIGKILL)
			<-t.done
		}
	}
	return nil
}

// StderrTail returns the most recent diagnostic lines from the child.
func (t *ProcessTransport) StderrTail() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	tail := make([]string, len(t.stderr))
	copy(tail, t.stderr)
	return tail
}

// PID returns the child process id, or 0 before Connect.
func (t *ProcessTransport) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

func (t *ProcessTransport) readLoop(stdout io.Reader) {
	defer close(t.msgs)

	dec := protocol.NewStreamDecoder(t.logger)
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			for _, msg := range dec.Feed(buf[:n]) {
				t.msgs <- msg
			}
		}
		if err != nil {
			return
		}
	}
}

func (t *ProcessTransport) readStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		t.logger.Debug("server stderr", "line", line)

		t.mu.Lock()
		t.stderr = append(t.stderr, line)
		if len(t.stderr) > stderrTailLines {
			t.stderr = t.stderr[len(t.stderr)-stderrTailLines:]
		}
		t.mu.Unlock()

		if t.cfg.OnStderrLine != nil {
			t.cfg.OnStderrLine(line)
		}
	}
}

func (t *ProcessTransport) wait() {
	err := t.cmd.Wait()

	exitCode := -1
	if t.cmd.ProcessState != nil {
		exitCode = t.cmd.ProcessState.ExitCode()
	}

	t.mu.Lock()
	wasDisconnect := t.down
	t.down = true
	t.mu.Unlock()

	info := CloseInfo{ExitCode: exitCode}
	if err != nil && !wasDisconnect {
		info.Err = err
	}

	t.closeOnce.Do(func() {
		close(t.done)
		t.closed <- info
	})
	t.logger.Debug("process exited", "code", exitCode, "err", err)
}

// buildEnv creates the child environment: the current environment with common
// binary locations prepended to PATH, then per-server overrides applied.
func buildEnv(custom map[string]string) []string {
	env := os.Environ()

	pathDirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
	}
	for i, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			env[i] = "PATH=" + strings.Join(pathDirs, ":") + ":" + strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	for k, v := range custom {
		prefix := k + "="
		found := false
		for i, e := range env {
			if strings.HasPrefix(e, prefix) {
				env[i] = k + "=" + v
				found = true
				break
			}
		}
		if !found {
			env = append(env, k+"="+v)
		}
	}
	return env
}
