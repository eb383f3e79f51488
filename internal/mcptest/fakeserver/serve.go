package fakeserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Serve runs the fake server, reading newline-framed requests from in and
// writing responses to out. It returns when in reaches EOF.
func Serve(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	reader := bufio.NewReader(in)
	requestCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req rpcRequest
		if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
			return err
		}

		requestCount++

		if cfg.CrashOnNthRequest > 0 && requestCount >= cfg.CrashOnNthRequest {
			os.Exit(cfg.CrashExitCode)
		}
		if cfg.CrashOnMethod != "" && req.Method == cfg.CrashOnMethod {
			os.Exit(cfg.CrashExitCode)
		}

		if delay, ok := cfg.Delays[req.Method]; ok {
			time.Sleep(delay)
		}

		if cfg.Malformed {
			out.Write([]byte("this is not valid json\n"))
			continue
		}

		if req.ID == nil {
			// Notification; nothing to answer.
			continue
		}

		if rpcErr, ok := cfg.Errors[req.Method]; ok {
			writeErrorResponse(out, req.ID, rpcErr, cfg)
			continue
		}

		switch req.Method {
		case "initialize":
			writeResponse(out, req.ID, cfg.initializeResult(), cfg)

		case "ping":
			writeResponse(out, req.ID, struct{}{}, cfg)

		case "tools/list":
			tools := cfg.Tools
			if tools == nil {
				tools = []Tool{}
			}
			writeResponse(out, req.ID, toolsListResult{Tools: tools}, cfg)

		case "tools/call":
			var params toolCallParams
			json.Unmarshal(req.Params, &params)
			if cfg.EchoToolCalls {
				text := fmt.Sprintf("%s(%s)", params.Name, string(params.Arguments))
				writeResponse(out, req.ID, toolCallResult{
					Content: []contentBlock{{Type: "text", Text: text}},
				}, cfg)
			} else {
				writeErrorResponse(out, req.ID, RPCError{Code: -32601, Message: "Method not found"}, cfg)
			}

		default:
			writeErrorResponse(out, req.ID, RPCError{Code: -32601, Message: "Method not found"}, cfg)
		}
	}
}

func (cfg Config) initializeResult() initializeResult {
	result := initializeResult{
		ServerInfo:   serverInfo{Name: "fake-server", Version: "1.0.0"},
		Capabilities: capabilities{Tools: map[string]any{}},
	}
	if cfg.OmitVersions {
		return result
	}

	versions := cfg.ProtocolVersions
	if len(versions) == 0 {
		versions = []string{"2.0"}
	}
	if cfg.SingularVersionOnly {
		result.ProtocolVersion = versions[0]
	} else {
		result.ProtocolVersion = versions[0]
		result.ProtocolVersions = versions
	}
	return result
}
