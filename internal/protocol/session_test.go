package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"relay/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLine struct {
	direction api.Direction
	payload   string
}

type fakeRecorder struct {
	mu    sync.Mutex
	lines []recordedLine
}

func (f *fakeRecorder) Record(serverID string, direction api.Direction, payload []byte) api.UsageSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, recordedLine{direction, string(payload)})
	return api.UsageSnapshot{ServerID: serverID}
}

func (f *fakeRecorder) count(direction api.Direction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.lines {
		if l.direction == direction {
			n++
		}
	}
	return n
}

type peerRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// peer answers requests written by a Session. handle writes raw lines to out.
type peer struct {
	mu       sync.Mutex
	requests []peerRequest
}

func (p *peer) received() []peerRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]peerRequest(nil), p.requests...)
}

func newPipeSession(t *testing.T, opts Options, rec Recorder, handle func(req peerRequest, out io.WriteCloser)) (*Session, *peer) {
	t.Helper()

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	p := &peer{}

	go func() {
		scanner := bufio.NewScanner(stdinR)
		for scanner.Scan() {
			var req peerRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			p.mu.Lock()
			p.requests = append(p.requests, req)
			p.mu.Unlock()
			handle(req, stdoutW)
		}
	}()

	s := NewSession("test-server", stdinW, stdoutR, opts, rec)
	t.Cleanup(func() {
		s.Close()
		stdinW.Close()
		stdinR.Close()
		stdoutR.Close()
		stdoutW.Close()
	})
	return s, p
}

func respond(out io.Writer, id json.RawMessage, result string) {
	fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s,"result":%s}`+"\n", id, result)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.LineWait = 20 * time.Millisecond
	opts.InitTimeout = 2 * time.Second
	opts.ListTimeout = 2 * time.Second
	opts.CallTimeout = 2 * time.Second
	return opts
}

const initResult = `{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"fake","version":"0.1.0"}}`

func standardHandler(toolsResult string) func(peerRequest, io.WriteCloser) {
	return func(req peerRequest, out io.WriteCloser) {
		switch req.Method {
		case MethodInitialize:
			fmt.Fprintln(out, "fake server v0.1.0 starting")
			respond(out, req.ID, initResult)
		case MethodToolsList:
			respond(out, req.ID, toolsResult)
		case MethodToolsCall:
			respond(out, req.ID, `{"content":[{"type":"text","text":"pong"}]}`)
		}
	}
}

func TestSession_FullHandshake(t *testing.T) {
	rec := &fakeRecorder{}
	s, p := newPipeSession(t, testOptions(), rec, standardHandler(
		`{"tools":[{"name":"read_file","description":"Read a file","inputSchema":{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}}]}`))

	ctx := context.Background()
	assert.Equal(t, StateSpawned, s.State())
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, StateInitialized, s.State())

	result, err := s.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "read_file", result.Tools[0].Name)
	assert.Equal(t, []string{"path"}, result.Tools[0].InputSchema.Required)
	assert.Equal(t, StateInitialized, s.State())

	reqs := p.received()
	require.Len(t, reqs, 3)
	assert.Equal(t, MethodInitialize, reqs[0].Method)
	assert.Equal(t, "1", string(reqs[0].ID))
	assert.Equal(t, MethodInitialized, reqs[1].Method)
	assert.Empty(t, reqs[1].ID, "notifications carry no id")
	assert.Equal(t, MethodToolsList, reqs[2].Method)
	assert.Equal(t, "2", string(reqs[2].ID))

	var params InitializeParams
	require.NoError(t, json.Unmarshal(reqs[0].Params, &params))
	assert.Equal(t, "2024-11-05", params.ProtocolVersion)
	assert.Equal(t, "Relay-Inspector", params.ClientInfo.Name)
	assert.Equal(t, "1.0.0", params.ClientInfo.Version)

	assert.Equal(t, 3, rec.count(api.Outbound))
	assert.Equal(t, 3, rec.count(api.Inbound), "banner, initialize response and tools response")
}

func TestSession_CallTool(t *testing.T) {
	s, p := newPipeSession(t, testOptions(), nil, standardHandler(`{"tools":[]}`))
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	result, err := s.CallTool(ctx, "ping", map[string]any{"count": 1})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Equal(t, "pong", text.Text)

	reqs := p.received()
	var params CallToolParams
	require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Params, &params))
	assert.Equal(t, "ping", params.Name)
	assert.Equal(t, float64(1), params.Arguments["count"])
}

func TestSession_CallToolLargeResult(t *testing.T) {
	payload := strings.Repeat("A", 3<<20)
	s, _ := newPipeSession(t, testOptions(), nil, func(req peerRequest, out io.WriteCloser) {
		switch req.Method {
		case MethodInitialize:
			respond(out, req.ID, initResult)
		case MethodToolsCall:
			// CRLF terminated to check both line endings are accepted.
			fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s,"result":{"content":[{"type":"text","text":%q}]}}`+"\r\n", req.ID, payload)
		}
	})
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	result, err := s.CallTool(ctx, "read_file", map[string]any{"path": "/tmp/big"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Len(t, text.Text, len(payload))
	assert.Equal(t, StateInitialized, s.State())
}

func TestTrimNewline(t *testing.T) {
	assert.Equal(t, "a", string(trimNewline([]byte("a\n"))))
	assert.Equal(t, "a", string(trimNewline([]byte("a\r\n"))))
	assert.Equal(t, "a", string(trimNewline([]byte("a"))))
}

func noiseHandler(k int, blank bool) func(peerRequest, io.WriteCloser) {
	noise := []string{
		"npm WARN deprecated something@1.0.0",
		`{"level":"info","msg":"listening"}`,
		"[1,2,3]",
		"Server ready on stdio",
	}
	return func(req peerRequest, out io.WriteCloser) {
		for i := 0; i < k; i++ {
			if blank {
				fmt.Fprintln(out, "   ")
			} else {
				fmt.Fprintln(out, noise[i%len(noise)])
			}
		}
		respond(out, req.ID, `{"tools":[]}`)
	}
}

func TestSession_AttemptBudget(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		blank   bool
		wantErr bool
	}{
		{"no noise", 0, false, false},
		{"19 noise lines", 19, false, false},
		{"20 noise lines", 20, false, true},
		{"21 noise lines", 21, false, true},
		{"19 blank lines", 19, true, false},
		{"20 blank lines", 20, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.AttemptBudget = 20
			s, _ := newPipeSession(t, opts, nil, noiseHandler(tt.k, tt.blank))

			resp, err := s.Exchange(context.Background(), MethodToolsList, nil, 2*time.Second)
			if tt.wantErr {
				var timeout *api.TimeoutError
				require.ErrorAs(t, err, &timeout)
				assert.Equal(t, 20, timeout.Attempts)
				assert.Equal(t, StateClosed, s.State())
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
		})
	}
}

func TestSession_StreamClosed(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, func(req peerRequest, out io.WriteCloser) {
		fmt.Fprintln(out, "fatal: missing configuration")
		out.Close()
	})

	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsStreamClosed(err))
	assert.Equal(t, StateClosed, s.State())

	_, err = s.ListTools(context.Background())
	assert.Error(t, err)
}

func TestSession_ReadError(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	defer stdinR.Close()
	go io.Copy(io.Discard, stdinR)

	s := NewSession("broken", stdinW, stdoutR, testOptions(), nil)
	defer s.Close()
	stdoutW.CloseWithError(errors.New("device gone"))

	_, err := s.Exchange(context.Background(), MethodToolsList, nil, time.Second)
	var streamErr *api.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "read", streamErr.Op)
	assert.ErrorContains(t, err, "device gone")
}

func TestSession_WriteError(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdinR.Close()
	stdoutR, _ := io.Pipe()
	defer stdoutR.Close()

	s := NewSession("broken", stdinW, stdoutR, testOptions(), nil)
	defer s.Close()

	err := s.Initialize(context.Background())
	var streamErr *api.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "write", streamErr.Op)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_ProtocolError(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, func(req peerRequest, out io.WriteCloser) {
		switch req.Method {
		case MethodInitialize:
			respond(out, req.ID, initResult)
		case MethodToolsCall:
			fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32602,"message":"Unknown tool: nope"}}`+"\n", req.ID)
		}
	})

	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	_, err := s.CallTool(ctx, "nope", nil)
	var protoErr *api.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, -32602, protoErr.Code)
	assert.Equal(t, "Unknown tool: nope", protoErr.Message)
	assert.Equal(t, MethodToolsCall, protoErr.Method)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_InitializeError(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, func(req peerRequest, out io.WriteCloser) {
		fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32600,"message":"unsupported protocol version"}}`+"\n", req.ID)
	})

	err := s.Initialize(context.Background())
	assert.True(t, api.IsProtocolError(err))
}

func TestSession_PhaseDeadline(t *testing.T) {
	opts := testOptions()
	opts.LineWait = 10 * time.Millisecond
	opts.InitTimeout = 80 * time.Millisecond
	s, _ := newPipeSession(t, opts, nil, func(peerRequest, io.WriteCloser) {})

	start := time.Now()
	err := s.Initialize(context.Background())

	var timeout *api.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, MethodInitialize, timeout.Phase)
	assert.Equal(t, 80*time.Millisecond, timeout.After)
	assert.Zero(t, timeout.Attempts)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSession_ContextCancelled(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, func(peerRequest, io.WriteCloser) {})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	err := s.Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_DefaultResults(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, func(req peerRequest, out io.WriteCloser) {
		if req.Method == MethodInitialize {
			respond(out, req.ID, initResult)
			return
		}
		fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s}`+"\n", req.ID)
	})

	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	tools, err := s.ListTools(ctx)
	require.NoError(t, err)
	assert.NotNil(t, tools.Tools)
	assert.Empty(t, tools.Tools)

	result, err := s.CallTool(ctx, "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Content)
}

func TestSession_ParseError(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, standardHandler(`{"tools":"not-a-list"}`))

	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	_, err := s.ListTools(ctx)
	var parseErr *api.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, MethodToolsList, parseErr.Method)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_StateGuards(t *testing.T) {
	s, _ := newPipeSession(t, testOptions(), nil, standardHandler(`{"tools":[]}`))
	ctx := context.Background()

	_, err := s.ListTools(ctx)
	assert.ErrorContains(t, err, "state spawned")

	require.NoError(t, s.Initialize(ctx))
	assert.ErrorContains(t, s.Initialize(ctx), "state initialized")

	s.Close()
	_, err = s.Exchange(ctx, MethodToolsList, nil, time.Second)
	assert.True(t, api.IsStreamClosed(err))
	assert.True(t, api.IsStreamClosed(s.Notify("notifications/cancelled", nil)))
}

func TestIsProtocolLine(t *testing.T) {
	assert.True(t, isProtocolLine([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)))
	assert.True(t, isProtocolLine([]byte(`{"jsonrpc":null}`)))
	assert.False(t, isProtocolLine([]byte(`{"id":1,"result":{}}`)))
	assert.False(t, isProtocolLine([]byte(`[{"jsonrpc":"2.0"}]`)))
	assert.False(t, isProtocolLine([]byte(strings.Repeat("x", 10))))
}
