package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"relay/internal/api"
	"relay/internal/config"
	"relay/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Recorder observes every line a session writes or reads.
type Recorder interface {
	Record(serverID string, direction api.Direction, payload []byte) api.UsageSnapshot
}

// Options configure a Session.
type Options struct {
	ProtocolVersion string
	ClientInfo      mcp.Implementation
	AttemptBudget   int
	LineWait        time.Duration
	InitTimeout     time.Duration
	ListTimeout     time.Duration
	CallTimeout     time.Duration
}

// OptionsFromConfig converts the protocol section of the configuration.
func OptionsFromConfig(cfg config.ProtocolConfig) Options {
	return Options{
		ProtocolVersion: cfg.ProtocolVersion,
		ClientInfo: mcp.Implementation{
			Name:    cfg.ClientName,
			Version: cfg.ClientVersion,
		},
		AttemptBudget: cfg.AttemptBudget,
		LineWait:      cfg.LineWait,
		InitTimeout:   cfg.InitTimeout,
		ListTimeout:   cfg.ListTimeout,
		CallTimeout:   cfg.CallTimeout,
	}
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultProtocolConfig())
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ProtocolVersion == "" {
		o.ProtocolVersion = d.ProtocolVersion
	}
	if o.ClientInfo.Name == "" {
		o.ClientInfo = d.ClientInfo
	}
	if o.AttemptBudget <= 0 {
		o.AttemptBudget = d.AttemptBudget
	}
	if o.LineWait <= 0 {
		o.LineWait = d.LineWait
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = d.InitTimeout
	}
	if o.ListTimeout <= 0 {
		o.ListTimeout = d.ListTimeout
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	return o
}

type lineResult struct {
	line []byte
	err  error
}

// Session runs request/response exchanges over a server's stdin and stdout.
// Only one request is outstanding at a time and responses are matched by
// arrival order.
type Session struct {
	serverID string
	opts     Options
	recorder Recorder

	mu     sync.Mutex
	w      io.Writer
	state  State
	nextID int64

	lines     chan lineResult
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession starts reading r in the background. The caller owns w and r and
// must close them (usually by terminating the process) once the session is
// closed. recorder may be nil.
func NewSession(serverID string, w io.Writer, r io.Reader, opts Options, recorder Recorder) *Session {
	s := &Session{
		serverID: serverID,
		opts:     opts.withDefaults(),
		recorder: recorder,
		w:        w,
		state:    StateSpawned,
		nextID:   1,
		lines:    make(chan lineResult),
		done:     make(chan struct{}),
	}
	go s.readLoop(r)
	return s
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.lines)

	// Lines are not length limited: tool results may carry whole files.
	br := bufio.NewReader(r)
	var err error
	for {
		var line []byte
		line, err = br.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case s.lines <- lineResult{line: trimNewline(line)}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			break
		}
	}
	select {
	case s.lines <- lineResult{err: err}:
	case <-s.done:
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close marks the session closed and stops the reader from delivering lines.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) fail(err error) error {
	s.state = StateClosed
	s.closeOnce.Do(func() { close(s.done) })
	return err
}

// Initialize sends initialize, discards its response and announces
// notifications/initialized.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSpawned {
		return fmt.Errorf("cannot initialize session in state %s", s.state)
	}
	s.state = StateInitializing

	params := InitializeParams{
		ProtocolVersion: s.opts.ProtocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      s.opts.ClientInfo,
	}
	if _, err := s.exchangeLocked(ctx, MethodInitialize, params, s.opts.InitTimeout); err != nil {
		return err
	}
	if err := s.notifyLocked(MethodInitialized, nil); err != nil {
		return err
	}
	s.state = StateInitialized
	logging.Debug("Protocol", "Session for %s initialized", s.serverID)
	return nil
}

// ListTools issues tools/list on an initialized session.
func (s *Session) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	raw, err := s.domainRequest(ctx, StateListing, MethodToolsList, nil, s.opts.ListTimeout, emptyToolsResult)
	if err != nil {
		return nil, err
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, s.failParse(MethodToolsList, err)
	}
	if result.Tools == nil {
		result.Tools = []mcp.Tool{}
	}
	return &result, nil
}

// CallTool issues tools/call on an initialized session.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	params := CallToolParams{Name: name, Arguments: args}
	raw, err := s.domainRequest(ctx, StateCalling, MethodToolsCall, params, s.opts.CallTimeout, emptyContentResult)
	if err != nil {
		return nil, err
	}
	result, err := mcp.ParseCallToolResult(&raw)
	if err != nil {
		return nil, s.failParse(MethodToolsCall, err)
	}
	return result, nil
}

func (s *Session) failParse(method string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail(&api.ParseError{Method: method, Err: err})
}

func (s *Session) domainRequest(ctx context.Context, busy State, method string, params any, timeout time.Duration, empty json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitialized {
		return nil, fmt.Errorf("cannot send %s in state %s", method, s.state)
	}
	s.state = busy
	resp, err := s.exchangeLocked(ctx, method, params, timeout)
	if err != nil {
		return nil, err
	}
	s.state = StateInitialized

	if len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return empty, nil
	}
	return resp.Result, nil
}

// Exchange writes one request and waits for the next protocol line. A peer
// error object is returned as *api.ProtocolError.
func (s *Session) Exchange(ctx context.Context, method string, params any, phaseTimeout time.Duration) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil, &api.StreamError{Op: "write", Err: api.ErrStreamClosed}
	}
	return s.exchangeLocked(ctx, method, params, phaseTimeout)
}

func (s *Session) exchangeLocked(ctx context.Context, method string, params any, phaseTimeout time.Duration) (*Response, error) {
	id := s.nextID
	s.nextID++

	if err := s.writeLocked(Request{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	resp, err := s.readResponseLocked(ctx, method, phaseTimeout)
	if err != nil {
		return nil, s.fail(err)
	}
	if resp.Error != nil {
		return nil, s.fail(&api.ProtocolError{
			Method:  method,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		})
	}
	return resp, nil
}

// Notify sends a notification. No response is read.
func (s *Session) Notify(method string, params any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return &api.StreamError{Op: "write", Err: api.ErrStreamClosed}
	}
	return s.notifyLocked(method, params)
}

func (s *Session) notifyLocked(method string, params any) error {
	return s.writeLocked(Notification{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}

func (s *Session) writeLocked(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return s.fail(fmt.Errorf("failed to encode message: %w", err))
	}
	if _, err := s.w.Write(append(payload, '\n')); err != nil {
		return s.fail(&api.StreamError{Op: "write", Err: err})
	}
	if s.recorder != nil {
		s.recorder.Record(s.serverID, api.Outbound, payload)
	}
	return nil
}

// readResponseLocked skips non-protocol lines until the first line carrying
// the jsonrpc member. Every line read, blank or not, consumes one attempt.
// Idle waits do not, but the phase deadline is checked on each of them.
func (s *Session) readResponseLocked(ctx context.Context, method string, phaseTimeout time.Duration) (*Response, error) {
	start := time.Now()
	deadline := start.Add(phaseTimeout)
	timer := time.NewTimer(s.opts.LineWait)
	defer timer.Stop()

	attempts := 0
	for attempts < s.opts.AttemptBudget {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &api.TimeoutError{Phase: method, After: phaseTimeout, Attempts: attempts}
		}
		timer.Reset(min(s.opts.LineWait, remaining))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", method, ctx.Err())

		case <-timer.C:
			continue

		case lr, ok := <-s.lines:
			if !ok || errors.Is(lr.err, io.EOF) {
				return nil, &api.StreamError{Op: "read", Err: api.ErrStreamClosed}
			}
			if lr.err != nil {
				return nil, &api.StreamError{Op: "read", Err: lr.err}
			}
			attempts++

			line := bytes.TrimSpace(lr.line)
			if len(line) == 0 {
				continue
			}
			if s.recorder != nil {
				s.recorder.Record(s.serverID, api.Inbound, lr.line)
			}
			if !isProtocolLine(line) {
				logging.Debug("Protocol", "Skipping non-protocol line from %s during %s", s.serverID, method)
				continue
			}

			var resp Response
			if err := json.Unmarshal(line, &resp); err != nil {
				return nil, &api.ParseError{Method: method, Err: err}
			}
			return &resp, nil
		}
	}
	return nil, &api.TimeoutError{Phase: method, Attempts: attempts}
}
