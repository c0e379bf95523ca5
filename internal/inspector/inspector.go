package inspector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"relay/internal/api"
	"relay/internal/protocol"
	"relay/internal/secrets"
	"relay/internal/supervisor"
	"relay/pkg/logging"
)

const (
	defaultTerminateGrace = 2 * time.Second

	// exitSettle is how long to wait for the reaper after a stream failed,
	// so an exit code can be reported.
	exitSettle = 500 * time.Millisecond
)

// DefinitionGetter loads a server definition by id.
type DefinitionGetter interface {
	GetServer(ctx context.Context, id string) (api.ServerDefinition, error)
}

// Config wires an Inspector. Recorder may be nil.
type Config struct {
	Definitions    DefinitionGetter
	Injector       *secrets.Injector
	Options        protocol.Options
	Recorder       protocol.Recorder
	TerminateGrace time.Duration
}

// Inspector runs ephemeral sessions against server definitions.
type Inspector struct {
	definitions DefinitionGetter
	injector    *secrets.Injector
	opts        protocol.Options
	recorder    protocol.Recorder
	grace       time.Duration

	launch func(supervisor.LaunchSpec) (*supervisor.Process, error)
}

// New creates an Inspector.
func New(cfg Config) *Inspector {
	grace := cfg.TerminateGrace
	if grace <= 0 {
		grace = defaultTerminateGrace
	}
	injector := cfg.Injector
	if injector == nil {
		injector = secrets.NewInjector(secrets.NewMemoryVault(), secrets.PolicyFailOpen)
	}
	return &Inspector{
		definitions: cfg.Definitions,
		injector:    injector,
		opts:        cfg.Options,
		recorder:    cfg.Recorder,
		grace:       grace,
		launch:      supervisor.Launch,
	}
}

// ListTools returns the tool catalog of server id.
func (i *Inspector) ListTools(ctx context.Context, id string) (*mcp.ListToolsResult, error) {
	def, err := i.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	var result *mcp.ListToolsResult
	_, err = i.Launch(ctx, def, LaunchOptions{}, func(ctx context.Context, s *protocol.Session) error {
		var err error
		result, err = s.ListTools(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallTool invokes tool name of server id with args.
func (i *Inspector) CallTool(ctx context.Context, id, name string, args map[string]any) (*mcp.CallToolResult, error) {
	def, err := i.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	var result *mcp.CallToolResult
	_, err = i.Launch(ctx, def, LaunchOptions{}, func(ctx context.Context, s *protocol.Session) error {
		var err error
		result, err = s.CallTool(ctx, name, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (i *Inspector) lookup(ctx context.Context, id string) (api.ServerDefinition, error) {
	if i.definitions == nil {
		return api.ServerDefinition{}, errors.New("inspector has no definition source")
	}
	return i.definitions.GetServer(ctx, id)
}

// LaunchOptions tune a single Launch.
type LaunchOptions struct {
	// Stderr receives every line the server writes to stderr.
	Stderr func(line string)
}

// LaunchResult describes the private process after the launch.
type LaunchResult struct {
	Pid int
	// Exited is true when the server exited before it was terminated.
	Exited   bool
	ExitCode int
}

// Launch starts def privately, initializes a session and runs fn on it.
// fn may be nil to stop after the handshake. The process is terminated
// before Launch returns.
func (i *Inspector) Launch(ctx context.Context, def api.ServerDefinition, opts LaunchOptions, fn func(context.Context, *protocol.Session) error) (LaunchResult, error) {
	sessionID := uuid.NewString()

	env, err := i.injector.Resolve(def.ID, def.Secrets, def.Env)
	if err != nil {
		return LaunchResult{}, &api.SpawnError{ServerID: def.ID, Command: def.Command, Err: err}
	}

	proc, err := i.launch(supervisor.LaunchSpec{
		ServerID: def.ID,
		Command:  def.Command,
		Args:     def.Args,
		Env:      env,
	})
	if err != nil {
		return LaunchResult{}, err
	}
	result := LaunchResult{Pid: proc.Pid(), ExitCode: -1}
	logging.Debug("Inspector", "Session %s started %s (pid %d)", sessionID, def.ID, proc.Pid())

	stderrDone := make(chan struct{})
	go drainStderr(proc.Stderr(), def.ID, opts.Stderr, stderrDone)

	session := protocol.NewSession(def.ID, proc.Stdin(), proc.Stdout(), i.opts, i.recorder)
	defer func() {
		session.Close()
		if err := proc.Terminate(context.WithoutCancel(ctx), i.grace); err != nil {
			logging.Warn("Inspector", "Failed to terminate %s: %v", def.ID, err)
		}
		select {
		case <-stderrDone:
		case <-time.After(exitSettle):
		}
		proc.Close()
		logging.Debug("Inspector", "Session %s finished", sessionID)
	}()

	err = session.Initialize(ctx)
	if err == nil && fn != nil {
		err = fn(ctx, session)
	}
	if err != nil {
		var streamErr *api.StreamError
		if errors.As(err, &streamErr) {
			select {
			case <-proc.Done():
			case <-time.After(exitSettle):
			}
		}
		if proc.Exited() {
			result.Exited = true
			result.ExitCode = exitCode(proc.ExitErr())
		}
		return result, err
	}
	return result, nil
}

func drainStderr(r io.Reader, id string, sink func(string), done chan<- struct{}) {
	defer close(done)
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.TrimRight(raw, "\r\n")
			logging.Debug("Inspector", "[%s stderr] %s", id, line)
			if sink != nil {
				sink(line)
			}
		}
		if err != nil {
			return
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
