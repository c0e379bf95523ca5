package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"
	"time"

	"relay/internal/api"
	"relay/internal/events"
	"relay/internal/secrets"
	"relay/internal/traffic"
	"relay/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStopGracePeriod is how long a process may take to exit after SIGTERM.
	DefaultStopGracePeriod = 5 * time.Second

	// readerDrainTimeout bounds how long the exit watcher waits for the
	// stream readers after the process is gone. Grandchildren that escaped
	// the process group may keep the pipes open.
	readerDrainTimeout = 2 * time.Second
)

// ErrRegistryClosed is returned by spawns after Shutdown.
var ErrRegistryClosed = errors.New("registry is shut down")

// DefinitionGetter loads a server definition by id.
type DefinitionGetter interface {
	GetServer(ctx context.Context, id string) (api.ServerDefinition, error)
}

// Config wires a Registry to its collaborators. Meter, Broker and Events may
// be nil.
type Config struct {
	Injector        *secrets.Injector
	Definitions     DefinitionGetter
	Meter           *traffic.Meter
	Broker          *events.Broker
	Events          *events.EventGenerator
	StopGracePeriod time.Duration
}

// ReconcileReport lists the outcome of one Reconcile pass.
type ReconcileReport struct {
	Started        []string
	AlreadyRunning []string
	Failed         map[string]error
}

// RunningServer describes one entry of the process table.
type RunningServer struct {
	ID        string
	Name      string
	Pid       int
	StartedAt time.Time
	// Revision is the UpdatedAt of the definition the process was started from.
	Revision time.Time
}

type entry struct {
	def     api.ServerDefinition
	proc    *Process
	readers sync.WaitGroup
	// stopping is set under the registry lock when the entry is removed on
	// request, so the exit watcher does not report it as an unexpected exit.
	stopping bool
}

// Registry owns every supervised server process. The process table is the
// single source of truth for whether a server is running.
type Registry struct {
	mu     sync.Mutex
	procs  map[string]*entry
	closed bool

	injector    *secrets.Injector
	definitions DefinitionGetter
	meter       *traffic.Meter
	broker      *events.Broker
	events      *events.EventGenerator
	grace       time.Duration

	launch func(LaunchSpec) (*Process, error)
}

// NewRegistry creates an empty Registry.
func NewRegistry(cfg Config) *Registry {
	grace := cfg.StopGracePeriod
	if grace <= 0 {
		grace = DefaultStopGracePeriod
	}
	injector := cfg.Injector
	if injector == nil {
		injector = secrets.NewInjector(secrets.NewMemoryVault(), secrets.PolicyFailOpen)
	}
	return &Registry{
		procs:       make(map[string]*entry),
		injector:    injector,
		definitions: cfg.Definitions,
		meter:       cfg.Meter,
		broker:      cfg.Broker,
		events:      cfg.Events,
		grace:       grace,
		launch:      Launch,
	}
}

// Spawn starts def unless it is already running.
func (r *Registry) Spawn(ctx context.Context, def api.ServerDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawnLocked(def)
}

func (r *Registry) spawnLocked(def api.ServerDefinition) error {
	if r.closed {
		return &api.SpawnError{ServerID: def.ID, Command: def.Command, Err: ErrRegistryClosed}
	}
	if _, ok := r.procs[def.ID]; ok {
		logging.Debug("Supervisor", "Server %s is already running", def.ID)
		return nil
	}

	env, err := r.injector.Resolve(def.ID, def.Secrets, def.Env)
	if err != nil {
		spawnErr := &api.SpawnError{ServerID: def.ID, Command: def.Command, Err: err}
		r.events.ServerEvent(def.ID, def.DisplayName(), events.ReasonServerFailed, events.EventData{Error: err.Error()})
		return spawnErr
	}

	proc, err := r.launch(LaunchSpec{
		ServerID: def.ID,
		Command:  def.Command,
		Args:     def.Args,
		Env:      env,
	})
	if err != nil {
		r.events.ServerEvent(def.ID, def.DisplayName(), events.ReasonServerFailed, events.EventData{Error: err.Error()})
		return err
	}

	e := &entry{def: def.Clone(), proc: proc}
	r.procs[def.ID] = e

	e.readers.Add(2)
	go r.readStream(e, proc.Stdout(), api.StreamStdout)
	go r.readStream(e, proc.Stderr(), api.StreamStderr)
	go r.watchExit(e)

	logging.Info("Supervisor", "Started server %s (pid %d)", def.ID, proc.Pid())
	r.events.ServerEvent(def.ID, def.DisplayName(), events.ReasonServerStarted, events.EventData{})
	return nil
}

// Stop terminates the server and removes it from the table. Stopping a
// server that is not running is not an error.
func (r *Registry) Stop(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(ctx, id)
}

func (r *Registry) stopLocked(ctx context.Context, id string) error {
	e, ok := r.procs[id]
	if !ok {
		return nil
	}
	e.stopping = true

	start := time.Now()
	err := e.proc.Terminate(ctx, r.grace)
	delete(r.procs, id)
	if err != nil {
		logging.Error("Supervisor", err, "Failed to stop server %s cleanly", id)
		return err
	}

	logging.Info("Supervisor", "Stopped server %s", id)
	r.events.ServerEvent(id, e.def.DisplayName(), events.ReasonServerStopped, events.EventData{Duration: time.Since(start)})
	return nil
}

// Restart stops the server and spawns it again if its stored definition is
// still enabled.
func (r *Registry) Restart(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.procs[id]; ok {
		r.events.ServerEvent(id, e.def.DisplayName(), events.ReasonServerRestarting, events.EventData{})
	}
	if err := r.stopLocked(ctx, id); err != nil {
		return err
	}
	if r.definitions == nil {
		return errors.New("registry has no definition source")
	}

	def, err := r.definitions.GetServer(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			logging.Debug("Supervisor", "Server %s no longer exists, not restarting", id)
			return nil
		}
		return fmt.Errorf("failed to load server %s: %w", id, err)
	}
	if !def.Enabled {
		logging.Debug("Supervisor", "Server %s is disabled, not restarting", id)
		return nil
	}
	return r.spawnLocked(def)
}

// Reconcile spawns every desired definition that is not running. Spawn
// failures are logged and reported; they never abort the pass.
func (r *Registry) Reconcile(ctx context.Context, desired []api.ServerDefinition) ReconcileReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := ReconcileReport{Failed: make(map[string]error)}
	seen := make(map[string]bool, len(desired))
	for _, def := range desired {
		if seen[def.ID] {
			continue
		}
		seen[def.ID] = true

		if ctx.Err() != nil {
			report.Failed[def.ID] = ctx.Err()
			continue
		}
		if _, ok := r.procs[def.ID]; ok {
			report.AlreadyRunning = append(report.AlreadyRunning, def.ID)
			continue
		}
		if err := r.spawnLocked(def); err != nil {
			logging.Warn("Supervisor", "Failed to start server %s: %v", def.ID, err)
			report.Failed[def.ID] = err
			continue
		}
		report.Started = append(report.Started, def.ID)
	}
	return report
}

// StopAll terminates every running server in parallel. Servers still
// running when ctx is done are killed without waiting for the grace period.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopAllLocked(ctx)
}

// Shutdown stops every server and refuses further spawns. It is called once
// when relay exits.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.stopAllLocked(ctx)
}

func (r *Registry) stopAllLocked(ctx context.Context) error {
	ids := make([]string, 0, len(r.procs))
	for id := range r.procs {
		ids = append(ids, id)
	}

	var g errgroup.Group
	results := make(map[string]error, len(ids))
	var resultsMu sync.Mutex
	for _, id := range ids {
		e := r.procs[id]
		e.stopping = true
		g.Go(func() error {
			err := e.proc.Terminate(ctx, r.grace)
			resultsMu.Lock()
			results[id] = err
			resultsMu.Unlock()
			if err != nil {
				return fmt.Errorf("server %s: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()

	for _, id := range ids {
		e := r.procs[id]
		delete(r.procs, id)
		if results[id] == nil {
			r.events.ServerEvent(id, e.def.DisplayName(), events.ReasonServerStopped, events.EventData{})
		}
	}
	if len(ids) > 0 {
		logging.Info("Supervisor", "Stopped %d servers", len(ids))
	}
	return err
}

// Running returns the process table sorted by id.
func (r *Registry) Running() []RunningServer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RunningServer, 0, len(r.procs))
	for id, e := range r.procs {
		out = append(out, RunningServer{
			ID:        id,
			Name:      e.def.DisplayName(),
			Pid:       e.proc.Pid(),
			StartedAt: e.proc.StartedAt,
			Revision:  e.def.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsRunning reports whether id has an entry in the process table.
func (r *Registry) IsRunning(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.procs[id]
	return ok
}

// Pid returns the process id of a running server.
func (r *Registry) Pid(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.procs[id]
	if !ok {
		return 0, false
	}
	return e.proc.Pid(), true
}

// Send writes one line to a running server's stdin and meters it outbound.
func (r *Registry) Send(ctx context.Context, id string, payload []byte) error {
	r.mu.Lock()
	e, ok := r.procs[id]
	r.mu.Unlock()
	if !ok {
		return api.NewProcessNotFoundError(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.proc.WriteLine(payload); err != nil {
		return err
	}
	if r.meter != nil {
		r.meter.Record(id, api.Outbound, payload)
	}
	return nil
}

// readStream turns every line of stream into a LogEvent. Stdout lines are
// metered inbound. It never takes the registry lock.
func (r *Registry) readStream(e *entry, stream io.Reader, kind api.LogStream) {
	defer e.readers.Done()

	id := e.def.ID
	br := bufio.NewReader(stream)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			r.publishLine(e, kind, trimNewline(line))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !isClosedFile(err) {
				logging.Warn("Supervisor", "Stopped reading %s of server %s: %v", kind, id, err)
			}
			return
		}
	}
}

// publishLine meters stdout lines inbound and publishes line as a LogEvent.
func (r *Registry) publishLine(e *entry, kind api.LogStream, line []byte) {
	id := e.def.ID
	if kind == api.StreamStdout && r.meter != nil {
		r.meter.Observe(id, api.Inbound, line)
	}
	if r.broker != nil {
		r.broker.PublishLog(api.LogEvent{
			ID:        id,
			Name:      e.def.DisplayName(),
			Stream:    kind,
			Message:   string(line),
			Timestamp: time.Now(),
		})
	}
}

// watchExit waits for the process to exit. An entry nobody asked to stop is
// removed from the table right away; the readers are drained afterwards,
// outside the lock, before the exit is reported.
func (r *Registry) watchExit(e *entry) {
	<-e.proc.Done()

	r.mu.Lock()
	current, ok := r.procs[e.def.ID]
	unexpected := ok && current == e && !e.stopping
	if unexpected {
		delete(r.procs, e.def.ID)
	}
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.readers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(readerDrainTimeout):
		logging.Debug("Supervisor", "Stream readers of server %s still open after exit, closing pipes", e.def.ID)
	}
	e.proc.Close()

	if unexpected {
		exitErr := e.proc.ExitErr()
		logging.Warn("Supervisor", "Server %s exited: %v", e.def.ID, exitErr)
		data := events.EventData{}
		if exitErr != nil {
			data.Error = exitErr.Error()
		}
		r.events.ServerEvent(e.def.ID, e.def.DisplayName(), events.ReasonServerExited, data)
	}
}

func isClosedFile(err error) bool {
	return errors.Is(err, fs.ErrClosed)
}

// trimNewline drops the line terminator, accepting CRLF.
func trimNewline(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
