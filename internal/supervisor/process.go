package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"relay/internal/api"
	"relay/pkg/logging"
)

// LaunchSpec describes a process to start.
type LaunchSpec struct {
	ServerID string
	Command  string
	Args     []string
	// Env is layered over the parent environment.
	Env map[string]string
}

// Process is a running server with exclusive ownership of its three
// standard streams.
type Process struct {
	ServerID  string
	StartedAt time.Time

	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File

	stdinMu   sync.Mutex
	done      chan struct{}
	waitErr   error
	closeOnce sync.Once
}

// Launch starts spec. Failures are returned as *api.SpawnError.
func Launch(spec LaunchSpec) (*Process, error) {
	spawnErr := func(err error) error {
		return &api.SpawnError{ServerID: spec.ServerID, Command: spec.Command, Err: err}
	}
	if spec.Command == "" {
		return nil, spawnErr(errors.New("command is empty"))
	}

	cmd := buildCommand(spec.Command, spec.Args)
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	configureProcAttr(cmd)

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, err
		}
		files = append(files, r, w)
		return r, w, nil
	}

	stdinR, stdinW, err := pipe()
	if err != nil {
		return nil, spawnErr(fmt.Errorf("failed to create stdin pipe: %w", err))
	}
	stdoutR, stdoutW, err := pipe()
	if err != nil {
		closeAll()
		return nil, spawnErr(fmt.Errorf("failed to create stdout pipe: %w", err))
	}
	stderrR, stderrW, err := pipe()
	if err != nil {
		closeAll()
		return nil, spawnErr(fmt.Errorf("failed to create stderr pipe: %w", err))
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, spawnErr(err)
	}

	// The child holds its own copies now.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	p := &Process{
		ServerID:  spec.ServerID,
		StartedAt: time.Now(),
		cmd:       cmd,
		stdin:     stdinW,
		stdout:    stdoutR,
		stderr:    stderrR,
		done:      make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// mergeEnv returns base with overrides applied in key order.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := append([]string(nil), base...)
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Stdin returns the write end of the process's standard input.
func (p *Process) Stdin() io.Writer { return p.stdin }

// Stdout returns the read end of the process's standard output.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Stderr returns the read end of the process's standard error.
func (p *Process) Stderr() io.Reader { return p.stderr }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitErr returns the result of waiting for the process. Only valid after Done.
func (p *Process) ExitErr() error {
	<-p.done
	return p.waitErr
}

// Exited reports whether the process is gone.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// WriteLine writes payload followed by a newline to stdin.
func (p *Process) WriteLine(payload []byte) error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if _, err := p.stdin.Write(append(payload, '\n')); err != nil {
		return &api.StreamError{Op: "write", Err: err}
	}
	return nil
}

// Terminate closes stdin, asks the process group to stop and kills it after
// grace or as soon as ctx is done, whichever comes first. It returns once the
// process has exited. Terminating a process that already exited is not an
// error.
func (p *Process) Terminate(ctx context.Context, grace time.Duration) error {
	p.stdinMu.Lock()
	p.stdin.Close()
	p.stdinMu.Unlock()

	if p.Exited() {
		return nil
	}

	if err := terminateGroup(p.Pid()); err != nil && !p.Exited() {
		if killErr := killGroup(p.Pid()); killErr != nil && !p.Exited() {
			return fmt.Errorf("failed to stop process %d: %w", p.Pid(), killErr)
		}
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
		logging.Debug("Supervisor", "Deadline reached while stopping process %d, killing it", p.Pid())
	}

	if err := killGroup(p.Pid()); err != nil && !p.Exited() {
		return fmt.Errorf("failed to kill process %d: %w", p.Pid(), err)
	}
	<-p.done
	return nil
}

// Close releases the parent ends of all pipes. Pending reads fail.
func (p *Process) Close() {
	p.closeOnce.Do(func() {
		p.stdinMu.Lock()
		p.stdin.Close()
		p.stdinMu.Unlock()
		p.stdout.Close()
		p.stderr.Close()
	})
}
