package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"relay/internal/api"
	"relay/internal/inspector"
	"relay/pkg/logging"
)

// ClientName identifies connection tests in the initialize request.
const ClientName = "Relay-Diagnostics"

const maxStderrPreview = 8

// ConnectionTestResult reports the outcome of TestConnection.
type ConnectionTestResult struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message"`
	ExitCode            *int              `json:"exitCode,omitempty"`
	MissingDependencies []DependencyIssue `json:"missingDependencies"`
	Hints               []string          `json:"hints"`
	StderrPreview       []string          `json:"stderrPreview"`
}

// Diagnostics runs dependency checks and connection tests.
type Diagnostics struct {
	inspector *inspector.Inspector
	lookPath  func(string) (string, error)
	stat      func(string) (os.FileInfo, error)
	goos      string
}

// New creates Diagnostics. The connection tests use cfg with the client
// name replaced by ClientName.
func New(cfg inspector.Config) *Diagnostics {
	cfg.Options.ClientInfo.Name = ClientName
	if cfg.Options.ClientInfo.Version == "" {
		cfg.Options.ClientInfo.Version = "1.0.0"
	}
	return &Diagnostics{
		inspector: inspector.New(cfg),
		lookPath:  defaultLookPath,
		stat:      defaultStat,
		goos:      defaultGOOS,
	}
}

// TestConnection checks that def starts and answers initialize. The process
// is always terminated before it returns.
func (d *Diagnostics) TestConnection(ctx context.Context, def api.ServerDefinition) ConnectionTestResult {
	result := ConnectionTestResult{
		MissingDependencies: []DependencyIssue{},
		Hints:               []string{},
		StderrPreview:       []string{},
	}

	if strings.TrimSpace(def.Command) == "" {
		result.Message = "Command is required"
		result.Hints = []string{"Provide a server command (for example `npx` or `python`)."}
		return result
	}

	if missing := d.CheckDependencies(def.Command, def.Args); len(missing) > 0 {
		result.Message = "Missing prerequisites detected"
		result.MissingDependencies = missing
		for _, issue := range missing {
			result.Hints = append(result.Hints, issue.InstallHint)
		}
		return result
	}

	var (
		mu       sync.Mutex
		preview  []string
		finished bool
	)
	launched, err := d.inspector.Launch(ctx, def, inspector.LaunchOptions{
		Stderr: func(line string) {
			mu.Lock()
			defer mu.Unlock()
			if !finished && len(preview) < maxStderrPreview {
				preview = append(preview, line)
			}
		},
	}, nil)

	mu.Lock()
	finished = true
	result.StderrPreview = append(result.StderrPreview, preview...)
	mu.Unlock()

	if launched.Exited {
		code := launched.ExitCode
		result.ExitCode = &code
	}
	if err != nil {
		result.Message = failureMessage(err)
		result.Hints = deriveHints(result.Message, result.StderrPreview)
		logging.Debug("Diagnostics", "Connection test of %s failed: %v", def.ID, err)
		return result
	}

	result.Success = true
	result.Message = "Server responded to MCP initialize successfully."
	result.Hints = []string{"Connection test passed. You can safely save or enable this server."}
	return result
}

func failureMessage(err error) string {
	var protoErr *api.ProtocolError
	var spawnErr *api.SpawnError
	var streamErr *api.StreamError
	switch {
	case errors.As(err, &protoErr):
		return fmt.Sprintf("Server returned MCP initialize error: %s (code %d)", protoErr.Message, protoErr.Code)
	case errors.As(err, &spawnErr):
		return fmt.Sprintf("Failed to spawn server process: %v", spawnErr.Err)
	case api.IsTimeout(err):
		return "Timed out waiting for MCP response during initialization"
	case api.IsStreamClosed(err):
		return "Server closed the stream during initialization"
	case errors.As(err, &streamErr):
		return fmt.Sprintf("IO error during initialization: %v", streamErr.Err)
	default:
		return err.Error()
	}
}

// deriveHints suggests fixes based on the failure message and stderr.
func deriveHints(message string, stderr []string) []string {
	lower := strings.ToLower(message)
	stderrBlob := strings.ToLower(strings.Join(stderr, " "))
	var hints []string

	if strings.Contains(lower, "enoent") ||
		strings.Contains(lower, "not recognized") ||
		strings.Contains(lower, "executable file not found") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(stderrBlob, "not found") {
		hints = append(hints, "Verify the command exists on PATH and is spelled correctly.")
	}
	if strings.Contains(lower, "permission denied") || strings.Contains(stderrBlob, "permission denied") {
		hints = append(hints, "Check executable permissions and run the command manually once in your shell.")
	}
	if strings.Contains(stderrBlob, "module not found") || strings.Contains(stderrBlob, "cannot find module") {
		hints = append(hints, "Install missing Node dependencies (`npm install` / `pnpm install`) in the server project.")
	}
	if strings.Contains(stderrBlob, "no module named") {
		hints = append(hints, "Install required Python packages in the active environment.")
	}
	if len(hints) == 0 {
		hints = append(hints, "Open server logs after enabling for additional runtime details.")
	}
	return hints
}
