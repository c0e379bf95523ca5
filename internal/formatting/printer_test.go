package formatting

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"relay/internal/api"
	"relay/internal/diagnostics"
)

func testServers() []api.ServerDefinition {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []api.ServerDefinition{
		{ID: "filesystem", Name: "Filesystem", Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem"}, Enabled: true, ProfileID: "default", Category: "files", CreatedAt: created, UpdatedAt: created},
		{ID: "github", Command: "uvx", Args: []string{"mcp-github"}, Secrets: []string{"GITHUB_TOKEN"}, ProfileID: "default", CreatedAt: created, UpdatedAt: created},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatTable, "table": FormatTable, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestServersTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{})

	require.NoError(t, p.Servers(testServers(), map[string]bool{"filesystem": true}))

	out := buf.String()
	assert.Contains(t, out, "filesystem")
	assert.Contains(t, out, "Filesystem")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "uvx mcp-github")
	assert.Contains(t, out, "servers")
}

func TestServersJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Format: FormatJSON})

	require.NoError(t, p.Servers(testServers(), map[string]bool{"github": true}))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "filesystem", rows[0]["id"])
	assert.Equal(t, false, rows[0]["running"])
	assert.Equal(t, true, rows[1]["running"])
}

func TestServersYAML(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Format: FormatYAML})

	require.NoError(t, p.Servers(testServers()[:1], nil))

	var rows []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "filesystem", rows[0]["id"])
	assert.Equal(t, "npx", rows[0]["command"])
	assert.Equal(t, false, rows[0]["running"])
}

func TestEmptyServers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).Servers(nil, nil))
	assert.Contains(t, buf.String(), "No servers found")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, Options{Quiet: true}).Servers(nil, nil))
	assert.Empty(t, buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, Options{Format: FormatJSON}).Servers(nil, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestServerDetail(t *testing.T) {
	def := testServers()[1]
	def.Env = map[string]string{"LOG_LEVEL": "debug"}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).Server(def, false))

	out := buf.String()
	assert.Contains(t, out, "Env LOG_LEVEL")
	assert.Contains(t, out, "GITHUB_TOKEN")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
}

func TestProfilesMarksActive(t *testing.T) {
	profiles := []api.Profile{{ID: "default", Name: "Default"}, {ID: "work", Name: "Work"}}

	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Format: FormatJSON})
	require.NoError(t, p.Profiles(profiles, "work", map[string]int{"default": 2}))

	var rows []ProfileRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Active)
	assert.Equal(t, 2, rows[0].Servers)
	assert.True(t, rows[1].Active)
}

func TestToolsTable(t *testing.T) {
	tool := mcp.NewTool("read_file",
		mcp.WithDescription("Read a file\nfrom disk"),
		mcp.WithString("path", mcp.Required()),
		mcp.WithString("encoding"),
	)

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).Tools([]mcp.Tool{tool}))

	out := buf.String()
	assert.Contains(t, out, "read_file")
	assert.Contains(t, out, "Read a file")
	assert.NotContains(t, out, "from disk")
	assert.Contains(t, out, "encoding, path*")
}

func TestToolResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).ToolResult(mcp.NewToolResultText("hello")))
	assert.Equal(t, "hello\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, Options{}).ToolResult(mcp.NewToolResultError("boom")))
	assert.Contains(t, buf.String(), "Tool reported an error")
	assert.Contains(t, buf.String(), "boom")
}

func TestUsage(t *testing.T) {
	snapshots := []api.UsageSnapshot{{ServerID: "filesystem", BytesIn: 2048, BytesOut: 10, TotalBytes: 2058, TotalTokens: 514, MessagesIn: 3, MessagesOut: 1}}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).Usage(snapshots))

	out := buf.String()
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "514")
	assert.Contains(t, out, "3 in / 1 out")
}

func TestConnectionTestFailure(t *testing.T) {
	code := 1
	result := diagnostics.ConnectionTestResult{
		Message:       "server exited before responding",
		ExitCode:      &code,
		Hints:         []string{"Install the missing Python module"},
		StderrPreview: []string{"ModuleNotFoundError: No module named 'mcp'"},
		MissingDependencies: []diagnostics.DependencyIssue{
			{Binary: "uvx", RequiredBy: "uvx mcp-github", InstallHint: "pip install uv"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).ConnectionTest(result))

	out := buf.String()
	assert.Contains(t, out, "server exited before responding")
	assert.Contains(t, out, "Exit code: 1")
	assert.Contains(t, out, "ModuleNotFoundError")
	assert.Contains(t, out, "pip install uv")
	assert.Contains(t, out, "Install the missing Python module")
}

func TestConflicts(t *testing.T) {
	conflicts := []diagnostics.Conflict{{
		Key:     "npx:-y server-memory",
		Servers: []diagnostics.ConflictingServer{{ID: "memory", Name: "Memory"}, {ID: "memory-2", Name: "Memory copy"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, Options{}).Conflicts(conflicts))
	assert.Contains(t, buf.String(), "Memory copy (memory-2)")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, Options{Format: FormatJSON}).Conflicts(nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, Options{}).Conflicts(nil))
	assert.Contains(t, buf.String(), "No conflicting servers")
}
