package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/api"
)

func sampleDefinitions() []api.ServerDefinition {
	return []api.ServerDefinition{
		{
			ID:      "1",
			Name:    "files",
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
			Env:     map[string]string{"LOG_LEVEL": "debug"},
			Secrets: []string{"API_KEY"},
			Enabled: true,
		},
		{ID: "2", Name: "fetch", Command: "uvx", Args: []string{"mcp-server-fetch"}, Enabled: true},
		{ID: "3", Name: "disabled", Command: "docker", Enabled: false},
		{ID: "4", Name: "fetch", Command: "uvx", Enabled: true},
	}
}

func TestBuild(t *testing.T) {
	doc := Build(sampleDefinitions())

	require.Len(t, doc.MCPServers, 3)
	assert.Equal(t, "npx", doc.MCPServers["files"].Command)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, doc.MCPServers["files"].Env)
	assert.Nil(t, doc.MCPServers["fetch"].Env)
	assert.Contains(t, doc.MCPServers, "fetch-2")
	assert.NotContains(t, doc.MCPServers, "disabled")
	assert.Equal(t, []string{}, doc.MCPServers["fetch-2"].Args)
}

func TestRenderJSON(t *testing.T) {
	data, err := Render(Build(sampleDefinitions()), FormatJSON)
	require.NoError(t, err)

	var parsed map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	files := parsed["mcpServers"]["files"]
	assert.Equal(t, "npx", files["command"])
	assert.NotContains(t, string(data), "API_KEY")
	_, hasEnv := parsed["mcpServers"]["fetch"]["env"]
	assert.False(t, hasEnv)
}

func TestRenderTOML(t *testing.T) {
	data, err := Render(Build(sampleDefinitions()), FormatTOML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[mcp_servers.files]")

	var parsed tomlDocument
	_, err = toml.Decode(string(data), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "uvx", parsed.MCPServers["fetch"].Command)
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}, parsed.MCPServers["files"].Args)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("toml")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestClaudeDesktopConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/home/u", ".config", "claude", "claude_desktop_config.json"), claudeDesktopConfigPath("linux", "/home/u"))
	assert.Equal(t, filepath.Join("/Users/u", "Library", "Application Support", "Claude", "claude_desktop_config.json"), claudeDesktopConfigPath("darwin", "/Users/u"))
	assert.Equal(t, filepath.Join("C:/Users/u", "AppData", "Roaming", "Claude", "claude_desktop_config.json"), claudeDesktopConfigPath("windows", "C:/Users/u"))
}

func TestWriteClaudeDesktop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude", "claude_desktop_config.json")

	doc, err := ReadClaudeDesktop(path)
	require.NoError(t, err)
	assert.Empty(t, doc.MCPServers)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","mcpServers":{"old":{"command":"x","args":[]}}}`), 0644))

	require.NoError(t, WriteClaudeDesktop(path, Build(sampleDefinitions())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"dark"`, string(raw["theme"]))

	doc, err = ReadClaudeDesktop(path)
	require.NoError(t, err)
	assert.NotContains(t, doc.MCPServers, "old")
	assert.Contains(t, doc.MCPServers, "files")
}

func TestWriteClaudeDesktopCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.json")
	require.NoError(t, WriteClaudeDesktop(path, Document{MCPServers: map[string]ClientServer{}}))

	doc, err := ReadClaudeDesktop(path)
	require.NoError(t, err)
	assert.Empty(t, doc.MCPServers)
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr error
	}{
		{name: "servers", data: `{"theme":"dark","mcpServers":{"a":{"command":"x"},"b":{"command":"y","args":["1"]}}}`, want: 2},
		{name: "empty object", data: `{"mcpServers":{}}`, want: 0},
		{name: "missing member", data: `{"theme":"dark"}`, wantErr: ErrNoServers},
		{name: "null member", data: `{"mcpServers":null}`, wantErr: ErrNoServers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, doc.MCPServers, tt.want)
		})
	}

	_, err := ParseDocument([]byte(`{not json`))
	assert.ErrorContains(t, err, "invalid JSON")
}
