package exporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"

	"relay/internal/api"
)

// Format selects the output syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json or toml)", s)
	}
}

// ClientServer is one server entry in a client configuration.
type ClientServer struct {
	Command string            `json:"command" toml:"command"`
	Args    []string          `json:"args" toml:"args"`
	Env     map[string]string `json:"env,omitempty" toml:"env,omitempty"`
}

// Document is a client configuration keyed by server name.
type Document struct {
	MCPServers map[string]ClientServer `json:"mcpServers"`
}

type tomlDocument struct {
	MCPServers map[string]ClientServer `toml:"mcp_servers"`
}

// Build collects the enabled servers of defs. Servers sharing a name get a
// numeric suffix in the order given.
func Build(defs []api.ServerDefinition) Document {
	doc := Document{MCPServers: map[string]ClientServer{}}
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		entry := ClientServer{
			Command: def.Command,
			Args:    append([]string{}, def.Args...),
		}
		if len(def.Env) > 0 {
			entry.Env = make(map[string]string, len(def.Env))
			for k, v := range def.Env {
				entry.Env[k] = v
			}
		}

		name := def.DisplayName()
		key := name
		for n := 2; ; n++ {
			if _, taken := doc.MCPServers[key]; !taken {
				break
			}
			key = name + "-" + strconv.Itoa(n)
		}
		doc.MCPServers[key] = entry
	}
	return doc
}

// Render encodes doc in format.
func Render(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(tomlDocument(doc)); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ClaudeDesktopConfigPath returns where the desktop client reads its
// configuration on this platform.
func ClaudeDesktopConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return claudeDesktopConfigPath(runtime.GOOS, home), nil
}

func claudeDesktopConfigPath(goos, home string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Claude", "claude_desktop_config.json")
	default:
		return filepath.Join(home, ".config", "claude", "claude_desktop_config.json")
	}
}

// WriteClaudeDesktop replaces the mcpServers member of the configuration at
// path with doc. Other members of an existing file are kept.
func WriteClaudeDesktop(path string, doc Document) error {
	existing := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	servers, err := json.Marshal(doc.MCPServers)
	if err != nil {
		return err
	}
	existing["mcpServers"] = servers

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ReadClaudeDesktop returns the mcpServers of the configuration at path. A
// missing file yields an empty document.
func ReadClaudeDesktop(path string) (Document, error) {
	doc := Document{MCPServers: map[string]ClientServer{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]ClientServer{}
	}
	return doc, nil
}

// ErrNoServers is returned by ParseDocument for a configuration without an
// mcpServers object.
var ErrNoServers = errors.New("configuration has no mcpServers object")

// ParseDocument decodes a client configuration. Unlike ReadClaudeDesktop it
// requires the mcpServers member.
func ParseDocument(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("invalid JSON: %w", err)
	}
	servers, ok := raw["mcpServers"]
	if !ok || bytes.Equal(bytes.TrimSpace(servers), []byte("null")) {
		return Document{}, ErrNoServers
	}
	doc := Document{}
	if err := json.Unmarshal(servers, &doc.MCPServers); err != nil {
		return Document{}, fmt.Errorf("invalid mcpServers object: %w", err)
	}
	return doc, nil
}
