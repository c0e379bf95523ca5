package mcpserver

import (
	"context"
	"fmt"
	"testing"

	"relay/internal/api"
	"relay/internal/exporter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport(t *testing.T) {
	ctx := context.Background()
	m, s, _, sup := newTestManager(t)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	_, err := m.Create(ctx, api.ServerDefinition{Name: "files", Command: "npx"})
	require.NoError(t, err)

	doc := exporter.Document{MCPServers: map[string]exporter.ClientServer{
		"files":  {Command: "uvx", Args: []string{"mcp-files"}},
		"git":    {Command: "mcp-git", Env: map[string]string{"GIT_DIR": "/repo"}},
		"broken": {Command: "  "},
	}}

	result, err := m.Import(ctx, doc, "")
	require.NoError(t, err)

	require.Len(t, result.Imported, 2)
	assert.Equal(t, "files-2", result.Imported[0].Name)
	assert.Equal(t, "uvx", result.Imported[0].Command)
	assert.Equal(t, "git", result.Imported[1].Name)
	assert.Equal(t, map[string]string{"files": "files-2"}, result.Renamed)

	require.Contains(t, result.Failed, "broken")
	assert.ErrorContains(t, result.Failed["broken"], "command")

	for _, def := range result.Imported {
		assert.False(t, def.Enabled)
		assert.Equal(t, ImportDescription, def.Description)
		assert.Equal(t, api.DefaultCategory, def.Category)
		assert.Equal(t, api.DefaultProfileID, def.ProfileID)
	}

	stored, err := s.ListServers(ctx, api.DefaultProfileID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Empty(t, sup.calls)
}

func TestImportRenamesWithinBatch(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager(t)

	_, err := m.Create(ctx, api.ServerDefinition{Name: "files", Command: "npx"})
	require.NoError(t, err)
	_, err = m.Create(ctx, api.ServerDefinition{Name: "files-2", Command: "npx"})
	require.NoError(t, err)

	result, err := m.Import(ctx, exporter.Document{MCPServers: map[string]exporter.ClientServer{
		"files": {Command: "uvx"},
	}}, "")
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, "files-3", result.Imported[0].Name)
}

func TestImportEmptyDocument(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	_, err := m.Import(context.Background(), exporter.Document{}, "")
	assert.ErrorIs(t, err, ErrNothingToImport)
}

func TestImportUnknownProfile(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	result, err := m.Import(context.Background(), exporter.Document{MCPServers: map[string]exporter.ClientServer{
		"files": {Command: "uvx"},
	}}, "missing")
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Contains(t, result.Failed, "files")
}
