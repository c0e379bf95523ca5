package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"relay/internal/api"
	"relay/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLStore_Servers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	defs := []api.ServerDefinition{
		{ID: "b", Name: "beta", Command: "node", Enabled: true, ProfileID: "default", CreatedAt: now, UpdatedAt: now},
		{ID: "a", Name: "alpha", Command: "npx", Args: []string{"-y", "pkg"}, Env: map[string]string{"MODE": "x"},
			Secrets: []string{"API_KEY"}, Enabled: true, ProfileID: "default", CreatedAt: now, UpdatedAt: now},
		{ID: "c", Name: "gamma", Command: "uvx", Enabled: false, ProfileID: "default"},
		{ID: "w", Name: "work-only", Command: "docker", Enabled: true, ProfileID: "work"},
	}
	for _, d := range defs {
		require.NoError(t, s.SaveServer(ctx, d))
	}

	got, err := s.GetServer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, defs[1], got)

	all, err := s.ListServers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	inDefault, err := s.ListServers(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names(inDefault))

	enabled, err := s.ListEnabledServers(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names(enabled))

	require.NoError(t, s.DeleteServer(ctx, "a"))
	_, err = s.GetServer(ctx, "a")
	assert.True(t, api.IsNotFound(err))
	assert.True(t, api.IsNotFound(s.DeleteServer(ctx, "a")))
}

func TestYAMLStore_SkipsMalformedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewYAMLStore(config.NewStorageWithPath(dir))

	require.NoError(t, s.SaveServer(ctx, api.ServerDefinition{ID: "ok", Name: "ok", Command: "x", ProfileID: "default"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServersDir, "broken.yaml"), []byte("args: [\n"), 0644))

	defs, err := s.ListServers(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(defs))
}

func TestYAMLStore_LegacyFileWithoutProfile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewYAMLStore(config.NewStorageWithPath(dir))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ServersDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServersDir, "fs.yaml"), []byte("name: fs\ncommand: npx\nenabled: true\n"), 0644))

	def, err := s.GetServer(ctx, "fs")
	require.NoError(t, err)
	assert.Equal(t, "fs", def.ID)
	assert.Equal(t, api.DefaultProfileID, def.ProfileID)
}

func TestYAMLStore_Profiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	profiles, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, api.DefaultProfileID, profiles[0].ID)

	p, err := s.GetProfile(ctx, api.DefaultProfileID)
	require.NoError(t, err)
	assert.Equal(t, "Default", p.Name)

	_, err = s.GetProfile(ctx, "work")
	assert.True(t, api.IsNotFound(err))

	require.NoError(t, s.SaveProfile(ctx, api.Profile{ID: "work", Name: "Work"}))
	require.NoError(t, s.SaveProfile(ctx, api.Profile{ID: "art", Name: "Art"}))
	profiles, err = s.ListProfiles(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"default", "art", "work"}, ids)
}

func TestYAMLStore_ActiveProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.ActiveProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.DefaultProfileID, id)

	require.NoError(t, s.SetActiveProfile(ctx, "work"))
	id, err = s.ActiveProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "work", id)
}

func TestYAMLStore_Dirs(t *testing.T) {
	dir := t.TempDir()
	s := NewYAMLStore(config.NewStorageWithPath(dir))

	dirs, err := s.Dirs()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, ServersDir),
		filepath.Join(dir, ProfilesDir),
		filepath.Join(dir, SettingsDir),
	}, dirs)
}

func names(defs []api.ServerDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}
