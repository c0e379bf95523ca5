package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	require.NoError(t, ds.Save("servers", "alpha", []byte("id: alpha\n")))

	data, err := ds.Load("servers", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "id: alpha\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "servers", "alpha.yaml"))
	assert.NoError(t, err)

	require.NoError(t, ds.Save("servers", "alpha", []byte("id: alpha\nname: A\n")))
	data, err = ds.Load("servers", "alpha")
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: A")
}

func TestStorage_KeyValidation(t *testing.T) {
	ds := NewStorageWithPath(t.TempDir())

	tests := []struct {
		name        string
		entityType  string
		itemName    string
		errContains string
	}{
		{"empty entity type", "", "x", "entityType cannot be empty"},
		{"empty name", "servers", "", "name cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ds.Save(tt.entityType, tt.itemName, []byte("x"))
			assert.ErrorContains(t, err, tt.errContains)
			_, err = ds.Load(tt.entityType, tt.itemName)
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestStorage_NotFound(t *testing.T) {
	ds := NewStorageWithPath(t.TempDir())

	_, err := ds.Load("profiles", "missing")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	err = ds.Delete("profiles", "missing")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestStorage_ListAndDelete(t *testing.T) {
	dir := t.TempDir()
	ds := NewStorageWithPath(dir)

	names, err := ds.List("servers")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, ds.Save("servers", "b", []byte("b")))
	require.NoError(t, ds.Save("servers", "a", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "servers", "c.yml"), []byte("c"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "servers", "notes.txt"), []byte("x"), 0644))

	names, err = ds.List("servers")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, ds.Delete("servers", "a"))
	names, err = ds.List("servers")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names)
}

func TestStorage_EntityDir(t *testing.T) {
	ds := NewStorageWithPath("/custom/config/path")
	dir, err := ds.EntityDir("profiles")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/custom/config/path", "profiles"), dir)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple-name", "simple-name"},
		{"with/slash", "with_slash"},
		{"with spaces here", "with_spaces_here"},
		{"a.b.c", "a_b_c"},
		{"__trim__", "trim"},
		{"a::b", "a_b"},
		{"???", "unnamed"},
		{"", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.input))
		})
	}
}
