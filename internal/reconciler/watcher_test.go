package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ParseFilePath(t *testing.T) {
	w := NewWatcher("/tmp/relay", nil, 100*time.Millisecond)

	tests := []struct {
		name         string
		path         string
		expectedType EntityType
		expectedName string
	}{
		{"server", "/tmp/relay/servers/filesystem.yaml", EntityServer, "filesystem"},
		{"profile", "/tmp/relay/profiles/work.yaml", EntityProfile, "work"},
		{"setting", "/tmp/relay/settings/active-profile.yaml", EntitySetting, "active-profile"},
		{"yml extension", "/tmp/relay/servers/test.yml", EntityServer, "test"},
		{"unknown directory", "/tmp/relay/unknown/test.yaml", entityUnknown, ""},
		{"nested", "/tmp/relay/servers/sub/test.yaml", entityUnknown, ""},
		{"wrong base path", "/other/servers/test.yaml", entityUnknown, ""},
		{"config file", "/tmp/relay/config.yaml", entityUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entityType, name := w.parseFilePath(tt.path)
			assert.Equal(t, tt.expectedType, entityType)
			assert.Equal(t, tt.expectedName, name)
		})
	}
}

func TestIsYAMLFile(t *testing.T) {
	assert.True(t, isYAMLFile("a.yaml"))
	assert.True(t, isYAMLFile("a.YML"))
	assert.False(t, isYAMLFile(".tmp-123"))
	assert.False(t, isYAMLFile("a.json"))
}

func TestMergeOperations(t *testing.T) {
	assert.Equal(t, OperationCreate, mergeOperations(OperationCreate, OperationUpdate))
	assert.Equal(t, OperationDelete, mergeOperations(OperationCreate, OperationDelete))
	assert.Equal(t, OperationDelete, mergeOperations(OperationUpdate, OperationDelete))
	assert.Equal(t, OperationCreate, mergeOperations(OperationDelete, OperationCreate))
	assert.Equal(t, OperationUpdate, mergeOperations(OperationUpdate, OperationUpdate))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	serversDir := filepath.Join(dir, "servers")
	w := NewWatcher(dir, []string{serversDir}, 100*time.Millisecond)

	changes := make(chan ChangeEvent, 10)
	require.NoError(t, w.Start(ctx, changes))
	defer w.Stop()

	path := filepath.Join(serversDir, "alpha.yaml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("id: alpha\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(serversDir, "notes.txt"), []byte("x"), 0644))

	select {
	case e := <-changes:
		assert.Equal(t, EntityServer, e.Type)
		assert.Equal(t, "alpha", e.Name)
		assert.Equal(t, OperationCreate, e.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no change event")
	}

	select {
	case e := <-changes:
		t.Fatalf("unexpected second event %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil, 0)
	assert.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background(), make(chan ChangeEvent)))
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
