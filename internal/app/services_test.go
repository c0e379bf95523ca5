package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/api"
	"relay/internal/config"
	"relay/internal/store"
)

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(false, true, dir)

	services, err := InitializeServices(context.Background(), cfg)
	require.NoError(t, err)
	defer services.Close()

	assert.Equal(t, dir, services.ConfigPath)
	assert.IsType(t, &store.YAMLStore{}, services.Store)
	assert.NotNil(t, services.Registry)
	assert.NotNil(t, services.Reconciler)
	assert.NotNil(t, services.Inspector)
	assert.NotNil(t, services.Diagnostics)
	assert.NotNil(t, services.Manager)
	assert.Equal(t, config.DefaultStopGracePeriod, services.Config.Supervisor.StopGracePeriod)
}

func TestInitializeServicesUnknownDriver(t *testing.T) {
	cfg := NewConfig(false, true, t.TempDir())
	relayCfg := config.GetDefaultConfig()
	relayCfg.Store.Driver = "sqlite"
	cfg.RelayConfig = &relayCfg

	_, err := InitializeServices(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestManagerPersistsThroughServices(t *testing.T) {
	ctx := context.Background()
	services, err := InitializeServices(ctx, NewConfig(false, true, t.TempDir()))
	require.NoError(t, err)
	defer services.Close()

	created, err := services.Manager.Create(ctx, api.ServerDefinition{Name: "Memory", Command: "npx", Args: []string{"-y", "server-memory"}})
	require.NoError(t, err)

	got, err := services.Store.GetServer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "npx", got.Command)
	assert.Equal(t, api.DefaultProfileID, got.ProfileID)
	assert.False(t, services.Registry.IsRunning(created.ID))
}

func TestNewApplicationLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	data := []byte("logLevel: debug\nsecrets:\n  policy: fail-closed\n  file: vault.yaml\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644))

	application, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.NoError(t, err)
	defer application.Close()

	services := application.Services()
	assert.Equal(t, "debug", services.Config.LogLevel)
	assert.Equal(t, config.SecretPolicyFailClosed, services.Config.Secrets.Policy)
	assert.Equal(t, filepath.Join(dir, "vault.yaml"), services.Config.SecretsFilePath(dir))
}

func TestNewApplicationRejectsMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [\n"), 0644))

	_, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	assert.Error(t, err)
}
