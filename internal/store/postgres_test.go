package store

import (
	"context"
	"os"
	"testing"

	"relay/internal/api"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set RELAY_TEST_POSTGRES_DSN to run these against a real database.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("RELAY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RELAY_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_Servers(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)

	profileID := "test-" + uuid.NewString()
	require.NoError(t, s.SaveProfile(ctx, api.Profile{ID: profileID, Name: profileID}))

	def := api.ServerDefinition{
		ID:        uuid.NewString(),
		Name:      "pg-alpha",
		Command:   "npx",
		Args:      []string{"-y", "server"},
		Env:       map[string]string{"MODE": "test"},
		Secrets:   []string{"API_KEY"},
		Enabled:   true,
		ProfileID: profileID,
	}
	require.NoError(t, s.SaveServer(ctx, def))
	t.Cleanup(func() { _ = s.DeleteServer(ctx, def.ID) })

	got, err := s.GetServer(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.Args, got.Args)
	assert.Equal(t, def.Env, got.Env)
	assert.Equal(t, def.Secrets, got.Secrets)
	assert.Equal(t, api.DefaultCategory, got.Category)

	enabled, err := s.ListEnabledServers(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, def.ID, enabled[0].ID)

	require.NoError(t, s.DeleteServer(ctx, def.ID))
	assert.True(t, api.IsNotFound(s.DeleteServer(ctx, def.ID)))
}

func TestPostgresStore_Profiles(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)

	p, err := s.GetProfile(ctx, api.DefaultProfileID)
	require.NoError(t, err)
	assert.Equal(t, api.DefaultProfileID, p.ID)

	created, err := CreateProfile(ctx, s, "PG "+uuid.NewString()[:8])
	require.NoError(t, err)

	require.NoError(t, s.SetActiveProfile(ctx, created.ID))
	active, err := s.ActiveProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, active)
	require.NoError(t, s.SetActiveProfile(ctx, api.DefaultProfileID))
}
