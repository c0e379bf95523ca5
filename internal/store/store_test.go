package store

import (
	"context"
	"testing"

	"relay/internal/api"
	"relay/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *YAMLStore {
	t.Helper()
	return NewYAMLStore(config.NewStorageWithPath(t.TempDir()))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Work", "work"},
		{"My Side Project", "my-side-project"},
		{"  --Hello,   World!--  ", "hello-world"},
		{"v2.0 Beta", "v2-0-beta"},
		{"Ünïcode", "n-code"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestCreateProfile_Suffixes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := CreateProfile(ctx, s, "Work")
	require.NoError(t, err)
	assert.Equal(t, "work", first.ID)
	assert.Equal(t, "Work", first.Name)

	second, err := CreateProfile(ctx, s, "work")
	require.NoError(t, err)
	assert.Equal(t, "work-2", second.ID)

	third, err := CreateProfile(ctx, s, " WORK ")
	require.NoError(t, err)
	assert.Equal(t, "work-3", third.ID)
	assert.Equal(t, "WORK", third.Name)
}

func TestCreateProfile_Default(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := CreateProfile(ctx, s, "Default")
	require.NoError(t, err)
	assert.Equal(t, "default-2", p.ID)
}

func TestCreateProfile_Invalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := CreateProfile(ctx, s, "   ")
	assert.Error(t, err)

	p, err := CreateProfile(ctx, s, "???")
	require.NoError(t, err)
	assert.Regexp(t, `^profile-[0-9a-f]{32}$`, p.ID)
}

func TestSortProfiles(t *testing.T) {
	profiles := []api.Profile{
		{ID: "zeta", Name: "Zeta"},
		{ID: "default", Name: "Default"},
		{ID: "alpha", Name: "Alpha"},
	}
	sortProfiles(profiles)
	assert.Equal(t, []string{"default", "alpha", "zeta"}, []string{profiles[0].ID, profiles[1].ID, profiles[2].ID})
}
