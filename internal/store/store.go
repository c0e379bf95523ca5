package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"relay/internal/api"

	"github.com/google/uuid"
)

// Store persists server definitions, profiles and the active profile setting.
type Store interface {
	// ListServers returns the servers of a profile, or every server when
	// profileID is empty, sorted by name.
	ListServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error)
	// ListEnabledServers returns the enabled servers of a profile.
	ListEnabledServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error)
	GetServer(ctx context.Context, id string) (api.ServerDefinition, error)
	SaveServer(ctx context.Context, def api.ServerDefinition) error
	DeleteServer(ctx context.Context, id string) error

	// ListProfiles returns every profile, the default profile first.
	ListProfiles(ctx context.Context) ([]api.Profile, error)
	GetProfile(ctx context.Context, id string) (api.Profile, error)
	SaveProfile(ctx context.Context, p api.Profile) error

	// ActiveProfile returns the id of the active profile, DefaultProfileID
	// when none was ever set.
	ActiveProfile(ctx context.Context) (string, error)
	SetActiveProfile(ctx context.Context, id string) error

	Close() error
}

// CreateProfile stores a new profile named name. Its id is the slug of the
// name, suffixed with -2, -3 and so on when the slug is already taken.
func CreateProfile(ctx context.Context, s Store, name string) (api.Profile, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return api.Profile{}, fmt.Errorf("profile name is required")
	}

	base := Slugify(trimmed)
	if base == "" {
		base = "profile-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		_, err := s.GetProfile(ctx, candidate)
		if api.IsNotFound(err) {
			break
		}
		if err != nil {
			return api.Profile{}, fmt.Errorf("failed to check profile id %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}

	now := time.Now().UTC()
	p := api.Profile{ID: candidate, Name: trimmed, CreatedAt: now, UpdatedAt: now}
	if err := s.SaveProfile(ctx, p); err != nil {
		return api.Profile{}, err
	}
	return p, nil
}

// Slugify lowercases ASCII letters and digits and collapses every other run
// of characters into a single dash.
func Slugify(name string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func defaultProfile() api.Profile {
	return api.Profile{ID: api.DefaultProfileID, Name: "Default"}
}

func sortProfiles(profiles []api.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if (profiles[i].ID == api.DefaultProfileID) != (profiles[j].ID == api.DefaultProfileID) {
			return profiles[i].ID == api.DefaultProfileID
		}
		return profiles[i].Name < profiles[j].Name
	})
}

func sortServers(defs []api.ServerDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Name != defs[j].Name {
			return defs[i].Name < defs[j].Name
		}
		return defs[i].ID < defs[j].ID
	})
}

func enabledOnly(defs []api.ServerDefinition) []api.ServerDefinition {
	out := defs[:0]
	for _, d := range defs {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}
