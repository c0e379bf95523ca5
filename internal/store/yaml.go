package store

import (
	"context"
	"errors"
	"fmt"

	"relay/internal/api"
	"relay/internal/config"
	"relay/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Entity directories used by YAMLStore.
const (
	ServersDir  = "servers"
	ProfilesDir = "profiles"
	SettingsDir = "settings"
)

const activeProfileKey = "active-profile"

type activeProfileSetting struct {
	ActiveProfile string `yaml:"activeProfile"`
}

// YAMLStore is a Store backed by config.Storage.
type YAMLStore struct {
	storage *config.Storage
}

// NewYAMLStore creates a YAMLStore writing below the storage's config directory.
func NewYAMLStore(storage *config.Storage) *YAMLStore {
	return &YAMLStore{storage: storage}
}

// Dirs returns the directories holding store documents, for the watcher.
func (s *YAMLStore) Dirs() ([]string, error) {
	var dirs []string
	for _, entityType := range []string{ServersDir, ProfilesDir, SettingsDir} {
		dir, err := s.storage.EntityDir(entityType)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func (s *YAMLStore) ListServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error) {
	names, err := s.storage.List(ServersDir)
	if err != nil {
		return nil, err
	}

	defs := make([]api.ServerDefinition, 0, len(names))
	for _, name := range names {
		def, err := s.loadServer(name)
		if err != nil {
			logging.Warn("YAMLStore", "Skipping unreadable server file %s: %v", name, err)
			continue
		}
		if profileID != "" && def.ProfileID != profileID {
			continue
		}
		defs = append(defs, def)
	}
	sortServers(defs)
	return defs, nil
}

func (s *YAMLStore) ListEnabledServers(ctx context.Context, profileID string) ([]api.ServerDefinition, error) {
	defs, err := s.ListServers(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return enabledOnly(defs), nil
}

func (s *YAMLStore) GetServer(ctx context.Context, id string) (api.ServerDefinition, error) {
	def, err := s.loadServer(id)
	if errors.Is(err, config.ErrEntityNotFound) {
		return api.ServerDefinition{}, api.NewServerNotFoundError(id)
	}
	return def, err
}

func (s *YAMLStore) loadServer(name string) (api.ServerDefinition, error) {
	data, err := s.storage.Load(ServersDir, name)
	if err != nil {
		return api.ServerDefinition{}, err
	}
	var def api.ServerDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("failed to parse server %s: %w", name, err)
	}
	if def.ID == "" {
		def.ID = name
	}
	if def.ProfileID == "" {
		def.ProfileID = api.DefaultProfileID
	}
	return def, nil
}

func (s *YAMLStore) SaveServer(ctx context.Context, def api.ServerDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("server id cannot be empty")
	}
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal server %s: %w", def.ID, err)
	}
	return s.storage.Save(ServersDir, def.ID, data)
}

func (s *YAMLStore) DeleteServer(ctx context.Context, id string) error {
	err := s.storage.Delete(ServersDir, id)
	if errors.Is(err, config.ErrEntityNotFound) {
		return api.NewServerNotFoundError(id)
	}
	return err
}

func (s *YAMLStore) ListProfiles(ctx context.Context) ([]api.Profile, error) {
	names, err := s.storage.List(ProfilesDir)
	if err != nil {
		return nil, err
	}

	profiles := make([]api.Profile, 0, len(names)+1)
	hasDefault := false
	for _, name := range names {
		p, err := s.loadProfile(name)
		if err != nil {
			logging.Warn("YAMLStore", "Skipping unreadable profile file %s: %v", name, err)
			continue
		}
		if p.ID == api.DefaultProfileID {
			hasDefault = true
		}
		profiles = append(profiles, p)
	}
	if !hasDefault {
		profiles = append(profiles, defaultProfile())
	}
	sortProfiles(profiles)
	return profiles, nil
}

func (s *YAMLStore) GetProfile(ctx context.Context, id string) (api.Profile, error) {
	p, err := s.loadProfile(id)
	if errors.Is(err, config.ErrEntityNotFound) {
		if id == api.DefaultProfileID {
			return defaultProfile(), nil
		}
		return api.Profile{}, api.NewProfileNotFoundError(id)
	}
	return p, err
}

func (s *YAMLStore) loadProfile(name string) (api.Profile, error) {
	data, err := s.storage.Load(ProfilesDir, name)
	if err != nil {
		return api.Profile{}, err
	}
	var p api.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return api.Profile{}, fmt.Errorf("failed to parse profile %s: %w", name, err)
	}
	if p.ID == "" {
		p.ID = name
	}
	return p, nil
}

func (s *YAMLStore) SaveProfile(ctx context.Context, p api.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id cannot be empty")
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", p.ID, err)
	}
	return s.storage.Save(ProfilesDir, p.ID, data)
}

func (s *YAMLStore) ActiveProfile(ctx context.Context) (string, error) {
	data, err := s.storage.Load(SettingsDir, activeProfileKey)
	if errors.Is(err, config.ErrEntityNotFound) {
		return api.DefaultProfileID, nil
	}
	if err != nil {
		return "", err
	}
	var setting activeProfileSetting
	if err := yaml.Unmarshal(data, &setting); err != nil {
		return "", fmt.Errorf("failed to parse active profile setting: %w", err)
	}
	if setting.ActiveProfile == "" {
		return api.DefaultProfileID, nil
	}
	return setting.ActiveProfile, nil
}

func (s *YAMLStore) SetActiveProfile(ctx context.Context, id string) error {
	data, err := yaml.Marshal(activeProfileSetting{ActiveProfile: id})
	if err != nil {
		return err
	}
	return s.storage.Save(SettingsDir, activeProfileKey, data)
}

func (s *YAMLStore) Close() error { return nil }

var _ Store = (*YAMLStore)(nil)
