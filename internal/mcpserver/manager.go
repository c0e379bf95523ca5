package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"relay/internal/api"
	"relay/internal/config"
	"relay/internal/secrets"
	"relay/internal/store"
	"relay/pkg/logging"

	"github.com/google/uuid"
)

// Supervisor starts and stops server processes. The CLI runs without one;
// the serve loop passes its registry.
type Supervisor interface {
	Spawn(ctx context.Context, def api.ServerDefinition) error
	Stop(ctx context.Context, id string) error
}

// ServerUpdate holds the fields of a definition to change. Nil fields are
// left untouched.
type ServerUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Command     *string
	Args        *[]string
	Env         map[string]string
	Secrets     *[]string
	ProfileID   *string
}

// Manager creates, edits and removes server definitions.
type Manager struct {
	mu         sync.Mutex
	store      store.Store
	vault      secrets.Vault
	supervisor Supervisor

	now   func() time.Time
	newID func() string
}

// NewManager creates a Manager. supervisor may be nil.
func NewManager(s store.Store, vault secrets.Vault, supervisor Supervisor) *Manager {
	return &Manager{
		store:      s,
		vault:      vault,
		supervisor: supervisor,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// validateDefinition checks a definition before it is persisted.
func validateDefinition(def *api.ServerDefinition) error {
	var errors config.ValidationErrors

	if err := config.ValidateRequired("name", def.Name, "server"); err != nil {
		errors = append(errors, err.(config.ValidationError))
	}
	if err := config.ValidateRequired("command", def.Command, "server"); err != nil {
		errors = append(errors, err.(config.ValidationError))
	}

	for key := range def.Env {
		if err := config.ValidateEnvKey("env", key); err != nil {
			errors = append(errors, err.(config.ValidationError))
		}
	}

	seen := make(map[string]bool, len(def.Secrets))
	for _, key := range def.Secrets {
		if err := config.ValidateEnvKey("secrets", key); err != nil {
			errors = append(errors, err.(config.ValidationError))
			continue
		}
		if seen[key] {
			errors.Add("secrets", fmt.Sprintf("%s is listed twice", key), key)
		}
		seen[key] = true
		if _, ok := def.Env[key]; ok {
			errors.Add("secrets", fmt.Sprintf("%s cannot be both a plain variable and a secret", key), key)
		}
	}

	if errors.HasErrors() {
		return config.FormatValidationError("server", def.Name, errors)
	}
	return nil
}

// ValidateDefinition validates a server definition without persisting it.
func ValidateDefinition(def api.ServerDefinition) error {
	return validateDefinition(&def)
}

// Create stores a new, disabled server. The id is generated, the category
// defaults to "other" and the profile defaults to the active one.
func (m *Manager) Create(ctx context.Context, def api.ServerDefinition) (api.ServerDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def = def.Clone()
	def.ID = m.newID()
	def.Enabled = false
	def.Name = strings.TrimSpace(def.Name)
	def.Command = strings.TrimSpace(def.Command)
	if def.Category == "" {
		def.Category = api.DefaultCategory
	}
	if def.ProfileID == "" {
		active, err := m.store.ActiveProfile(ctx)
		if err != nil {
			return api.ServerDefinition{}, fmt.Errorf("failed to read active profile: %w", err)
		}
		def.ProfileID = active
	}

	if err := validateDefinition(&def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("invalid server definition: %w", err)
	}
	if _, err := m.store.GetProfile(ctx, def.ProfileID); err != nil {
		return api.ServerDefinition{}, err
	}

	def.CreatedAt = m.now()
	def.UpdatedAt = def.CreatedAt
	if err := m.store.SaveServer(ctx, def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("failed to save server %s: %w", def.Name, err)
	}

	logging.Info("MCPServerManager", "Created server %s (%s)", def.Name, def.ID)
	return def, nil
}

// Update applies upd to server id.
func (m *Manager) Update(ctx context.Context, id string, upd ServerUpdate) (api.ServerDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.GetServer(ctx, id)
	if err != nil {
		return api.ServerDefinition{}, err
	}
	def := current.Clone()

	if upd.Name != nil {
		def.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		def.Description = *upd.Description
	}
	if upd.Category != nil {
		def.Category = *upd.Category
		if def.Category == "" {
			def.Category = api.DefaultCategory
		}
	}
	if upd.Command != nil {
		def.Command = strings.TrimSpace(*upd.Command)
	}
	if upd.Args != nil {
		def.Args = append([]string(nil), (*upd.Args)...)
	}
	if upd.Env != nil {
		def.Env = make(map[string]string, len(upd.Env))
		for k, v := range upd.Env {
			def.Env[k] = v
		}
	}
	if upd.Secrets != nil {
		def.Secrets = append([]string(nil), (*upd.Secrets)...)
	}
	if upd.ProfileID != nil && *upd.ProfileID != def.ProfileID {
		if _, err := m.store.GetProfile(ctx, *upd.ProfileID); err != nil {
			return api.ServerDefinition{}, err
		}
		def.ProfileID = *upd.ProfileID
	}

	if err := validateDefinition(&def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("invalid server definition: %w", err)
	}

	def.UpdatedAt = m.now()
	if err := m.store.SaveServer(ctx, def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("failed to save server %s: %w", id, err)
	}

	logging.Info("MCPServerManager", "Updated server %s (%s)", def.Name, id)
	return def, nil
}

// Get returns server id.
func (m *Manager) Get(ctx context.Context, id string) (api.ServerDefinition, error) {
	return m.store.GetServer(ctx, id)
}

// List returns the servers of a profile, or all servers when profileID is empty.
func (m *Manager) List(ctx context.Context, profileID string) ([]api.ServerDefinition, error) {
	return m.store.ListServers(ctx, profileID)
}

// SetEnabled toggles a server. Enabling persists first and then spawns the
// server once if it belongs to the active profile. Disabling stops the
// server before persisting.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) (api.ServerDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.store.GetServer(ctx, id)
	if err != nil {
		return api.ServerDefinition{}, err
	}

	if !enabled && m.supervisor != nil {
		if err := m.supervisor.Stop(ctx, id); err != nil {
			return api.ServerDefinition{}, fmt.Errorf("failed to stop server %s: %w", id, err)
		}
	}

	if def.Enabled != enabled {
		def.Enabled = enabled
		def.UpdatedAt = m.now()
		if err := m.store.SaveServer(ctx, def); err != nil {
			return api.ServerDefinition{}, fmt.Errorf("failed to save server %s: %w", id, err)
		}
	}

	if enabled && m.supervisor != nil {
		active, err := m.store.ActiveProfile(ctx)
		if err != nil {
			return def, fmt.Errorf("failed to read active profile: %w", err)
		}
		if def.ProfileID == active {
			if err := m.supervisor.Spawn(ctx, def); err != nil {
				return def, err
			}
		}
	}

	logging.Info("MCPServerManager", "Set server %s enabled=%t", id, enabled)
	return def, nil
}

// Delete stops the server, removes its secrets and deletes the definition.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.store.GetServer(ctx, id)
	if err != nil {
		return err
	}

	if m.supervisor != nil {
		if err := m.supervisor.Stop(ctx, id); err != nil {
			return fmt.Errorf("failed to stop server %s: %w", id, err)
		}
	}
	if m.vault != nil {
		if err := secrets.DeleteAll(m.vault, id, def.Secrets); err != nil {
			return fmt.Errorf("failed to delete secrets of server %s: %w", id, err)
		}
	}
	if err := m.store.DeleteServer(ctx, id); err != nil {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}

	logging.Info("MCPServerManager", "Deleted server %s (%s)", def.Name, id)
	return nil
}

// RequestRestart bumps the revision of server id. A serve loop watching the
// store restarts the server on its next sync when it is running.
func (m *Manager) RequestRestart(ctx context.Context, id string) (api.ServerDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.store.GetServer(ctx, id)
	if err != nil {
		return api.ServerDefinition{}, err
	}
	if !def.Enabled {
		return api.ServerDefinition{}, fmt.Errorf("server %s is disabled", id)
	}

	def.UpdatedAt = m.now()
	if err := m.store.SaveServer(ctx, def); err != nil {
		return api.ServerDefinition{}, fmt.Errorf("failed to save server %s: %w", id, err)
	}
	logging.Info("MCPServerManager", "Requested restart of server %s", id)
	return def, nil
}
