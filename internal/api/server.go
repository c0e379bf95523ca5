package api

import (
	"slices"
	"time"
)

// DefaultProfileID is the profile that always exists and is active until the
// user switches to another one.
const DefaultProfileID = "default"

// DefaultCategory is assigned to servers created without a category.
const DefaultCategory = "other"

// ServerDefinition describes a locally launched MCP server.
//
// Env holds plain environment variables only. Secrets lists the names of
// variables whose values live in the vault; the values themselves are never
// part of a definition.
type ServerDefinition struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string            `yaml:"category,omitempty" json:"category,omitempty"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Secrets     []string          `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Enabled     bool              `yaml:"enabled" json:"enabled"`
	ProfileID   string            `yaml:"profile" json:"profileId"`
	CreatedAt   time.Time         `yaml:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time         `yaml:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy of the definition so callers can mutate slices
// and maps without affecting the stored value.
func (d ServerDefinition) Clone() ServerDefinition {
	out := d
	out.Args = slices.Clone(d.Args)
	out.Secrets = slices.Clone(d.Secrets)
	if d.Env != nil {
		out.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			out.Env[k] = v
		}
	}
	return out
}

// DisplayName returns the human-readable name, falling back to the id.
func (d ServerDefinition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Profile is a named scope selecting which server definitions run together.
type Profile struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	CreatedAt time.Time `yaml:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt" json:"updatedAt"`
}
