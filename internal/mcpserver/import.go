package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"relay/internal/api"
	"relay/internal/exporter"
	"relay/pkg/logging"
)

// ImportDescription is set on every imported definition.
const ImportDescription = "Imported from configuration"

// ErrNothingToImport is returned when a configuration lists no servers.
var ErrNothingToImport = errors.New("no servers found in configuration")

// ImportResult reports the outcome of Import per entry name.
type ImportResult struct {
	Imported []api.ServerDefinition `json:"imported"`
	// Renamed maps an entry name to the name it was stored under because
	// the profile already had a server with that name.
	Renamed map[string]string `json:"renamed,omitempty"`
	Failed  map[string]error  `json:"-"`
}

// Import creates a disabled server in profileID (the active profile when
// empty) for every entry of doc, in name order. A failing entry does not
// stop the others.
func (m *Manager) Import(ctx context.Context, doc exporter.Document, profileID string) (ImportResult, error) {
	result := ImportResult{Renamed: map[string]string{}, Failed: map[string]error{}}
	if len(doc.MCPServers) == 0 {
		return result, ErrNothingToImport
	}

	if profileID == "" {
		active, err := m.store.ActiveProfile(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to read active profile: %w", err)
		}
		profileID = active
	}
	existing, err := m.store.ListServers(ctx, profileID)
	if err != nil {
		return result, fmt.Errorf("failed to list servers of profile %s: %w", profileID, err)
	}
	taken := make(map[string]bool, len(existing)+len(doc.MCPServers))
	for _, def := range existing {
		taken[def.DisplayName()] = true
	}

	names := make([]string, 0, len(doc.MCPServers))
	for name := range doc.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := doc.MCPServers[name]
		stored := uniqueName(name, taken)

		def, err := m.Create(ctx, api.ServerDefinition{
			Name:        stored,
			Description: ImportDescription,
			Category:    api.DefaultCategory,
			Command:     entry.Command,
			Args:        entry.Args,
			Env:         entry.Env,
			ProfileID:   profileID,
		})
		if err != nil {
			logging.Warn("MCPServerManager", "Failed to import %s: %v", name, err)
			result.Failed[name] = err
			continue
		}
		taken[stored] = true
		if stored != name {
			result.Renamed[name] = stored
		}
		result.Imported = append(result.Imported, def)
	}

	logging.Info("MCPServerManager", "Imported %d of %d servers into profile %s", len(result.Imported), len(names), profileID)
	return result, nil
}

// uniqueName returns name, or name-2, name-3 ... if taken.
func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	for n := 2; taken[candidate]; n++ {
		candidate = name + "-" + strconv.Itoa(n)
	}
	return candidate
}
