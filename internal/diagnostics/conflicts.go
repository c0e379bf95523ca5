package diagnostics

import (
	"sort"
	"strings"

	"relay/internal/api"
)

// ConflictingServer is one member of a Conflict.
type ConflictingServer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conflict groups servers that launch the same command with the same
// arguments, which usually means the same server was installed twice and
// exposes duplicate tool names.
type Conflict struct {
	Key     string              `json:"key"`
	Servers []ConflictingServer `json:"servers"`
}

func identity(def api.ServerDefinition) string {
	return def.Command + ":" + strings.Join(def.Args, " ")
}

// DetectConflicts returns the groups of defs sharing a command identity,
// sorted by key with members sorted by name.
func DetectConflicts(defs []api.ServerDefinition) []Conflict {
	groups := map[string][]ConflictingServer{}
	for _, def := range defs {
		key := identity(def)
		groups[key] = append(groups[key], ConflictingServer{ID: def.ID, Name: def.DisplayName()})
	}

	var conflicts []Conflict
	for key, servers := range groups {
		if len(servers) < 2 {
			continue
		}
		sort.Slice(servers, func(i, j int) bool {
			if servers[i].Name != servers[j].Name {
				return servers[i].Name < servers[j].Name
			}
			return servers[i].ID < servers[j].ID
		})
		conflicts = append(conflicts, Conflict{Key: key, Servers: servers})
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Key < conflicts[j].Key })
	return conflicts
}
