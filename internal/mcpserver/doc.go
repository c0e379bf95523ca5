// Package mcpserver manages server definitions on behalf of the CLI and the
// serve loop.
//
// # Definitions
//
// A definition names a local command with its arguments, plain environment
// variables and the names of the secrets it needs. Secret values live in the
// vault and never in the definition. New servers get a generated id, start
// disabled and belong to the active profile unless told otherwise.
//
// # Validation
//
// Name and command are required. Env and secret keys must be valid
// environment variable names, and a key may not be both a plain variable and
// a secret:
//
//	err := mcpserver.ValidateDefinition(def)
//	// validation failed for server 'files': field 'secrets': API_KEY cannot be both a plain variable and a secret
//
// # Enabling and deleting
//
// When a Supervisor is wired in, disabling or deleting a server stops its
// process before the store changes, and enabling a server of the active
// profile spawns it once. Deleting a server also deletes its secrets.
package mcpserver
