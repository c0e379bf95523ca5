// Package secrets resolves the secret environment variables of a server.
//
// Definitions only carry secret key names. Values live in a Vault and are
// merged into the environment handed to the process at launch time; they are
// never written back to a definition or exported.
package secrets
