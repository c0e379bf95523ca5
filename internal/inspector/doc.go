// Package inspector lists and calls the tools of a server without touching
// the supervisor's process table.
//
// Every call launches a private copy of the server, runs the initialize
// handshake, issues exactly one domain request and terminates the process
// before returning, on success and on every error path.
package inspector
