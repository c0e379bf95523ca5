// Package diagnostics helps users find out why a server does not start.
//
// CheckDependencies looks for the command binary and the runtimes it implies
// (node for npx, python for uv, docker) on PATH. TestConnection launches a
// private copy of the server, sends initialize and reports what happened
// together with hints derived from the error and the first lines of stderr.
// DetectConflicts finds servers that were installed twice.
package diagnostics
