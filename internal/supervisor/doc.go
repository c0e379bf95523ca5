// Package supervisor launches and supervises local MCP server processes.
//
// A Registry keeps at most one Process per server id. Every process runs in
// its own process group; stopping it sends SIGTERM to the group, waits for
// the stop grace period and then sends SIGKILL. Two reader goroutines per
// process turn stdout and stderr lines into log events, and stdout lines are
// metered inbound. A process that exits on its own is removed from the table
// and reported, but never restarted.
//
// Spawn, Stop, Restart, Reconcile and StopAll are serialised by the registry
// mutex. Reader goroutines never take it.
package supervisor
