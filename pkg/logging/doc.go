// Package logging provides the subsystem-scoped logger used throughout relay.
//
// It is a thin layer over log/slog. Every record carries a subsystem name so
// supervisor, protocol and reconciler output can be filtered independently.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Registry", "Spawned %s (pid %d)", id, pid)
//	logging.Debug("Protocol", "Skipping non-protocol line from %s", id)
//	logging.Warn("Reconciler", "Server %s failed to start", id)
//	logging.Error("Inspector", err, "tools/list failed for %s", id)
//
// # Channel mode
//
// The serve command renders log records together with server output. It
// calls InitForChannel and drains the returned channel; entries below the
// filter level are never sent. A full channel drops the entry and reports the
// loss on stderr instead of blocking the caller.
package logging
