// Package app provides application bootstrap and lifecycle management for relay.
//
// # Architecture Overview
//
// The app package is the bootstrap layer between the cobra commands and the
// internal packages:
//
//  1. **Bootstrap (`bootstrap.go`)**: Logging setup, config loading and the Application type
//  2. **Configuration (`config.go`)**: Runtime flags passed in by the CLI
//  3. **Services (`services.go`)**: Construction and wiring of every service
//  4. **Modes (`modes.go`)**: The long-running serve loop
//
// # Bootstrap Sequence
//
//  1. Logging is initialised for CLI output (stderr, or discarded when silent)
//  2. config.yaml is loaded from the config directory over the defaults
//  3. Logging is re-initialised at the configured level unless --debug is set
//  4. The store is opened (YAML documents or PostgreSQL)
//  5. The secret vault and injector are created with the configured policy
//  6. The traffic meter publishes usage snapshots on the event broker
//  7. The supervisor registry, profile reconciler, inspector, diagnostics and
//     definition manager are wired to these shared services
//
// One-shot commands use Services directly and never start long-lived
// processes. The serve loop attaches the registry to the definition manager,
// so enabling or disabling a server also starts or stops it.
//
// # Serve Mode
//
// runServe switches logging to channel mode and prints log entries together
// with lifecycle events (and optionally server output) to the console. It
// converges the process table to the active profile, then watches the YAML
// store directories and converges again after each batch of changes. On
// SIGINT or SIGTERM every server is stopped, escalating to SIGKILL after the
// configured grace period, and the reconcile metrics are logged.
//
// Example:
//
//	cfg := app.NewConfig(debug, false, configPath)
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	return application.Run(ctx)
package app
