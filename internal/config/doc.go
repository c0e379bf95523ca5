// Package config provides configuration management for relay.
//
// Configuration is loaded from a single directory. The default is
// ~/.config/relay; every command accepts --config-path to use another one.
//
// # Configuration Directory
//
// The directory contains:
//   - config.yaml (optional; missing keys keep their defaults)
//   - secrets.yaml (the file vault, mode 0600)
//   - servers/, profiles/ and settings/ when the YAML store is used
//
// # Example config.yaml
//
//	store:
//	  driver: yaml
//	secrets:
//	  policy: fail-closed
//	protocol:
//	  attemptBudget: 20
//	  lineWait: 300ms
//	  initTimeout: 15s
//	supervisor:
//	  stopGracePeriod: 5s
//	watch:
//	  debounce: 500ms
//	logLevel: debug
//
// Durations use Go duration syntax.
//
// # Entity Storage
//
// Storage persists one YAML document per entity in a type-specific
// subdirectory and is the backing layer of the YAML store. Writes replace the
// file atomically so the directory watcher never observes half-written
// documents.
package config
