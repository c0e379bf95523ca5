// Package reconciler keeps the running servers in line with the active
// profile.
//
// ProfileReconciler.SwitchProfile persists the new active profile, stops
// every running server and starts the enabled servers of the new profile, so
// two profiles never run side by side. Sync converges the process table to
// the active profile without a full restart.
//
// The Watcher watches the YAML store directories with fsnotify. Rapid
// successive writes to the same document are debounced into one ChangeEvent,
// and WatchAndSync runs one Sync per batch of changes:
//
//	w := reconciler.NewWatcher(configDir, dirs, cfg.Watch.Debounce)
//	go reconciler.WatchAndSync(ctx, w, profiles)
package reconciler
