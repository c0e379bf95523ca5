package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"relay/pkg/logging"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reports changes of the YAML store documents.
//
// It uses fsnotify to watch the store directories and emits one ChangeEvent
// per document once changes to it have settled for the debounce interval.
type Watcher struct {
	mu sync.Mutex

	// baseDir is the configuration directory holding the store directories
	baseDir string

	dirs     []string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	// pending tracks debounced events by document key
	pending map[string]*debounceEntry

	stopCh  chan struct{}
	running bool
}

// debounceEntry tracks a pending event for debouncing.
type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// NewWatcher creates a watcher for dirs, which must live directly below baseDir.
func NewWatcher(baseDir string, dirs []string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		baseDir:  baseDir,
		dirs:     append([]string(nil), dirs...),
		debounce: debounce,
		pending:  make(map[string]*debounceEntry),
		stopCh:   make(chan struct{}),
	}
}

// Start begins watching. Events are delivered on changes until ctx is done
// or Stop is called. Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Warn("Watcher", "Failed to create %s: %v", dir, err)
			continue
		}
		if err := fsw.Add(dir); err != nil {
			logging.Warn("Watcher", "Failed to watch %s: %v", dir, err)
			continue
		}
		logging.Debug("Watcher", "Watching directory: %s", dir)
	}

	go w.processEvents(ctx, fsw, changes)

	logging.Info("Watcher", "Started watching %s for store changes", w.baseDir)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- ChangeEvent) {
	w.mu.Lock()
	stopCh := w.stopCh
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			w.cleanupPending()
			return

		case <-stopCh:
			w.cleanupPending()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event, changes)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	if !isYAMLFile(event.Name) {
		return
	}

	entityType, name := w.parseFilePath(event.Name)
	if entityType == entityUnknown {
		return
	}

	var operation ChangeOperation
	switch {
	case event.Op.Has(fsnotify.Create):
		operation = OperationCreate
	case event.Op.Has(fsnotify.Write):
		operation = OperationUpdate
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// A rename away is a delete; the new name arrives as a create.
		operation = OperationDelete
	default:
		return
	}

	w.debounceEvent(ChangeEvent{
		Type:      entityType,
		Name:      name,
		Operation: operation,
		Timestamp: time.Now(),
		FilePath:  event.Name,
	}, changes)
}

func (w *Watcher) debounceEvent(event ChangeEvent, changes chan<- ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := string(event.Type) + "/" + event.Name

	if entry, ok := w.pending[key]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	timer := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		entry, ok := w.pending[key]
		if ok {
			delete(w.pending, key)
		}
		w.mu.Unlock()

		if !ok {
			return
		}
		select {
		case changes <- entry.event:
			logging.Debug("Watcher", "Emitted change event: %s %s/%s",
				entry.event.Operation, entry.event.Type, entry.event.Name)
		default:
			logging.Warn("Watcher", "Change event channel full, dropping event for %s/%s",
				entry.event.Type, entry.event.Name)
		}
	})

	w.pending[key] = &debounceEntry{event: event, timer: timer}
}

// mergeOperations folds a new operation into a pending one.
func mergeOperations(old, new ChangeOperation) ChangeOperation {
	switch {
	case new == OperationDelete:
		return OperationDelete
	case old == OperationCreate:
		return OperationCreate
	default:
		return new
	}
}

// parseFilePath extracts the entity type and document name from a path.
func (w *Watcher) parseFilePath(path string) (EntityType, string) {
	relPath, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return entityUnknown, ""
	}
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) != 2 {
		return entityUnknown, ""
	}

	var entityType EntityType
	switch EntityType(parts[0]) {
	case EntityServer, EntityProfile, EntitySetting:
		entityType = EntityType(parts[0])
	default:
		return entityUnknown, ""
	}

	name := strings.TrimSuffix(parts[1], filepath.Ext(parts[1]))
	if name == "" || strings.HasPrefix(name, ".") {
		return entityUnknown, ""
	}
	return entityType, name
}

func (w *Watcher) cleanupPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range w.pending {
		entry.timer.Stop()
	}
	w.pending = make(map[string]*debounceEntry)
}

// Stop stops the watcher. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
		if err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}

	logging.Info("Watcher", "Stopped store watcher")
	return err
}

// isYAMLFile checks if a file path is a YAML file.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
