package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"relay/internal/events"
	"relay/internal/reconciler"
	"relay/internal/store"
	"relay/internal/supervisor"
	"relay/pkg/logging"
)

// shutdownSlack is added to the stop grace period when bounding StopAll.
const shutdownSlack = 5 * time.Second

// runServe supervises the enabled servers of the active profile until the
// context is cancelled or the process receives SIGINT or SIGTERM.
//
// Behavior:
//   - Streams log entries and lifecycle events to the console
//   - Starts the enabled servers of the active profile
//   - Watches the YAML store and converges on every change
//   - Stops every server on shutdown
func runServe(ctx context.Context, cfg *Config, services *Services) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	entries := logging.InitForChannel(logLevel(cfg, services.Config.LogLevel), 0)
	topics := []events.Topic{events.TopicLifecycle}
	if cfg.ServerLogs {
		topics = append(topics, events.TopicLog)
	}
	sub, unsubscribe := services.Broker.Subscribe(0, topics...)

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		printConsole(out, entries, sub)
	}()
	defer func() {
		unsubscribe()
		logging.CloseChannel()
		<-consoleDone
	}()

	services.AttachSupervisor()

	meterCtx, stopMeter := context.WithCancel(context.Background())
	defer stopMeter()
	go services.Meter.Run(meterCtx)

	report, err := services.Reconciler.Sync(ctx)
	if err != nil {
		logging.Error("Serve", err, "Failed to start servers of the active profile")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), services.Config.Supervisor.StopGracePeriod+shutdownSlack)
		defer stopCancel()
		_ = services.Registry.Shutdown(stopCtx)
		return err
	}
	logReport(report)

	var wg sync.WaitGroup
	if services.Config.Watch.IsEnabled() {
		if yamlStore, ok := services.Store.(*store.YAMLStore); ok {
			if err := startWatcher(ctx, &wg, services, yamlStore); err != nil {
				logging.Warn("Serve", "Store watcher disabled: %v", err)
			}
		} else {
			logging.Debug("Serve", "Store driver %s is not watched", services.Config.Store.Driver)
		}
	}

	logging.Info("Serve", "Serving %d servers. Press Ctrl+C to stop all servers and exit.", len(services.Registry.Running()))
	<-ctx.Done()

	// The watcher may be in the middle of a Sync; let it finish before the
	// table is emptied so nothing is spawned behind Shutdown.
	wg.Wait()

	logging.Info("Serve", "Shutting down servers")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), services.Config.Supervisor.StopGracePeriod+shutdownSlack)
	defer stopCancel()
	stopErr := services.Registry.Shutdown(stopCtx)

	summary := services.Reconciler.Metrics().Summary()
	logging.Info("Serve", "Reconciled %d times (%d failed, %d spawn failures)", summary.TotalAttempts, summary.TotalFailures, summary.SpawnFailures)

	if stopErr != nil {
		logging.Error("Serve", stopErr, "Failed to stop all servers")
		return stopErr
	}
	return nil
}

func startWatcher(ctx context.Context, wg *sync.WaitGroup, services *Services, yamlStore *store.YAMLStore) error {
	baseDir, err := services.Storage.ConfigDir()
	if err != nil {
		return err
	}
	dirs, err := yamlStore.Dirs()
	if err != nil {
		return err
	}

	w := reconciler.NewWatcher(baseDir, dirs, services.Config.Watch.Debounce)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reconciler.WatchAndSync(ctx, w, services.Reconciler); err != nil {
			logging.Error("Serve", err, "Store watcher stopped")
		}
	}()
	return nil
}

func logReport(report supervisor.ReconcileReport) {
	for id, err := range report.Failed {
		logging.Warn("Serve", "Server %s failed to start: %v", id, err)
	}
	logging.Info("Serve", "Started %d servers (%d already running, %d failed)", len(report.Started), len(report.AlreadyRunning), len(report.Failed))
}

// printConsole writes log entries and broker events to out until both
// channels are closed.
func printConsole(out io.Writer, entries <-chan logging.LogEntry, sub <-chan events.Event) {
	for entries != nil || sub != nil {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			fmt.Fprintln(out, formatEntry(entry))
		case e, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			if line := formatEvent(e); line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}
}

func formatEntry(entry logging.LogEntry) string {
	line := fmt.Sprintf("%s %-5s [%s] %s", entry.Timestamp.Format(time.TimeOnly), entry.Level, entry.Subsystem, entry.Message)
	if entry.Err != nil {
		line += ": " + entry.Err.Error()
	}
	return line
}

func formatEvent(e events.Event) string {
	switch {
	case e.Lifecycle != nil:
		return fmt.Sprintf("%s %-5s [%s] %s", e.Lifecycle.Timestamp.Format(time.TimeOnly), "EVENT", e.Lifecycle.Reason, e.Lifecycle.Message)
	case e.Log != nil:
		return fmt.Sprintf("%s %s[%s] %s", e.Log.Timestamp.Format(time.TimeOnly), e.Log.ID, e.Log.Stream, e.Log.Message)
	default:
		return ""
	}
}
