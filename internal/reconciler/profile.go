package reconciler

import (
	"context"
	"fmt"
	"sync"

	"relay/internal/api"
	"relay/internal/events"
	"relay/internal/store"
	"relay/internal/supervisor"
	"relay/pkg/logging"
)

// ProcessTable is the part of the supervisor the reconciler drives.
type ProcessTable interface {
	Reconcile(ctx context.Context, desired []api.ServerDefinition) supervisor.ReconcileReport
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
	StopAll(ctx context.Context) error
	Running() []supervisor.RunningServer
}

// ProfileReconciler converges the process table to the active profile.
// Its mutex is always taken before the registry's.
type ProfileReconciler struct {
	mu      sync.Mutex
	store   store.Store
	table   ProcessTable
	events  *events.EventGenerator
	metrics *Metrics
}

// NewProfileReconciler creates a reconciler. gen may be nil.
func NewProfileReconciler(s store.Store, table ProcessTable, gen *events.EventGenerator) *ProfileReconciler {
	return &ProfileReconciler{
		store:   s,
		table:   table,
		events:  gen,
		metrics: NewMetrics(),
	}
}

// Metrics returns the reconciliation metrics.
func (r *ProfileReconciler) Metrics() *Metrics { return r.metrics }

// SwitchProfile makes profileID active, stops every running server and
// starts the enabled servers of the new profile.
func (r *ProfileReconciler) SwitchProfile(ctx context.Context, profileID string) (supervisor.ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.RecordAttempt(OperationSwitch)

	profile, err := r.store.GetProfile(ctx, profileID)
	if err != nil {
		r.metrics.RecordFailure(OperationSwitch, err.Error())
		return supervisor.ReconcileReport{}, err
	}
	if err := r.store.SetActiveProfile(ctx, profile.ID); err != nil {
		r.metrics.RecordFailure(OperationSwitch, err.Error())
		return supervisor.ReconcileReport{}, fmt.Errorf("failed to persist active profile: %w", err)
	}

	if err := r.table.StopAll(ctx); err != nil {
		r.metrics.RecordFailure(OperationSwitch, err.Error())
		return supervisor.ReconcileReport{}, fmt.Errorf("failed to stop running servers: %w", err)
	}

	desired, err := r.store.ListEnabledServers(ctx, profile.ID)
	if err != nil {
		r.metrics.RecordFailure(OperationSwitch, err.Error())
		return supervisor.ReconcileReport{}, fmt.Errorf("failed to list servers of profile %s: %w", profile.ID, err)
	}

	report := r.table.Reconcile(ctx, desired)
	r.metrics.RecordSuccess(OperationSwitch, len(report.Failed))

	logging.Info("Reconciler", "Switched to profile %s: %d started, %d failed", profile.ID, len(report.Started), len(report.Failed))
	r.events.ProfileEvent(profile.ID, profile.Name, events.ReasonProfileSwitched, len(report.Started))
	return report, nil
}

// Sync stops running servers the active profile no longer wants, restarts
// those whose definition changed after they were started and starts the
// missing ones.
func (r *ProfileReconciler) Sync(ctx context.Context) (supervisor.ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.RecordAttempt(OperationSync)

	active, err := r.store.ActiveProfile(ctx)
	if err != nil {
		r.metrics.RecordFailure(OperationSync, err.Error())
		return supervisor.ReconcileReport{}, fmt.Errorf("failed to read active profile: %w", err)
	}
	desired, err := r.store.ListEnabledServers(ctx, active)
	if err != nil {
		r.metrics.RecordFailure(OperationSync, err.Error())
		return supervisor.ReconcileReport{}, fmt.Errorf("failed to list servers of profile %s: %w", active, err)
	}

	wanted := make(map[string]api.ServerDefinition, len(desired))
	for _, def := range desired {
		wanted[def.ID] = def
	}

	stopped, restarted := 0, 0
	for _, running := range r.table.Running() {
		def, ok := wanted[running.ID]
		switch {
		case !ok:
			if err := r.table.Stop(ctx, running.ID); err != nil {
				logging.Warn("Reconciler", "Failed to stop server %s: %v", running.ID, err)
				continue
			}
			stopped++
		case def.UpdatedAt.After(running.Revision):
			if err := r.table.Restart(ctx, running.ID); err != nil {
				logging.Warn("Reconciler", "Failed to restart changed server %s: %v", running.ID, err)
				continue
			}
			restarted++
		}
	}

	report := r.table.Reconcile(ctx, desired)
	r.metrics.RecordSuccess(OperationSync, len(report.Failed))

	if changed := len(report.Started) + restarted + stopped; changed > 0 {
		logging.Info("Reconciler", "Synced profile %s: %d started, %d restarted, %d stopped, %d failed", active, len(report.Started), restarted, stopped, len(report.Failed))
		r.events.ProfileEvent(active, active, events.ReasonProfileSynced, changed)
	}
	return report, nil
}

// WatchAndSync runs Sync after every batch of store changes reported by w
// until ctx is done.
func WatchAndSync(ctx context.Context, w *Watcher, r *ProfileReconciler) error {
	changes := make(chan ChangeEvent, 64)
	if err := w.Start(ctx, changes); err != nil {
		return fmt.Errorf("failed to start store watcher: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-changes:
			logging.Debug("Reconciler", "Store change %s %s/%s", change.Operation, change.Type, change.Name)
			drainChanges(changes)
			if _, err := r.Sync(ctx); err != nil {
				logging.Error("Reconciler", err, "Failed to sync after store change")
			}
		}
	}
}

// drainChanges discards queued events; one Sync covers them all.
func drainChanges(changes <-chan ChangeEvent) {
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}
