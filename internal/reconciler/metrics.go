package reconciler

import (
	"sync"
	"time"

	"relay/pkg/logging"
)

// Operation names a kind of reconciliation run.
type Operation string

const (
	OperationSwitch Operation = "switch"
	OperationSync   Operation = "sync"
)

// Metrics tracks reconciliation runs so serve can report how the process
// table converged.
type Metrics struct {
	mu sync.RWMutex

	perOperation map[Operation]*operationMetrics

	totalAttempts  int64
	totalSuccesses int64
	totalFailures  int64
	spawnFailures  int64
}

type operationMetrics struct {
	Attempts      int64
	Successes     int64
	Failures      int64
	LastAttemptAt time.Time
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{perOperation: make(map[Operation]*operationMetrics)}
}

func (m *Metrics) get(op Operation) *operationMetrics {
	if om, ok := m.perOperation[op]; ok {
		return om
	}
	om := &operationMetrics{}
	m.perOperation[op] = om
	return om
}

// RecordAttempt records the start of a run.
func (m *Metrics) RecordAttempt(op Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	om := m.get(op)
	om.Attempts++
	om.LastAttemptAt = time.Now()
	m.totalAttempts++
}

// RecordSuccess records a run that finished. spawnFailures counts servers
// that could not be started during the run.
func (m *Metrics) RecordSuccess(op Operation, spawnFailures int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	om := m.get(op)
	om.Successes++
	om.LastSuccessAt = time.Now()
	m.totalSuccesses++
	m.spawnFailures += int64(spawnFailures)
}

// RecordFailure records a run that was aborted.
func (m *Metrics) RecordFailure(op Operation, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	om := m.get(op)
	om.Failures++
	om.LastFailureAt = time.Now()
	m.totalFailures++

	logging.Warn("ReconcilerMetrics", "%s failed: %s (failures: %d)", op, reason, om.Failures)
}

// MetricsSummary is a read-only view of Metrics.
type MetricsSummary struct {
	TotalAttempts  int64                       `json:"totalAttempts"`
	TotalSuccesses int64                       `json:"totalSuccesses"`
	TotalFailures  int64                       `json:"totalFailures"`
	SpawnFailures  int64                       `json:"spawnFailures"`
	PerOperation   map[Operation]OperationView `json:"perOperation"`
	FailureRate    float64                     `json:"failureRate"`
}

// OperationView is a read-only view of the metrics of one operation.
type OperationView struct {
	Attempts      int64     `json:"attempts"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	LastAttemptAt time.Time `json:"lastAttemptAt,omitempty"`
	LastSuccessAt time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt time.Time `json:"lastFailureAt,omitempty"`
}

// Summary returns a snapshot of the metrics.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := MetricsSummary{
		TotalAttempts:  m.totalAttempts,
		TotalSuccesses: m.totalSuccesses,
		TotalFailures:  m.totalFailures,
		SpawnFailures:  m.spawnFailures,
		PerOperation:   make(map[Operation]OperationView, len(m.perOperation)),
	}
	for op, om := range m.perOperation {
		summary.PerOperation[op] = OperationView(*om)
	}
	if m.totalAttempts > 0 {
		summary.FailureRate = float64(m.totalFailures) / float64(m.totalAttempts)
	}
	return summary
}
