package traffic

import (
	"context"
	"sort"
	"sync"
	"time"

	"relay/internal/api"
)

const defaultQueueSize = 1024

// PublishFunc receives a copy of the snapshot after every metered line. It
// must not call back into the Meter.
type PublishFunc func(api.UsageSnapshot)

type observation struct {
	serverID  string
	direction api.Direction
	size      int
}

// Meter accumulates per-server traffic counters.
type Meter struct {
	mu      sync.Mutex
	usage   map[string]*api.UsageSnapshot
	publish PublishFunc
	queue   chan observation
	now     func() time.Time
}

// NewMeter creates a Meter. publish may be nil.
func NewMeter(publish PublishFunc) *Meter {
	return &Meter{
		usage:   make(map[string]*api.UsageSnapshot),
		publish: publish,
		queue:   make(chan observation, defaultQueueSize),
		now:     time.Now,
	}
}

// EstimateTokens approximates a token count as one token per four bytes,
// rounded up. It is not a tokenizer.
func EstimateTokens(bytes int) uint64 {
	if bytes <= 0 {
		return 0
	}
	return uint64((bytes + 3) / 4)
}

// Record meters one line synchronously and returns the updated snapshot.
func (m *Meter) Record(serverID string, direction api.Direction, payload []byte) api.UsageSnapshot {
	return m.apply(observation{serverID: serverID, direction: direction, size: len(payload)})
}

// Observe queues one line for the goroutine running Run. When the queue is
// full the line is metered on the caller's goroutine instead.
func (m *Meter) Observe(serverID string, direction api.Direction, payload []byte) {
	obs := observation{serverID: serverID, direction: direction, size: len(payload)}
	select {
	case m.queue <- obs:
	default:
		m.apply(obs)
	}
}

// Run meters queued observations until ctx is done, then drains what is left.
func (m *Meter) Run(ctx context.Context) {
	for {
		select {
		case obs := <-m.queue:
			m.apply(obs)
		case <-ctx.Done():
			for {
				select {
				case obs := <-m.queue:
					m.apply(obs)
				default:
					return
				}
			}
		}
	}
}

func (m *Meter) apply(obs observation) api.UsageSnapshot {
	tokens := EstimateTokens(obs.size)

	m.mu.Lock()
	u, ok := m.usage[obs.serverID]
	if !ok {
		u = &api.UsageSnapshot{ServerID: obs.serverID}
		m.usage[obs.serverID] = u
	}
	switch obs.direction {
	case api.Outbound:
		u.BytesOut += uint64(obs.size)
		u.TokensOut += tokens
		u.MessagesOut++
	default:
		u.BytesIn += uint64(obs.size)
		u.TokensIn += tokens
		u.MessagesIn++
	}
	u.TotalBytes = u.BytesIn + u.BytesOut
	u.TotalTokens = u.TokensIn + u.TokensOut
	u.UpdatedAt = m.now().UTC()
	snapshot := *u
	m.mu.Unlock()

	if m.publish != nil {
		m.publish(snapshot)
	}
	return snapshot
}

// Snapshot returns the counters of one server.
func (m *Meter) Snapshot(serverID string) (api.UsageSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.usage[serverID]
	if !ok {
		return api.UsageSnapshot{ServerID: serverID}, false
	}
	return *u, true
}

// Snapshots returns the counters of every metered server sorted by id.
func (m *Meter) Snapshots() []api.UsageSnapshot {
	m.mu.Lock()
	out := make([]api.UsageSnapshot, 0, len(m.usage))
	for _, u := range m.usage {
		out = append(out, *u)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ServerID < out[j].ServerID })
	return out
}

// Reset forgets the counters of one server.
func (m *Meter) Reset(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.usage, serverID)
}
