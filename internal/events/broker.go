package events

import (
	"sync"
	"sync/atomic"

	"relay/internal/api"
)

const defaultSubscriberBuffer = 256

type subscription struct {
	ch     chan Event
	topics map[Topic]bool
}

func (s *subscription) wants(t Topic) bool {
	return len(s.topics) == 0 || s.topics[t]
}

// Broker fans events out to subscribers. Publishing never blocks: an event
// is dropped for a subscriber whose buffer is full.
type Broker struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	nextID  int
	closed  bool
	dropped atomic.Uint64
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscription)}
}

// Subscribe registers a subscriber for the given topics, or all topics when
// none are given. The returned function unsubscribes and closes the channel.
func (b *Broker) Subscribe(bufferSize int, topics ...Topic) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	sub := &subscription{
		ch:     make(chan Event, bufferSize),
		topics: make(map[Topic]bool, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Broker) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers e to every subscriber of its topic.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.wants(e.Topic) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishUsage publishes a usage snapshot.
func (b *Broker) PublishUsage(s api.UsageSnapshot) {
	b.Publish(Event{Topic: TopicUsage, Usage: &s})
}

// PublishLog publishes a server output line.
func (b *Broker) PublishLog(e api.LogEvent) {
	b.Publish(Event{Topic: TopicLog, Log: &e})
}

// PublishLifecycle publishes a lifecycle event.
func (b *Broker) PublishLifecycle(e LifecycleEvent) {
	b.Publish(Event{Topic: TopicLifecycle, Lifecycle: &e})
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
