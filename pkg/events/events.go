package events

import (
	"sync"
	"time"
)

// Table names a local store entity family.
type Table string

const (
	TableClients       Table = "clients"
	TableSites         Table = "sites"
	TableNotifications Table = "notifications"
	TableReports       Table = "reports"
	TableDashboard     Table = "dashboard"
)

// Op describes what happened to a table.
type Op string

const (
	OpUpsert  Op = "upsert"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

// Change is emitted after every committed store write. Watchers use it
// to re-read the table and publish a fresh snapshot; the change itself
// carries no row data.
type Change struct {
	Table     Table
	Op        Op
	ID        string // empty for whole-table replaces
	Timestamp time.Time
}

// Subscriber is a channel that receives store changes.
type Subscriber chan Change

// Broker fans store changes out to subscribers. Slow subscribers are
// skipped rather than blocking the store's write path; a watcher that
// misses a change catches up on the next one because changes are only
// re-read triggers, not deltas.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	changeCh    chan Change
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new change broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		changeCh:    make(chan Change, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker. Safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish queues a change for distribution.
func (b *Broker) Publish(change Change) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	select {
	case b.changeCh <- change:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case change := <-b.changeCh:
			b.broadcast(change)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- change:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
