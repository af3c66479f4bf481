package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	assert.Equal(t, 2, b.SubscriberCount())

	b.Publish(Change{Table: TableClients, Op: OpUpsert, ID: "c1"})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case change := <-sub:
			assert.Equal(t, TableClients, change.Table)
			assert.Equal(t, "c1", change.ID)
			assert.False(t, change.Timestamp.IsZero(), "timestamp is stamped on publish")
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive the change")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)

	// A second unsubscribe of the same channel is a no-op.
	b.Unsubscribe(sub)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()

	// Overflow the subscriber buffer; Publish must keep returning.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(Change{Table: TableSites, Op: OpUpsert})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The subscriber still drains what its buffer held.
	select {
	case change := <-sub:
		require.Equal(t, TableSites, change.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("no buffered change received")
	}
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(Change{Table: TableClients})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after stop")
	}
}
