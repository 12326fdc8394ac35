package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	id "custodia/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(_ context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestPublisher_AppendsToStore(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	actor := id.Address("0x1111111111111111111111111111111111111111")
	err := pub.Emit(context.Background(), Event{
		Actor:  actor,
		Action: string(EventEvidenceSubmitted),
	})
	require.NoError(t, err)

	events, err := pub.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(EventEvidenceSubmitted), events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	actor := id.Address("0x2222222222222222222222222222222222222222")
	before := time.Now()
	err := pub.Emit(context.Background(), Event{Actor: actor, Action: string(EventSessionEstablished)})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	actor := id.Address("0x3333333333333333333333333333333333333333")
	customTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), Event{
		Actor:     actor,
		Action:    string(EventIdentityRegistered),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_ForwardsToSink(t *testing.T) {
	store := NewInMemoryStore()
	sink := &captureSink{}
	pub := NewPublisher(store).WithSink(sink)

	actor := id.Address("0x4444444444444444444444444444444444444444")
	err := pub.Emit(context.Background(), Event{Actor: actor, Action: string(EventEvidenceApproved)})
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, string(EventEvidenceApproved), sink.events[0].Action)
}

func TestPublisher_DifferentActors(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	actor1 := id.Address("0x5555555555555555555555555555555555555555")
	actor2 := id.Address("0x6666666666666666666666666666666666666666")

	require.NoError(t, pub.Emit(context.Background(), Event{Actor: actor1, Action: string(EventEvidenceSubmitted)}))
	require.NoError(t, pub.Emit(context.Background(), Event{Actor: actor2, Action: string(EventEvidenceRejected)}))

	events1, err := pub.ListByActor(context.Background(), actor1)
	require.NoError(t, err)
	require.Len(t, events1, 1)
	assert.Equal(t, string(EventEvidenceSubmitted), events1[0].Action)

	events2, err := pub.ListByActor(context.Background(), actor2)
	require.NoError(t, err)
	require.Len(t, events2, 1)
	assert.Equal(t, string(EventEvidenceRejected), events2[0].Action)
}

func TestInMemoryStore_ListRecent(t *testing.T) {
	store := NewInMemoryStore()
	actor := id.Address("0x7777777777777777777777777777777777777777")

	actions := []CustodyEvent{EventEvidenceSubmitted, EventEvidenceAnchored, EventEvidenceApproved}
	for _, a := range actions {
		require.NoError(t, store.Append(context.Background(), Event{Actor: actor, Action: string(a)}))
	}

	recent, err := store.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, string(EventEvidenceAnchored), recent[0].Action)
	assert.Equal(t, string(EventEvidenceApproved), recent[1].Action)

	all, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWorker_PersistsFromInbox(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 4)
	worker := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	actor := id.Address("0x8888888888888888888888888888888888888888")
	inbox <- Event{Actor: actor, Action: string(EventEvidenceAssigned)}
	inbox <- Event{Actor: actor, Action: string(EventEvidenceEdited)}

	require.Eventually(t, func() bool {
		events, err := store.ListByActor(context.Background(), actor)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
