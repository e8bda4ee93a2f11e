package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "opencrvs/pkg/domain"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID("agent-1")
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventApplicationCreated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventApplicationCreated), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_CategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: "a", Action: string(audit.EventApplicationSubmitted)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: "a", Action: string(audit.EventVerificationFailed)}))

	events, err := pub.List(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, audit.CategorySecurity, events[1].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.UserID("agent-1")
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: string(audit.EventApplicationModified),
		}))
	}

	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_CustomTimestampKept(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return time.Unix(0, 0) }))

	custom := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: "a", Action: "x", Timestamp: custom}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: "a", Action: "y"}))

	events, err := pub.List(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, custom, events[0].Timestamp)
	assert.Equal(t, time.Unix(0, 0), events[1].Timestamp)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *recordingSink) Append(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func TestPublisher_FansOutToSinks(t *testing.T) {
	store := memory.NewInMemoryStore()
	extra := &recordingSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(store, WithSink(extra))

	err := pub.Emit(context.Background(), audit.Event{UserID: "a", Action: "x"})
	require.Error(t, err, "sink failures are surfaced in sync mode")

	events, _ := store.ListByUser(context.Background(), "a")
	assert.Len(t, events, 1, "primary store still receives the event")
	assert.Len(t, extra.events, 1)
}

func TestPublisher_AsyncSinkFailureIsLogged(t *testing.T) {
	store := memory.NewInMemoryStore()
	extra := &recordingSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(store, WithSink(extra), WithAsyncBuffer(4))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: "a", Action: "x"}))
	pub.Close()

	events, _ := store.ListByUser(context.Background(), "a")
	assert.Len(t, events, 1)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}
