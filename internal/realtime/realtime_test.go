package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string `json:"id"`
	Body string `json:"message"`
}

func newBroker(t *testing.T) (*Broker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBroker(client), mr
}

func receive(t *testing.T, ch *Channel) ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return ChangeEvent{}
}

func TestChangeEvent_DecodeUsesSlotByType(t *testing.T) {
	ins, err := NewChangeEvent("messages", Insert, row{ID: "1", Body: "A"})
	require.NoError(t, err)
	assert.NotEmpty(t, ins.New)
	assert.Empty(t, ins.Old)

	del, err := NewChangeEvent("messages", Delete, row{ID: "1"})
	require.NoError(t, err)
	assert.Empty(t, del.New)

	var got row
	require.NoError(t, del.Decode(&got))
	assert.Equal(t, "1", got.ID)

	require.Error(t, ChangeEvent{Table: "messages", Type: Update}.Decode(&got))
}

func TestEventType_Matches(t *testing.T) {
	assert.True(t, All.Matches(Insert))
	assert.True(t, EventType("").Matches(Delete))
	assert.True(t, Update.Matches(Update))
	assert.False(t, Update.Matches(Insert))
}

func TestBroker_PublishSubscribe(t *testing.T) {
	broker, _ := newBroker(t)
	ctx := context.Background()

	ch, err := broker.Subscribe(ctx, "messages", All)
	require.NoError(t, err)
	defer ch.Close()

	ev, err := NewChangeEvent("messages", Insert, row{ID: "1", Body: "hello"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, ev))

	got := receive(t, ch)
	assert.Equal(t, Insert, got.Type)
	var r row
	require.NoError(t, got.Decode(&r))
	assert.Equal(t, "hello", r.Body)
}

func TestBroker_FilterDropsOtherTypes(t *testing.T) {
	broker, _ := newBroker(t)
	ctx := context.Background()

	ch, err := broker.Subscribe(ctx, "messages", Delete)
	require.NoError(t, err)
	defer ch.Close()

	ins, _ := NewChangeEvent("messages", Insert, row{ID: "1"})
	del, _ := NewChangeEvent("messages", Delete, row{ID: "1"})
	require.NoError(t, broker.Publish(ctx, ins))
	require.NoError(t, broker.Publish(ctx, del))

	assert.Equal(t, Delete, receive(t, ch).Type)
}

func TestBroker_OtherTableNotDelivered(t *testing.T) {
	broker, _ := newBroker(t)
	ctx := context.Background()

	ch, err := broker.Subscribe(ctx, "messages", All)
	require.NoError(t, err)
	defer ch.Close()

	ev, _ := NewChangeEvent("videos", Insert, row{ID: "v"})
	require.NoError(t, broker.Publish(ctx, ev))

	select {
	case got := <-ch.Events():
		t.Fatalf("unexpected event %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_ConnectionLossFailsChannel(t *testing.T) {
	broker, mr := newBroker(t)

	ch, err := broker.Subscribe(context.Background(), "messages", All)
	require.NoError(t, err)
	defer ch.Close()

	mr.Close()

	select {
	case <-ch.Done():
		require.Error(t, ch.Err())
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not fail after connection loss")
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	ch := NewChannel(1)
	calls := 0
	ch.onClose = func() error { calls++; return nil }

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.Equal(t, 1, calls)
	assert.NoError(t, ch.Err())
	assert.False(t, ch.Deliver(ChangeEvent{}))
}

func TestChannel_FailKeepsFirstError(t *testing.T) {
	ch := NewChannel(1)
	first := errors.New("first")
	ch.Fail(first)
	ch.Fail(errors.New("second"))
	assert.Equal(t, first, ch.Err())
}
