package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveOne(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcastReachesAllRoomMembers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	room := OrderRoom("ord-1")
	first := hub.Subscribe(ctx, room)
	second := hub.Subscribe(ctx, room)
	assert.Equal(t, 2, hub.MemberCount(room))

	hub.Publish(room, Event{Type: EventOrderUpdated, OrderID: "ord-1"})

	for _, ch := range []chan Event{first, second} {
		ev := receiveOne(t, ch)
		assert.Equal(t, EventOrderUpdated, ev.Type)
		assert.Equal(t, "ord-1", ev.OrderID)
	}
}

func TestPublishIsRoomScoped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := hub.Subscribe(ctx, OrderRoom("ord-1"))
	bystander := hub.Subscribe(ctx, OrderRoom("ord-2"))

	hub.Publish(OrderRoom("ord-1"), Event{Type: EventOrderUpdated, OrderID: "ord-1"})

	receiveOne(t, watcher)
	select {
	case ev := <-bystander:
		t.Fatalf("bystander in another room received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.Publish(UserRoom("nobody"), Event{Type: EventNotification})
	assert.Equal(t, 0, hub.MemberCount(UserRoom("nobody")))
}

func TestCancelLeavesRoomAndClosesChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	room := UserRoom("user-1")
	ch := hub.Subscribe(ctx, room)
	require.Equal(t, 1, hub.MemberCount(room))

	cancel()

	// Removal runs in a goroutine off ctx.Done()
	deadline := time.Now().Add(time.Second)
	for hub.MemberCount(room) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.MemberCount(room))

	_, open := <-ch
	assert.False(t, open, "channel must be closed on leave")
}

func TestSlowMemberIsSkippedNotBlocked(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	room := UserRoom("user-1")
	ch := hub.Subscribe(ctx, room)

	// Fill the buffer and keep publishing; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			hub.Publish(room, Event{Type: EventNotification, Message: "msg"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow member")
	}

	// The buffered portion is still delivered in order
	ev := receiveOne(t, ch)
	assert.Equal(t, EventNotification, ev.Type)
}

func TestPublishDuringDisconnectDoesNotPanic(t *testing.T) {
	hub := NewHub()
	room := OrderRoom("churn")

	// Hammer the room while members connect and drop. A send on a
	// channel closed by a concurrent leave would panic the publisher.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Publish(room, Event{Type: EventOrderUpdated, OrderID: "churn"})
		}
	}()

	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch := hub.Subscribe(ctx, room)
		go func(ch chan Event) {
			for range ch {
			}
		}(ch)
		cancel()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not finish")
	}
}
