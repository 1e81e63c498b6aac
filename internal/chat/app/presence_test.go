package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPresence_TwoConnectionsFireOnce(t *testing.T) {
	h := newHarness(nil)
	observer := h.connect(t, "observer")

	a1 := NewClient("alice", 8)
	a2 := NewClient("alice", 8)
	assert.True(t, h.presence.Connect(a1))
	assert.False(t, h.presence.Connect(a2))

	online := ofAction(drain(t, observer), domain.UserOnline)
	require.Len(t, online, 1)
	var ev domain.PresenceEvent
	online[0].decode(t, &ev)
	assert.Equal(t, "alice", ev.UserID)

	h.presence.Disconnect(a1)
	assert.True(t, h.registry.IsOnline("alice"))
	assert.Empty(t, ofAction(drain(t, observer), domain.UserOffline))

	h.presence.Disconnect(a2)
	h.presence.Disconnect(a2)
	assert.False(t, h.registry.IsOnline("alice"))
	assert.Len(t, ofAction(drain(t, observer), domain.UserOffline), 1)
	assert.True(t, a1.Closed())
	assert.True(t, a2.Closed())
}

func TestPresence_MirrorReceivesTransitionsInOrder(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	dispatcher := NewDispatcher(registry)
	mirror := new(MockPresenceMirror)
	calls := make(chan string, 4)
	mirror.On("Online", mock.Anything, "alice").Return(nil).Run(func(mock.Arguments) { calls <- "online" }).Once()
	mirror.On("Offline", mock.Anything, "alice").Return(nil).Run(func(mock.Arguments) { calls <- "offline" }).Once()

	p := NewPresenceBroadcaster(registry, dispatcher, mirror)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	c1 := NewClient("alice", 8)
	c2 := NewClient("alice", 8)
	p.Connect(c1)
	p.Connect(c2)
	p.Disconnect(c1)
	p.Disconnect(c2)

	for _, want := range []string{"online", "offline"} {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("mirror never saw %s", want)
		}
	}
	mirror.AssertExpectations(t)
}

func TestDispatcher_SlowClientDropped(t *testing.T) {
	h := newHarness(nil)
	observer := h.connect(t, "observer")
	fast := h.connect(t, "alice")
	slow := NewClient("bob", 1)
	h.presence.Connect(slow)

	h.registry.Join(fast, "alice_bob")
	h.registry.Join(slow, "alice_bob")
	drain(t, observer)
	drain(t, fast)
	// slow still holds its own user_online frame, queue is full

	h.dispatcher.ToRoom("alice_bob", domain.Event(domain.MessagesDelivered, domain.DeliveredEvent{ChatID: "alice_bob", UserID: "alice"}))

	assert.Len(t, ofAction(drain(t, fast), domain.MessagesDelivered), 1)
	assert.True(t, slow.Closed())
	assert.False(t, h.registry.IsOnline("bob"))
	assert.Len(t, ofAction(drain(t, observer), domain.UserOffline), 1)
}

func TestPresence_SlowPeerDroppedByPresenceBroadcast(t *testing.T) {
	h := newHarness(nil)
	observer := h.connect(t, "observer")
	slow := NewClient("bob", 1)
	h.presence.Connect(slow)
	drain(t, observer)
	// slow still holds its own user_online frame

	alice := NewClient("alice", 8)
	assert.True(t, h.presence.Connect(alice))

	assert.True(t, slow.Closed())
	assert.False(t, h.registry.IsOnline("bob"))
	frames := drain(t, observer)
	assert.Len(t, ofAction(frames, domain.UserOnline), 1)
	assert.Len(t, ofAction(frames, domain.UserOffline), 1)
	assert.True(t, h.registry.IsOnline("alice"))
}

func TestDispatcher_DropWithoutPresenceClosesClient(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	d := NewDispatcher(registry)
	c := NewClient("alice", 1)
	registry.Register(c)

	assert.True(t, d.ToClient(c, domain.Event(domain.UserOnline, nil)))
	assert.False(t, d.ToClient(c, domain.Event(domain.UserOnline, nil)))
	assert.True(t, c.Closed())
}

// a tab reload races the old connection's close against the new one's open,
// peers and the mirror must end on the state the registry holds
func TestPresence_ReconnectRaceKeepsOrder(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	dispatcher := NewDispatcher(registry)

	var (
		mu       sync.Mutex
		mirrored []string
	)
	record := func(state string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			mirrored = append(mirrored, state)
			mu.Unlock()
		}
	}
	mirror := new(MockPresenceMirror)
	mirror.On("Online", mock.Anything, "alice").Return(nil).Run(record("online")).Maybe()
	mirror.On("Offline", mock.Anything, "alice").Return(nil).Run(record("offline")).Maybe()

	p := NewPresenceBroadcaster(registry, dispatcher, mirror)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	observer := NewClient("observer", 64)
	p.Connect(observer)
	drain(t, observer)

	const rounds = 400
	emitted := 0
	old := NewClient("alice", 8)
	p.Connect(old)
	drain(t, observer)
	emitted++
	for i := 0; i < rounds; i++ {
		next := NewClient("alice", 8)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); p.Disconnect(old) }()
		go func() { defer wg.Done(); p.Connect(next) }()
		wg.Wait()

		var last string
		for _, f := range drain(t, observer) {
			if f.Action != string(domain.UserOnline) && f.Action != string(domain.UserOffline) {
				continue
			}
			var ev domain.PresenceEvent
			f.decode(t, &ev)
			if ev.UserID == "alice" {
				last = f.Action
				emitted++
			}
		}
		require.True(t, registry.IsOnline("alice"))
		if last != "" {
			require.Equal(t, string(domain.UserOnline), last, "round %d", i)
		}
		drain(t, next)
		old = next
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(mirrored) == emitted
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "online", mirrored[len(mirrored)-1])
}
