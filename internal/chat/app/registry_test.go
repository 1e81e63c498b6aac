package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionRegistry_RegisterUnregister(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := NewClient("alice", 4)
	c2 := NewClient("alice", 4)

	assert.True(t, r.Register(c1))
	assert.False(t, r.Register(c2))
	assert.False(t, r.Register(c2), "registering twice is not a new connection")
	assert.True(t, r.IsOnline("alice"))
	assert.Len(t, r.ConnectionsOf("alice"), 2)

	removed, last := r.Unregister(c1)
	assert.True(t, removed)
	assert.False(t, last)
	assert.True(t, r.IsOnline("alice"))

	removed, last = r.Unregister(c2)
	assert.True(t, removed)
	assert.True(t, last)
	assert.False(t, r.IsOnline("alice"))

	removed, last = r.Unregister(c2)
	assert.False(t, removed)
	assert.False(t, last)
}

func TestConnectionRegistry_Join(t *testing.T) {
	r := NewConnectionRegistry()
	c := NewClient("alice", 4)

	assert.False(t, r.Join(c, "alice_bob"), "unregistered connection cannot join")

	r.Register(c)
	assert.False(t, r.IsUserSubscribedToRoom("alice", "alice_bob"))
	assert.True(t, r.Join(c, "alice_bob"))
	assert.True(t, r.Join(c, "alice_bob"))
	assert.True(t, r.IsUserSubscribedToRoom("alice", "alice_bob"))
	assert.False(t, r.IsUserSubscribedToRoom("bob", "alice_bob"))
	assert.Len(t, r.RoomSubscribers("alice_bob"), 1)

	// closed connections no longer count as viewing the room
	c.Close()
	assert.False(t, r.IsUserSubscribedToRoom("alice", "alice_bob"))

	r.Unregister(c)
	assert.Empty(t, r.RoomSubscribers("alice_bob"))
}

func TestConnectionRegistry_Leave(t *testing.T) {
	r := NewConnectionRegistry()
	c := NewClient("alice", 4)
	r.Register(c)

	r.Leave(c, "alice_bob")
	assert.False(t, r.Joined(c, "alice_bob"))

	r.Join(c, "alice_bob")
	r.Join(c, "alice_carol")
	assert.True(t, r.Joined(c, "alice_bob"))

	r.Leave(c, "alice_bob")
	assert.False(t, r.Joined(c, "alice_bob"))
	assert.False(t, r.IsUserSubscribedToRoom("alice", "alice_bob"))
	assert.Empty(t, r.RoomSubscribers("alice_bob"))
	assert.True(t, r.Joined(c, "alice_carol"))
}

func TestConnectionRegistry_OneOfManyConnectionsJoined(t *testing.T) {
	r := NewConnectionRegistry()
	phone := NewClient("bob", 4)
	laptop := NewClient("bob", 4)
	r.Register(phone)
	r.Register(laptop)
	r.Join(laptop, "alice_bob")

	assert.True(t, r.IsUserSubscribedToRoom("bob", "alice_bob"))
	r.Unregister(laptop)
	assert.False(t, r.IsUserSubscribedToRoom("bob", "alice_bob"))
	assert.True(t, r.IsOnline("bob"))
}

func TestConnectionRegistry_CloseAll(t *testing.T) {
	r := NewConnectionRegistry()
	a := NewClient("alice", 4)
	b := NewClient("bob", 4)
	r.Register(a)
	r.Register(b)
	r.Join(a, "alice_bob")

	r.CloseAll()
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Empty(t, r.All())
	assert.Empty(t, r.OnlineUsers())
	assert.Empty(t, r.RoomSubscribers("alice_bob"))
}

func TestConnectionRegistry_Concurrent(t *testing.T) {
	r := NewConnectionRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewClient(fmt.Sprintf("user%d", i%5), 4)
			r.Register(c)
			r.Join(c, "room")
			r.IsUserSubscribedToRoom(c.UserID, "room")
			r.Unregister(c)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, r.All())
	assert.Empty(t, r.RoomSubscribers("room"))
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	c := NewClient("alice", 1)
	assert.True(t, c.Enqueue([]byte("a")))
	assert.False(t, c.Enqueue([]byte("b")), "queue full")
	c.Close()
	c.Close()
	assert.True(t, c.Closed())
	assert.False(t, c.Enqueue([]byte("c")))
}
