package app

import (
	"sync"

	"github.com/samber/lo"
)

// ConnectionRegistry process wide user -> live connections map, the source of
// truth for "is this user online" on this node. Created at server start,
// CloseAll at shutdown.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
}

// NewConnectionRegistry create empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		users: map[string]map[*Client]struct{}{},
		rooms: map[string]map[*Client]struct{}{},
	}
}

// Register add c to its user's set, first reports offline -> online
func (r *ConnectionRegistry) Register(c *Client) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[c.UserID]
	if !ok {
		set = map[*Client]struct{}{}
		r.users[c.UserID] = set
	}
	if _, dup := set[c]; dup {
		return false
	}
	set[c] = struct{}{}
	return len(set) == 1
}

// Unregister remove c and its room subscriptions.
// removed is false when c was not registered, last reports online -> offline.
func (r *ConnectionRegistry) Unregister(c *Client) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[c.UserID]
	if !ok {
		return false, false
	}
	if _, ok := set[c]; !ok {
		return false, false
	}
	delete(set, c)
	for roomID := range c.rooms {
		if subs, ok := r.rooms[roomID]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	c.rooms = map[string]struct{}{}
	if len(set) == 0 {
		delete(r.users, c.UserID)
		return true, true
	}
	return true, false
}

// Join subscribe c to roomID, false when c is not registered
func (r *ConnectionRegistry) Join(c *Client, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[c.UserID][c]; !ok {
		return false
	}
	subs, ok := r.rooms[roomID]
	if !ok {
		subs = map[*Client]struct{}{}
		r.rooms[roomID] = subs
	}
	subs[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
	return true
}

// Joined c is subscribed to roomID
func (r *ConnectionRegistry) Joined(c *Client, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][c]
	return ok
}

// Leave unsubscribe c from roomID, no-op when it was not joined
func (r *ConnectionRegistry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(r.rooms, roomID)
	}
	delete(c.rooms, roomID)
}

// IsOnline user has at least one live connection
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// IsUserSubscribedToRoom at least one open connection of userID joined roomID
func (r *ConnectionRegistry) IsUserSubscribedToRoom(userID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.users[userID] {
		if _, ok := c.rooms[roomID]; ok && !c.Closed() {
			return true
		}
	}
	return false
}

// ConnectionsOf snapshot of userID's connections
func (r *ConnectionRegistry) ConnectionsOf(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.users[userID])
}

// RoomSubscribers snapshot of connections joined to roomID
func (r *ConnectionRegistry) RoomSubscribers(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.rooms[roomID])
}

// All snapshot of every registered connection
func (r *ConnectionRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.users))
	for _, set := range r.users {
		out = append(out, lo.Keys(set)...)
	}
	return out
}

// OnlineUsers users with at least one connection
func (r *ConnectionRegistry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.users)
}

// CloseAll close every connection and empty the registry
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.users {
		for c := range set {
			c.Close()
		}
	}
	r.users = map[string]map[*Client]struct{}{}
	r.rooms = map[string]map[*Client]struct{}{}
}
