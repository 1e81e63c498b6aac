package app

import (
	"sync"

	"github.com/google/uuid"
)

// Client one live websocket connection of a user.
// Outbound frames go through a bounded queue drained by the connection's
// write pump, Enqueue never blocks.
type Client struct {
	ID     string
	UserID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// rooms joined by this connection, guarded by ConnectionRegistry.mu
	rooms map[string]struct{}
}

// NewClient create Client with a send queue of buffer frames
func NewClient(userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		rooms:  map[string]struct{}{},
	}
}

// Send outbound queue, read by the write pump only
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Done closed once the client is closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Enqueue queue a frame, false when the client is closed or its queue is full
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close mark the client closed, safe to call many times
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed report whether Close was called
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
