package app

import (
	"context"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PresenceMirror receives node local presence transitions (redis in production)
type PresenceMirror interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

type presenceChange struct {
	userID string
	online bool
}

const mirrorQueueSize = 1024

// PresenceBroadcaster owns connect / disconnect of connections and emits
// user_online / user_offline on the first / last connection of a user
type PresenceBroadcaster struct {
	registry   *ConnectionRegistry
	dispatcher *Dispatcher
	mirror     PresenceMirror
	changes    chan presenceChange

	// one transition per user at a time, held from the registry change
	// through its broadcast and mirror enqueue
	users *roomLocks
}

// NewPresenceBroadcaster create PresenceBroadcaster, mirror may be nil.
// Connections the dispatcher drops are disconnected through it.
func NewPresenceBroadcaster(registry *ConnectionRegistry, dispatcher *Dispatcher, mirror PresenceMirror) *PresenceBroadcaster {
	p := &PresenceBroadcaster{
		registry:   registry,
		dispatcher: dispatcher,
		mirror:     mirror,
		changes:    make(chan presenceChange, mirrorQueueSize),
		users:      newRoomLocks(),
	}
	dispatcher.onDrop = p.Disconnect
	return p
}

// Connect register c, broadcasts user_online when it is the user's first connection
func (p *PresenceBroadcaster) Connect(c *Client) bool {
	unlock := p.users.Lock(c.UserID)
	first := p.registry.Register(c)
	var dropped []*Client
	if first {
		dropped = p.emit(presenceChange{userID: c.UserID, online: true})
	}
	unlock()

	logger.Log.Info("connection registered",
		zap.String("user_id", c.UserID),
		zap.String("conn_id", c.ID),
		zap.Bool("first", first))
	p.disconnectAll(dropped)
	return first
}

// Disconnect unregister and close c, broadcasts user_offline when it was the
// user's last connection. Calling it again for the same c is a no-op.
func (p *PresenceBroadcaster) Disconnect(c *Client) {
	unlock := p.users.Lock(c.UserID)
	removed, last := p.registry.Unregister(c)
	var dropped []*Client
	if last {
		dropped = p.emit(presenceChange{userID: c.UserID, online: false})
	}
	unlock()

	c.Close()
	if !removed {
		return
	}
	logger.Log.Info("connection unregistered",
		zap.String("user_id", c.UserID),
		zap.String("conn_id", c.ID),
		zap.Bool("last", last))
	p.disconnectAll(dropped)
}

// emit broadcast and mirror one transition, caller holds the user's lock.
// Slow receivers are returned so they are disconnected after the lock is released.
func (p *PresenceBroadcaster) emit(ch presenceChange) []*Client {
	action := domain.UserOffline
	if ch.online {
		action = domain.UserOnline
	}
	_, dropped := p.dispatcher.fanOut(p.registry.All(), domain.Event(action, domain.PresenceEvent{UserID: ch.userID}))
	p.mirrorChange(ch)
	return dropped
}

func (p *PresenceBroadcaster) disconnectAll(clients []*Client) {
	for _, c := range clients {
		p.Disconnect(c)
	}
}

func (p *PresenceBroadcaster) mirrorChange(ch presenceChange) {
	if p.mirror == nil {
		return
	}
	select {
	case p.changes <- ch:
	default:
		logger.Log.Warn("presence mirror queue full", zap.String("user_id", ch.userID), zap.Bool("online", ch.online))
	}
}

// Run forward transitions to the mirror in order until ctx is done
func (p *PresenceBroadcaster) Run(ctx context.Context) {
	if p.mirror == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-p.changes:
			var err error
			if ch.online {
				err = p.mirror.Online(ctx, ch.userID)
			} else {
				err = p.mirror.Offline(ctx, ch.userID)
			}
			if err != nil {
				logger.Log.Error("presence mirror", zap.String("user_id", ch.userID), zap.Error(err))
			}
		}
	}
}
