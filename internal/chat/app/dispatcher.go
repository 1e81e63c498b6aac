package app

import (
	"encoding/json"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Dispatcher fan out server frames to registered connections.
// A connection whose queue is full is dropped instead of stalling the sender.
type Dispatcher struct {
	registry *ConnectionRegistry
	onDrop   func(c *Client)
}

// NewDispatcher create Dispatcher, dropped clients are only closed until
// a PresenceBroadcaster takes over onDrop
func NewDispatcher(registry *ConnectionRegistry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		onDrop:   func(c *Client) { c.Close() },
	}
}

// ToRoom every connection joined to roomID
func (d *Dispatcher) ToRoom(roomID string, resp domain.WSResponse) {
	d.deliver(d.registry.RoomSubscribers(roomID), resp)
}

// ToAll every registered connection
func (d *Dispatcher) ToAll(resp domain.WSResponse) {
	d.deliver(d.registry.All(), resp)
}

// ToClient one connection, false when c was dropped
func (d *Dispatcher) ToClient(c *Client, resp domain.WSResponse) bool {
	return d.deliver([]*Client{c}, resp) == 1
}

func (d *Dispatcher) deliver(clients []*Client, resp domain.WSResponse) int {
	sent, dropped := d.fanOut(clients, resp)
	for _, c := range dropped {
		d.onDrop(c)
	}
	return sent
}

// fanOut enqueue resp on clients, returns the ones whose queue was full
// without dropping them
func (d *Dispatcher) fanOut(clients []*Client, resp domain.WSResponse) (sent int, dropped []*Client) {
	if len(clients) == 0 {
		return 0, nil
	}
	frame, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("encode frame", zap.String("action", resp.Action), zap.Error(err))
		return 0, nil
	}
	for _, c := range clients {
		if c.Enqueue(frame) {
			sent++
			continue
		}
		if c.Closed() {
			continue
		}
		logger.Log.Warn("send queue full, dropping connection",
			zap.String("user_id", c.UserID),
			zap.String("conn_id", c.ID),
			zap.String("action", resp.Action),
			zap.Error(domain.ErrConnectionLost))
		dropped = append(dropped, c)
	}
	return sent, dropped
}
