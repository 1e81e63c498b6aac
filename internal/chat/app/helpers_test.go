package app

import (
	"encoding/json"
	"testing"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"

	"github.com/stretchr/testify/require"
)

type frame struct {
	Action  string          `json:"action"`
	Success bool            `json:"success"`
	AckID   string          `json:"ack_id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

func (f frame) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Payload, v))
}

// drain everything queued on c without blocking
func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case b := <-c.Send():
			var f frame
			require.NoError(t, json.Unmarshal(b, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func ofAction(frames []frame, action domain.Action) []frame {
	var out []frame
	for _, f := range frames {
		if f.Action == string(action) {
			out = append(out, f)
		}
	}
	return out
}

type harness struct {
	store       *repository.MemoryStore
	registry    *ConnectionRegistry
	dispatcher  *Dispatcher
	presence    *PresenceBroadcaster
	coordinator *DeliveryCoordinator
}

func newHarness(sink EventSink) *harness {
	logger.SetNewNop()
	store := repository.NewMemoryStore()
	registry := NewConnectionRegistry()
	dispatcher := NewDispatcher(registry)
	return &harness{
		store:       store,
		registry:    registry,
		dispatcher:  dispatcher,
		presence:    NewPresenceBroadcaster(registry, dispatcher, nil),
		coordinator: NewDeliveryCoordinator(registry, dispatcher, store, store, sink),
	}
}

func (h *harness) connect(t *testing.T, userID string) *Client {
	t.Helper()
	c := NewClient(userID, 64)
	h.presence.Connect(c)
	drain(t, c)
	return c
}

func timeNow() time.Time {
	return time.Now().UTC()
}
