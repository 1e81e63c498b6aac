package repository

import (
	"context"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"
)

// MessageRepository definition message store, append only except the two flags
type MessageRepository interface {
	// CreateMessage 寫入訊息, 由 store 指定 ID 與 CreatedAt
	CreateMessage(ctx context.Context, msg *domain.Message) error
	FindMessageByID(ctx context.Context, messageID string) (*domain.Message, error)
	// FindMessagesByConversation oldest first, limit <= 0 means no limit
	FindMessagesByConversation(ctx context.Context, chatID string, limit int64) ([]domain.Message, error)
	// UpdateMessageFlags sets the true flags of f, never clears one
	UpdateMessageFlags(ctx context.Context, messageID string, f domain.MessageFlags) (*domain.Message, error)
	// MarkDeliveredForRecipient flips delivered on every pending message of chatID addressed to receiver
	MarkDeliveredForRecipient(ctx context.Context, chatID, receiver string) (int64, error)
	CountUnseen(ctx context.Context, chatID, receiver string) (int, error)
}

// ConversationRepository definition conversation aggregate store
type ConversationRepository interface {
	CreateOrGetConversation(ctx context.Context, chatID, userA, userB string) (*domain.Conversation, error)
	FindByID(ctx context.Context, chatID string) (*domain.Conversation, error)
	UpdateConversation(ctx context.Context, chatID string, u domain.ConversationUpdate) error
}

// monotonicClock hands out non-decreasing millisecond timestamps (mongo keeps ms precision)
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{now: time.Now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Millisecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
