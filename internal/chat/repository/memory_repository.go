package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore process local MessageRepository + ConversationRepository,
// used by storage "memory" and by tests
type MemoryStore struct {
	mu            sync.RWMutex
	clock         *monotonicClock
	messages      map[string]*domain.Message
	byChat        map[string][]string
	conversations map[string]*domain.Conversation
}

// NewMemoryStore create empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:         newMonotonicClock(),
		messages:      map[string]*domain.Message{},
		byChat:        map[string][]string{},
		conversations: map[string]*domain.Conversation{},
	}
}

var (
	_ MessageRepository      = (*MemoryStore)(nil)
	_ ConversationRepository = (*MemoryStore)(nil)
)

func (s *MemoryStore) CreateMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID().Hex()
	msg.CreatedAt = s.clock.Next()
	cp := *msg
	s.messages[cp.ID] = &cp
	s.byChat[cp.ChatID] = append(s.byChat[cp.ChatID], cp.ID)
	return nil
}

func (s *MemoryStore) FindMessageByID(_ context.Context, messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("find message %s: %w", messageID, domain.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) FindMessagesByConversation(_ context.Context, chatID string, limit int64) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byChat[chatID]
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.messages[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateMessageFlags(_ context.Context, messageID string, f domain.MessageFlags) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("update message %s: %w", messageID, domain.ErrNotFound)
	}
	if f.Delivered || f.Seen {
		m.Delivered = true
	}
	if f.Seen {
		m.Seen = true
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) MarkDeliveredForRecipient(_ context.Context, chatID, receiver string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range s.byChat[chatID] {
		m := s.messages[id]
		if m.Receiver == receiver && !m.Delivered {
			m.Delivered = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountUnseen(_ context.Context, chatID, receiver string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range s.byChat[chatID] {
		m := s.messages[id]
		if m.Receiver == receiver && !m.Seen {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateOrGetConversation(_ context.Context, chatID, userA, userB string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[chatID]
	if !ok {
		c = domain.NewConversation(chatID, userA, userB, time.Now().UTC())
		s.conversations[chatID] = c
	}
	return copyConversation(c), nil
}

func (s *MemoryStore) FindByID(_ context.Context, chatID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[chatID]
	if !ok {
		return nil, fmt.Errorf("find conversation %s: %w", chatID, domain.ErrNotFound)
	}
	return copyConversation(c), nil
}

func (s *MemoryStore) UpdateConversation(_ context.Context, chatID string, u domain.ConversationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[chatID]
	if !ok {
		return fmt.Errorf("update conversation %s: %w", chatID, domain.ErrNotFound)
	}
	if u.LatestMessage != "" {
		c.LatestMessage = u.LatestMessage
	}
	for userID, n := range u.Unread {
		c.UnreadCount[userID] = n
	}
	if u.ResetUnread != "" {
		c.UnreadCount[u.ResetUnread] = 0
	}
	if u.IncrementUnread != "" {
		c.UnreadCount[u.IncrementUnread]++
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func copyConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Users = append([]string(nil), c.Users...)
	cp.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		cp.UnreadCount[k] = v
	}
	return &cp
}
