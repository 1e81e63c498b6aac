package app

import (
	"context"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// CreateMessage mock create message, Run can assign ID / CreatedAt
func (m *MockMessageRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindMessageByID mock find message
func (m *MockMessageRepository) FindMessageByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindMessagesByConversation mock list messages
func (m *MockMessageRepository) FindMessagesByConversation(ctx context.Context, chatID string, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateMessageFlags mock raise flags
func (m *MockMessageRepository) UpdateMessageFlags(ctx context.Context, messageID string, f domain.MessageFlags) (*domain.Message, error) {
	args := m.Called(ctx, messageID, f)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkDeliveredForRecipient mock bulk delivered
func (m *MockMessageRepository) MarkDeliveredForRecipient(ctx context.Context, chatID, receiver string) (int64, error) {
	args := m.Called(ctx, chatID, receiver)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnseen mock count unseen
func (m *MockMessageRepository) CountUnseen(ctx context.Context, chatID, receiver string) (int, error) {
	args := m.Called(ctx, chatID, receiver)
	return args.Int(0), args.Error(1)
}

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// CreateOrGetConversation mock upsert
func (m *MockConversationRepository) CreateOrGetConversation(ctx context.Context, chatID, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, chatID, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find conversation
func (m *MockConversationRepository) FindByID(ctx context.Context, chatID string) (*domain.Conversation, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateConversation mock partial update
func (m *MockConversationRepository) UpdateConversation(ctx context.Context, chatID string, u domain.ConversationUpdate) error {
	args := m.Called(ctx, chatID, u)
	return args.Error(0)
}

// MockPresenceMirror Mock PresenceMirror
type MockPresenceMirror struct {
	mock.Mock
}

// Online mock online
func (m *MockPresenceMirror) Online(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Offline mock offline
func (m *MockPresenceMirror) Offline(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockEventSink Mock EventSink
type MockEventSink struct {
	mock.Mock
}

// Publish mock publish
func (m *MockEventSink) Publish(ctx context.Context, chatID string, event domain.WSResponse) error {
	args := m.Called(ctx, chatID, event)
	return args.Error(0)
}
