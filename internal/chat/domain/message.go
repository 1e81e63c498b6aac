package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength upper bound of a message text, in characters
const MaxTextLength = 5000

// Message 1 on 1 chat message.
// Delivered and Seen only ever move from false to true.
type Message struct {
	ID        string    `bson:"_id" json:"_id"`
	ChatID    string    `bson:"chat_id" json:"chatId"`
	Sender    string    `bson:"sender" json:"sender"`
	Receiver  string    `bson:"receiver" json:"receiver"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Delivered bool      `bson:"delivered" json:"delivered"`
	Seen      bool      `bson:"seen" json:"seen"`
}

// SendMessageRequest private_message input
type SendMessageRequest struct {
	Sender   string `validate:"required"`
	Receiver string `validate:"required,nefield=Sender"`
	ChatID   string
	Text     string
	TempID   string
}

// SendAck acknowledgment returned to the sender of a private_message
type SendAck struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId,omitempty"`
	TempID    string `json:"tempId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ValidateText rejects blank and oversized text
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is empty: %w", ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("text longer than %d characters: %w", MaxTextLength, ErrValidation)
	}
	return nil
}

// MessageFlags flags to raise on a message
type MessageFlags struct {
	Delivered bool
	Seen      bool
}
