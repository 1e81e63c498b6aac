package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// RoomSeparator joins the two participant ids of a 1 on 1 room.
// User ids containing it are rejected by DeriveRoomID.
const RoomSeparator = "_"

// ValidateUserID user ids are also used as document keys of the unread map
func ValidateUserID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty user id: %w", ErrInvalidArgument)
	case strings.Contains(id, RoomSeparator):
		return fmt.Errorf("user id %q contains %q: %w", id, RoomSeparator, ErrInvalidArgument)
	case strings.Contains(id, ".") || strings.HasPrefix(id, "$"):
		return fmt.Errorf("user id %q is not a valid key: %w", id, ErrInvalidArgument)
	}
	return nil
}

// DeriveRoomID returns the canonical room id of the conversation between a and b.
// DeriveRoomID(a, b) == DeriveRoomID(b, a)
func DeriveRoomID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("two user ids required: %w", ErrInvalidArgument)
	}
	if err := ValidateUserID(a); err != nil {
		return "", err
	}
	if err := ValidateUserID(b); err != nil {
		return "", err
	}
	if b < a {
		a, b = b, a
	}
	return a + RoomSeparator + b, nil
}

// ParseRoomID split a room id back into its two participants
func ParseRoomID(roomID string) (string, string, error) {
	parts := strings.Split(roomID, RoomSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed room id %q: %w", roomID, ErrInvalidArgument)
	}
	canonical, err := DeriveRoomID(parts[0], parts[1])
	if err != nil {
		return "", "", err
	}
	if canonical != roomID {
		return "", "", fmt.Errorf("room id %q is not canonical: %w", roomID, ErrInvalidArgument)
	}
	return parts[0], parts[1], nil
}

// Conversation 1 on 1 chat aggregate, keyed by DeriveRoomID of its two users
type Conversation struct {
	ID            string         `bson:"_id" json:"_id"`
	Users         []string       `bson:"users" json:"users"`
	LatestMessage string         `bson:"latest_message,omitempty" json:"latestMessage,omitempty"`
	UnreadCount   map[string]int `bson:"unread_count" json:"unreadCount"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updatedAt"`
}

// NewConversation build an empty conversation for the pair
func NewConversation(roomID, userA, userB string, now time.Time) *Conversation {
	return &Conversation{
		ID:          roomID,
		Users:       []string{userA, userB},
		UnreadCount: map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Unread unread count of userID, zero when absent
func (c *Conversation) Unread(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}

// HasUser check userID is a participant
func (c *Conversation) HasUser(userID string) bool {
	return lo.Contains(c.Users, userID)
}

// ConversationUpdate partial update of a conversation, zero fields are left untouched
type ConversationUpdate struct {
	LatestMessage   string
	IncrementUnread string
	ResetUnread     string
	Unread          map[string]int
}

// ConversationView conversation as returned to a participant, latest message populated
type ConversationView struct {
	ID            string         `json:"_id"`
	Users         []string       `json:"users"`
	LatestMessage *Message       `json:"latestMessage,omitempty"`
	UnreadCount   map[string]int `json:"unreadCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewConversationView latest may be nil
func NewConversationView(conv *Conversation, latest *Message) *ConversationView {
	return &ConversationView{
		ID:            conv.ID,
		Users:         conv.Users,
		LatestMessage: latest,
		UnreadCount:   conv.UnreadCount,
		CreatedAt:     conv.CreatedAt,
		UpdatedAt:     conv.UpdatedAt,
	}
}
