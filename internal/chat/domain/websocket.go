package domain

// Action websocket event name
type Action string

const (
	// JoinChat client opens a conversation
	JoinChat Action = "join_chat"
	// PrivateMessage client sends a message, acked with SendAck
	PrivateMessage Action = "private_message"
	// MessageSeen client marks a message seen, server broadcasts the transition
	MessageSeen Action = "message_seen"

	// NewMessage server broadcast of a persisted message
	NewMessage Action = "new_message"
	// MessagesDelivered server broadcast after a join flipped pending messages
	MessagesDelivered Action = "messages_delivered"
	// UserOnline first connection of a user opened
	UserOnline Action = "user_online"
	// UserOffline last connection of a user closed
	UserOffline Action = "user_offline"

	// ActionError unparseable or unknown request
	ActionError Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action    string `json:"action"`
	AckID     string `json:"ack_id,omitempty"`
	ChatID    string `json:"chatId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Text      string `json:"text,omitempty"`
	TempID    string `json:"tempId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	AckID   string      `json:"ack_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewMessageEvent new_message payload, TempID echoes the sender's correlation token
type NewMessageEvent struct {
	Message Message `json:"message"`
	TempID  *string `json:"tempId"`
}

// DeliveredEvent messages_delivered payload
type DeliveredEvent struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// SeenEvent message_seen payload
type SeenEvent struct {
	MessageID string `json:"messageId"`
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
}

// PresenceEvent user_online / user_offline payload
type PresenceEvent struct {
	UserID string `json:"userId"`
}

// Event server push, Action is the event name
func Event(action Action, payload interface{}) WSResponse {
	return WSResponse{Action: string(action), Success: true, Payload: payload}
}
