package app

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EventSink downstream stream of room events (kafka in production)
type EventSink interface {
	Publish(ctx context.Context, chatID string, event domain.WSResponse) error
}

type noopSink struct{}

func (noopSink) Publish(context.Context, string, domain.WSResponse) error { return nil }

var validate = validator.New()

// DeliveryCoordinator join / send / seen protocol.
// Every operation holds the room lock from the first read to the last broadcast.
type DeliveryCoordinator struct {
	registry   *ConnectionRegistry
	dispatcher *Dispatcher
	msgRepo    repository.MessageRepository
	convRepo   repository.ConversationRepository
	sink       EventSink
	locks      *roomLocks
}

// NewDeliveryCoordinator create DeliveryCoordinator, sink may be nil
func NewDeliveryCoordinator(
	registry *ConnectionRegistry,
	dispatcher *Dispatcher,
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	sink EventSink,
) *DeliveryCoordinator {
	if sink == nil {
		sink = noopSink{}
	}
	return &DeliveryCoordinator{
		registry:   registry,
		dispatcher: dispatcher,
		msgRepo:    msgRepo,
		convRepo:   convRepo,
		sink:       sink,
		locks:      newRoomLocks(),
	}
}

// JoinConversation subscribe c to roomID and flip every pending message
// addressed to c's user in that room to delivered
func (d *DeliveryCoordinator) JoinConversation(ctx context.Context, c *Client, roomID string) error {
	a, b, err := domain.ParseRoomID(roomID)
	if err != nil {
		return err
	}
	if c.UserID != a && c.UserID != b {
		return fmt.Errorf("user %s is not a participant of %s: %w", c.UserID, roomID, domain.ErrValidation)
	}

	unlock := d.locks.Lock(roomID)
	defer unlock()

	rejoin := d.registry.Joined(c, roomID)
	if !d.registry.Join(c, roomID) {
		return fmt.Errorf("join %s: %w", roomID, domain.ErrConnectionLost)
	}
	n, err := d.msgRepo.MarkDeliveredForRecipient(ctx, roomID, c.UserID)
	if err != nil {
		// pending messages stay undelivered, so the connection must not look joined
		if !rejoin {
			d.registry.Leave(c, roomID)
		}
		return err
	}
	logger.Log.Info("joined conversation",
		zap.String("chat_id", roomID),
		zap.String("user_id", c.UserID),
		zap.Int64("delivered", n))

	event := domain.Event(domain.MessagesDelivered, domain.DeliveredEvent{ChatID: roomID, UserID: c.UserID})
	d.dispatcher.ToRoom(roomID, event)
	d.publish(ctx, roomID, event)
	return nil
}

// SendMessage persist and broadcast a message. Persistence failures come back
// as a failed ack and are never retried.
func (d *DeliveryCoordinator) SendMessage(ctx context.Context, req domain.SendMessageRequest) (domain.SendAck, error) {
	ack := domain.SendAck{TempID: req.TempID}
	fail := func(err error) (domain.SendAck, error) {
		ack.Error = ackError(err)
		return ack, err
	}

	if err := validate.Struct(req); err != nil {
		return fail(fmt.Errorf("%v: %w", err, domain.ErrValidation))
	}
	if err := domain.ValidateText(req.Text); err != nil {
		return fail(err)
	}
	roomID, err := domain.DeriveRoomID(req.Sender, req.Receiver)
	if err != nil {
		return fail(fmt.Errorf("%v: %w", err, domain.ErrValidation))
	}
	if req.ChatID != "" && req.ChatID != roomID {
		return fail(fmt.Errorf("chatId %s does not match %s: %w", req.ChatID, roomID, domain.ErrValidation))
	}

	unlock := d.locks.Lock(roomID)
	defer unlock()

	if _, err := d.convRepo.CreateOrGetConversation(ctx, roomID, req.Sender, req.Receiver); err != nil {
		return fail(err)
	}

	delivered := d.registry.IsUserSubscribedToRoom(req.Receiver, roomID)
	msg := &domain.Message{
		ChatID:    roomID,
		Sender:    req.Sender,
		Receiver:  req.Receiver,
		Text:      req.Text,
		Delivered: delivered,
	}
	if err := d.msgRepo.CreateMessage(ctx, msg); err != nil {
		return fail(err)
	}

	update := domain.ConversationUpdate{LatestMessage: msg.ID}
	if !delivered {
		update.IncrementUnread = req.Receiver
	}
	if err := d.convRepo.UpdateConversation(ctx, roomID, update); err != nil {
		// counter is rebuilt by LoadConversation
		logger.Log.Error("update conversation after send",
			zap.String("chat_id", roomID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}

	var tempID *string
	if req.TempID != "" {
		tempID = &req.TempID
	}
	event := domain.Event(domain.NewMessage, domain.NewMessageEvent{Message: *msg, TempID: tempID})
	d.dispatcher.ToRoom(roomID, event)
	d.publish(ctx, roomID, event)

	logger.Log.Info("message sent",
		zap.String("chat_id", roomID),
		zap.String("message_id", msg.ID),
		zap.String("user_id", req.Sender),
		zap.Bool("delivered", delivered))

	ack.OK = true
	ack.MessageID = msg.ID
	return ack, nil
}

// MarkSeen mark messageID seen by userID and reset userID's unread counter
func (d *DeliveryCoordinator) MarkSeen(ctx context.Context, messageID, roomID, userID string) error {
	unlock := d.locks.Lock(roomID)
	defer unlock()

	msg, err := d.msgRepo.FindMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != roomID {
		return fmt.Errorf("message %s in %s: %w", messageID, roomID, domain.ErrNotFound)
	}
	if msg.Receiver != userID {
		return fmt.Errorf("user %s is not the receiver of %s: %w", userID, messageID, domain.ErrValidation)
	}
	if _, err := d.convRepo.FindByID(ctx, roomID); err != nil {
		return err
	}
	if _, err := d.msgRepo.UpdateMessageFlags(ctx, messageID, domain.MessageFlags{Seen: true}); err != nil {
		return err
	}
	if err := d.convRepo.UpdateConversation(ctx, roomID, domain.ConversationUpdate{ResetUnread: userID}); err != nil {
		return err
	}

	event := domain.Event(domain.MessageSeen, domain.SeenEvent{MessageID: messageID, ChatID: roomID, UserID: userID})
	d.dispatcher.ToRoom(roomID, event)
	d.publish(ctx, roomID, event)
	return nil
}

// LoadConversation conversation of chatID as seen by userID, unread counters
// are recomputed from unseen messages and written back when they drifted
func (d *DeliveryCoordinator) LoadConversation(ctx context.Context, chatID, userID string) (*domain.Conversation, error) {
	if _, _, err := domain.ParseRoomID(chatID); err != nil {
		return nil, err
	}

	unlock := d.locks.Lock(chatID)
	defer unlock()

	conv, err := d.convRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasUser(userID) {
		return nil, fmt.Errorf("conversation %s: %w", chatID, domain.ErrNotFound)
	}
	counts := map[string]int{}
	for _, u := range conv.Users {
		n, err := d.msgRepo.CountUnseen(ctx, chatID, u)
		if err != nil {
			return nil, err
		}
		counts[u] = n
	}

	// the recount is authoritative. Sends into a joined room leave the stored
	// counter behind, a counter ahead of the unseen messages is real drift.
	behind, ahead := unreadDrift(conv, counts)
	switch {
	case ahead:
		logger.Log.Warn("unread counter drift",
			zap.String("chat_id", chatID),
			zap.Any("stored", conv.UnreadCount),
			zap.Any("actual", counts))
	case behind:
		logger.Log.Debug("unread counter behind unseen messages",
			zap.String("chat_id", chatID),
			zap.Any("stored", conv.UnreadCount),
			zap.Any("actual", counts))
	}
	if behind || ahead {
		if err := d.convRepo.UpdateConversation(ctx, chatID, domain.ConversationUpdate{Unread: counts}); err != nil {
			return nil, err
		}
	}
	conv.UnreadCount = counts
	return conv, nil
}

// LoadConversationView LoadConversation with the latest message populated.
// A latest message that cannot be read is logged and left out.
func (d *DeliveryCoordinator) LoadConversationView(ctx context.Context, chatID, userID string) (*domain.ConversationView, error) {
	conv, err := d.LoadConversation(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if conv.LatestMessage == "" {
		return domain.NewConversationView(conv, nil), nil
	}
	latest, err := d.msgRepo.FindMessageByID(ctx, conv.LatestMessage)
	if err != nil {
		logger.Log.Warn("latest message",
			zap.String("chat_id", chatID),
			zap.String("message_id", conv.LatestMessage),
			zap.Error(err))
		latest = nil
	}
	return domain.NewConversationView(conv, latest), nil
}

func unreadDrift(conv *domain.Conversation, counts map[string]int) (behind, ahead bool) {
	for u, n := range counts {
		switch stored := conv.Unread(u); {
		case stored < n:
			behind = true
		case stored > n:
			ahead = true
		}
	}
	return behind, ahead
}

func (d *DeliveryCoordinator) publish(ctx context.Context, chatID string, event domain.WSResponse) {
	if err := d.sink.Publish(ctx, chatID, event); err != nil {
		logger.Log.Error("publish chat event",
			zap.String("chat_id", chatID),
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

// ackError classify err for the client, internal details stay in the log
func ackError(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		return err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrConnectionLost):
		return domain.ErrConnectionLost.Error()
	default:
		return domain.ErrPersistence.Error()
	}
}
