package app

import (
	"context"
	"encoding/json"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler one instance serves every /ws connection
type ChatWebsocketHandler struct {
	presence    *PresenceBroadcaster
	coordinator *DeliveryCoordinator
	dispatcher  *Dispatcher
	cfg         config.WebSocketConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	presence *PresenceBroadcaster,
	coordinator *DeliveryCoordinator,
	dispatcher *Dispatcher,
	cfg config.WebSocketConfig,
) *ChatWebsocketHandler {
	cfg.ApplyDefaults()
	return &ChatWebsocketHandler{
		presence:    presence,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		cfg:         cfg,
	}
}

// HandleConnection 是 WebSocket 連線的進入點, returns after the write pump stopped
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	if memberID == "" {
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "missing member id")
		return
	}

	client := NewClient(memberID, h.cfg.SendBuffer)
	log := logger.Log.With(zap.String("user_id", memberID), zap.String("conn_id", client.ID))
	log.Info("websocket open", zap.String("remote", conn.RemoteAddr().String()))

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		log.Debug("received pong")
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, client, log)
	}()

	h.presence.Connect(client)
	defer func() {
		h.presence.Disconnect(client)
		// fiber releases conn once we return
		<-writerDone
		log.Info("websocket close")
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Info("connection closed by peer", zap.Error(err))
			} else if !client.Closed() {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctx, client, mt, message)
	}
}

// writePump only writer of conn
func (h *ChatWebsocketHandler) writePump(conn *websocket.Conn, client *Client, log *logger.LogInfo) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.SendTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn("websocket write error", zap.Error(err))
				h.presence.Disconnect(client)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.SendTimeout)); err != nil {
				log.Warn("ping error", zap.Error(err))
				h.presence.Disconnect(client)
				return
			}
		case <-client.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, client *Client, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, client, msg)

	//! close ping pong fiber會自動處理
	default:
		h.sendError(client, "", "unsupported message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, client *Client, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(client, "", "invalid json")
		return
	}

	resp := domain.WSResponse{Action: req.Action, AckID: req.AckID}
	switch domain.Action(req.Action) {
	//進入聊天室
	case domain.JoinChat:
		if req.UserID != "" && req.UserID != client.UserID {
			resp.Error = domain.ErrValidation.Error() + ": userId does not match connection"
			break
		}
		if err := h.coordinator.JoinConversation(ctx, client, req.ChatID); err != nil {
			resp.Error = ackError(err)
			break
		}
		resp.Success = true
		resp.Payload = domain.DeliveredEvent{ChatID: req.ChatID, UserID: client.UserID}

	//傳送訊息, ack 帶回 messageId 與 tempId
	case domain.PrivateMessage:
		if req.Sender != "" && req.Sender != client.UserID {
			resp.Error = domain.ErrValidation.Error() + ": sender does not match connection"
			resp.Payload = domain.SendAck{TempID: req.TempID, Error: resp.Error}
			break
		}
		ack, _ := h.coordinator.SendMessage(ctx, domain.SendMessageRequest{
			Sender:   client.UserID,
			Receiver: req.Receiver,
			ChatID:   req.ChatID,
			Text:     req.Text,
			TempID:   req.TempID,
		})
		resp.Success = ack.OK
		resp.Error = ack.Error
		resp.Payload = ack

	//已讀, 失敗只記 log
	case domain.MessageSeen:
		userID := req.UserID
		if userID == "" {
			userID = client.UserID
		}
		if userID != client.UserID {
			logger.Log.Warn("message_seen for another user",
				zap.String("user_id", client.UserID),
				zap.String("target", userID))
			return
		}
		if err := h.coordinator.MarkSeen(ctx, req.MessageID, req.ChatID, userID); err != nil {
			logger.Log.Warn("message_seen",
				zap.String("user_id", userID),
				zap.String("chat_id", req.ChatID),
				zap.String("message_id", req.MessageID),
				zap.Error(err))
		}
		return

	default:
		h.sendError(client, req.AckID, "unknown action "+req.Action)
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("user_id", client.UserID),
			zap.String("action", req.Action),
			zap.String("err", resp.Error))
	}
	h.dispatcher.ToClient(client, resp)
}

func (h *ChatWebsocketHandler) sendError(client *Client, ackID, errorMsg string) {
	h.dispatcher.ToClient(client, domain.WSResponse{
		Action: string(domain.ActionError),
		AckID:  ackID,
		Error:  errorMsg,
	})
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Errorf("Failed to send CloseMessage:", err)
	}
	_ = conn.Close()
}
