package app

import (
	"errors"
	"net/http"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler REST view of a conversation
type ConversationHandler struct {
	coordinator *DeliveryCoordinator
}

// NewConversationHandler create ConversationHandler
func NewConversationHandler(coordinator *DeliveryCoordinator) *ConversationHandler {
	return &ConversationHandler{coordinator: coordinator}
}

// GetConversation conversation with recomputed unread counters, participants only
// @Summary Get conversation
// @Description Participants, latest message and unread counters of a 1 on 1 chat
// @Tags Chat
// @Produce json
// @Param chatId path string true "room id, the two user ids sorted and joined by _"
// @Param auth query string false "JWT, or the auth_token cookie"
// @Success 200 {object} domain.ConversationView
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /chats/{chatId} [get]
func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.coordinator.LoadConversationView(c.UserContext(), c.Params("chatId"), middlewares.MemberID(c))
	if err != nil {
		return c.Status(httpStatus(err)).JSON(fiber.Map{"error": ackError(err)})
	}
	return c.JSON(conv)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
