package router

import (
	"context"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/pkg/middlewares"

	// swagger spec
	_ "realtime_chat_service/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

//go:generate swag init -d ./,../app,../domain -g router.go -o ../../../docs

// RegisterRoutes 注册聊天相关的路由
// @title Realtime Chat Service API
// @version 1.0
// @description 1 on 1 chat, websocket protocol on /ws
// @host localhost:8082
// @BasePath /
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, conversation *app.ConversationHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", ConnectCheck)
	r.Post("/debug", DebugLogFlag)

	r.Get("/chats/:chatId", middlewares.JWTMiddleware(), conversation.GetConversation)

	r.Get("/ws", middlewares.JWTMiddleware(), upgradeOnly, websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
