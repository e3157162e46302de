package routes

import (
	"service-dispatch/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runChatRouter(api *echo.Group, chatCtrl *controllers.ChatController, limiter echo.MiddlewareFunc) {
	chat := api.Group("/chat")
	{
		chat.POST("/start", chatCtrl.StartChat, limiter)
		chat.POST("/message", chatCtrl.PostMessage, limiter)
		chat.GET("/history/:sessionId", chatCtrl.GetHistory)
	}
}
