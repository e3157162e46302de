package controllers

import (
	"net/http"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/services"
	"service-dispatch/pkg/middleware"
	"service-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ChatController struct {
	chatService services.ChatServiceInterface
	logger      *zap.Logger
}

func NewChatController(chatService services.ChatServiceInterface, logger *zap.Logger) *ChatController {
	return &ChatController{chatService: chatService, logger: logger}
}

func (c *ChatController) StartChat(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	var d dto.StartChatDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.chatService.StartSession(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	return utils.SuccessResponse(ctx, res, res.Greeting, http.StatusOK)
}

func (c *ChatController) PostMessage(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	var d dto.ChatMessageDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.chatService.PostMessage(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Chat session not found"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Message received", http.StatusOK)
}

func (c *ChatController) GetHistory(ctx echo.Context) error {
	res, err := c.chatService.GetHistory(ctx.Request().Context(), ctx.Param("sessionId"))
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Chat session not found"), middleware.LoggerFrom(ctx, c.logger))
	}
	return utils.SuccessResponse(ctx, res, "Chat history retrieved", http.StatusOK)
}
