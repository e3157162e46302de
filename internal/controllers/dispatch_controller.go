package controllers

import (
	"errors"
	"net/http"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/services"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/middleware"
	"service-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DispatchController is the office side: assigning and cancelling requests.
type DispatchController struct {
	dispatchService services.DispatchServiceInterface
	logger          *zap.Logger
}

func NewDispatchController(dispatchService services.DispatchServiceInterface, logger *zap.Logger) *DispatchController {
	return &DispatchController{dispatchService: dispatchService, logger: logger}
}

// conflictAs answers 409 for a request in a state that does not allow the action.
func conflictAs(err error, message string) error {
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		return apperrors.NewHttpError(http.StatusConflict, message, err, nil)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewHttpError(http.StatusNotFound, "Request not found", err, nil)
	}
	return err
}

func (c *DispatchController) Schedule(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	var d dto.ScheduleJobDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.dispatchService.Schedule(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, conflictAs(err, "Request can no longer be scheduled"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Job scheduled", http.StatusOK)
}

func (c *DispatchController) Cancel(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}
	var d dto.CancelJobDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.dispatchService.Cancel(ctx.Request().Context(), id, d.Reason)
	if err != nil {
		return utils.ErrorResponse(ctx, conflictAs(err, "Request can no longer be cancelled"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Job cancelled", http.StatusOK)
}
