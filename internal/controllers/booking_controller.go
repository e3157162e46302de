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

type BookingController struct {
	intakeService services.IntakeServiceInterface
	logger        *zap.Logger
}

func NewBookingController(intakeService services.IntakeServiceInterface, logger *zap.Logger) *BookingController {
	return &BookingController{intakeService: intakeService, logger: logger}
}

// bindAndValidate decodes the body or query into d and runs the struct rules.
func bindAndValidate(ctx echo.Context, d interface{}) error {
	if err := ctx.Bind(d); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Invalid request body", err, nil)
	}
	return ctx.Validate(d)
}

// notFoundAs answers 404 with message for a missing row or a wrong-state transition.
func notFoundAs(err error, message string) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidTransition) {
		return apperrors.NewHttpError(http.StatusNotFound, message, err, nil)
	}
	return err
}

func (c *BookingController) CreateBooking(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	var d dto.CreateBookingDTO
	if err := bindAndValidate(ctx, &d); err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.intakeService.SubmitRequest(ctx.Request().Context(), d)
	if err != nil {
		if errors.Is(err, apperrors.ErrDependency) {
			err = apperrors.NewHttpError(http.StatusInternalServerError, "Failed to process booking request", err, nil)
		}
		return utils.ErrorResponse(ctx, err, logger)
	}

	return utils.SuccessResponse(ctx, res, "Booking request received! We will contact you shortly.", http.StatusCreated)
}

func (c *BookingController) GetBooking(ctx echo.Context) error {
	logger := middleware.LoggerFrom(ctx, c.logger)

	id, err := utils.ParseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, logger)
	}

	res, err := c.intakeService.GetRequest(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, notFoundAs(err, "Booking not found"), logger)
	}
	return utils.SuccessResponse(ctx, res, "Booking found", http.StatusOK)
}

func (c *BookingController) ListServiceTypes(ctx echo.Context) error {
	res, err := c.intakeService.ListServiceTypes(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, middleware.LoggerFrom(ctx, c.logger))
	}
	return utils.SuccessResponse(ctx, res, "Service types retrieved", http.StatusOK)
}
