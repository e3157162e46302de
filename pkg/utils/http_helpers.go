package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "service-dispatch/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{Status: true, Message: message, Body: body})
}

// ErrorResponse maps domain errors onto HTTP codes. Internal details are
// logged; the client only gets the message.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Error("HTTP Error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}
		return c.JSON(httpErr.Code, &HTTPResponse{Status: false, Message: httpErr.Message, Body: httpErr.Details})
	}

	var fieldErr *apperrors.ValidationError
	if errors.As(err, &fieldErr) {
		var details interface{}
		if fieldErr.Field != "" {
			details = map[string]string{"field": fieldErr.Field}
		}
		return c.JSON(http.StatusBadRequest, &HTTPResponse{Status: false, Message: fieldErr.Message, Body: details})
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on '%s'", e.Field(), e.Tag()))
		}
		return c.JSON(http.StatusBadRequest, &HTTPResponse{Status: false, Message: "Validation failed: " + strings.Join(msgs, "; ")})
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, &HTTPResponse{Status: false, Message: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidTransition):
		return c.JSON(http.StatusNotFound, &HTTPResponse{Status: false, Message: "Not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, &HTTPResponse{Status: false, Message: "Unauthorized"})
	case errors.Is(err, apperrors.ErrTooManyRequests):
		return c.JSON(http.StatusTooManyRequests, &HTTPResponse{Status: false, Message: "Too many requests, please try again later"})
	case errors.Is(err, apperrors.ErrConflict):
		return c.JSON(http.StatusConflict, &HTTPResponse{Status: false, Message: "Conflict"})
	}

	logger.Error("Unexpected Error", zap.Error(err), zap.String("path", c.Path()))
	return c.JSON(http.StatusInternalServerError, &HTTPResponse{Status: false, Message: "Internal server error"})
}

// ParseIDParam reads a positive numeric path parameter.
func ParseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), nil, nil)
	}
	return id, nil
}
