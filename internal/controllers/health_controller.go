package controllers

import (
	"context"
	"net/http"
	"time"

	"service-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db     Pinger
	logger *zap.Logger
}

func NewHealthController(db Pinger, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, logger: logger}
}

func (c *HealthController) Health(ctx echo.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		c.logger.Warn("health check: database unreachable", zap.Error(err))
		return ctx.JSON(http.StatusServiceUnavailable, &utils.HTTPResponse{
			Status:  false,
			Message: "Database unavailable",
			Body:    map[string]string{"database": "down"},
		})
	}
	return utils.SuccessResponse(ctx, map[string]string{"database": "ok"}, "OK", http.StatusOK)
}
