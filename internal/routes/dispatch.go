package routes

import (
	"service-dispatch/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runDispatchRouter(api *echo.Group, dispatchCtrl *controllers.DispatchController) {
	api.PUT("/dispatch/requests/:id/schedule", dispatchCtrl.Schedule)
	api.PUT("/dispatch/requests/:id/cancel", dispatchCtrl.Cancel)
}
