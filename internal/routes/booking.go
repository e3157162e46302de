package routes

import (
	"service-dispatch/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runBookingRouter(api *echo.Group, bookingCtrl *controllers.BookingController, limiter echo.MiddlewareFunc) {
	api.POST("/bookings", bookingCtrl.CreateBooking, limiter)
	api.GET("/bookings/:id", bookingCtrl.GetBooking)
	api.GET("/service-types", bookingCtrl.ListServiceTypes)
}
