package routes

import (
	"service-dispatch/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runTechnicianRouter(api *echo.Group, techCtrl *controllers.TechnicianController) {
	tech := api.Group("/tech")
	{
		tech.POST("/login", techCtrl.Login)

		tech.GET("/:id/jobs", techCtrl.ListJobs)
		tech.GET("/:id/schedule", techCtrl.ListSchedule)
		tech.GET("/:id/schedule/export", techCtrl.ExportSchedule)

		tech.PUT("/jobs/:id/start", techCtrl.StartJob)
		tech.PUT("/jobs/:id/complete", techCtrl.CompleteJob)
		tech.PUT("/jobs/:id/notes", techCtrl.AddNotes)
	}
}
