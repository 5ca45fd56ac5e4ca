package router

import (
	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/handler"
	"github.com/csfahad/rbms-sub001/internal/middleware"
	"github.com/csfahad/rbms-sub001/internal/model"
)

// RegisterAdmin registers registry writes and reporting under /v1/admin.
// Every route requires the ADMIN role.
func RegisterAdmin(e *echo.Echo, t *handler.TrainHandler, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/trains", t.CreateTrain)
	g.PUT("/trains/:id/classes/:class", t.UpsertClass)
	g.GET("/bookings/export", a.ExportBookings)
}
