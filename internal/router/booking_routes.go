package router

import (
	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/handler"
	"github.com/csfahad/rbms-sub001/internal/middleware"
	"github.com/csfahad/rbms-sub001/internal/model"
)

// RegisterBookings registers the booking routes.  All of them require a
// valid JWT with the USER or ADMIN role and act on the caller's own
// bookings.  limit is applied to the mutating routes.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("", h.Create, limit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/ticket", h.Ticket)
	g.POST("/:id/cancel", h.Cancel, limit)
}
