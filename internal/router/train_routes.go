package router

import (
	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/handler"
)

// RegisterTrains registers the public registry and availability routes.
// cache wraps the registry reads only; availability is always computed
// fresh and must stay outside it.
func RegisterTrains(e *echo.Echo, h *handler.TrainHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/trains")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.GET("/:id/classes/:class/availability", h.Availability)
}
