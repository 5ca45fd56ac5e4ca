package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/service"
)

// BookingService is the part of service.BookingService the HTTP layer
// uses.
type BookingService interface {
	Create(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	CancelForUser(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
	Get(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) (*service.BookingList, error)
	Ticket(ctx context.Context, userID, bookingID uint64) ([]byte, string, error)
}

// BookingHandler serves the authenticated /v1/bookings routes.  Every
// route acts on the caller's own bookings.
type BookingHandler struct {
	Svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// Create handles POST /v1/bookings.  The body is a
// service.CreateBookingInput; the user comes from the token.  Responds 201
// with the booking, its PNR and the seats assigned in passenger order.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	var in service.CreateBookingInput
	if err := c.Bind(&in); err != nil {
		return respondError(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
	}
	in.UserID = userID
	b, err := h.Svc.Create(c.Request().Context(), in)
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /v1/bookings and returns {upcoming, past, cancelled}.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	list, err := h.Svc.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	b, err := h.Svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.  A second cancel of the
// same booking answers 409 already_cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	b, err := h.Svc.CancelForUser(c.Request().Context(), userID, id)
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Ticket handles GET /v1/bookings/:id/ticket and streams the PDF.
func (h *BookingHandler) Ticket(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	pdf, filename, err := h.Svc.Ticket(c.Request().Context(), userID, id)
	if err != nil {
		return RespondDomainError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
