package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
)

// BookingExporter writes booking history as CSV.
type BookingExporter interface {
	ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error
}

// AdminHandler serves read-only reporting for administrators.
type AdminHandler struct {
	Export BookingExporter
	Now    func() time.Time
}

func NewAdminHandler(exp BookingExporter) *AdminHandler {
	return &AdminHandler{Export: exp, Now: time.Now}
}

// ExportBookings handles GET /v1/admin/bookings/export?from=&to=.  Both
// bounds are YYYY-MM-DD on created_at; to is inclusive.  The default
// window is the last 30 days.
func (h *AdminHandler) ExportBookings(c echo.Context) error {
	now := h.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from, to := today.AddDate(0, 0, -30), today
	var err error
	if v := c.QueryParam("from"); v != "" {
		if from, err = time.ParseInLocation(model.DateLayout, v, time.UTC); err != nil {
			return RespondDomainError(c, domain.ValidationError{Field: "from", Msg: "must be YYYY-MM-DD"})
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.ParseInLocation(model.DateLayout, v, time.UTC); err != nil {
			return RespondDomainError(c, domain.ValidationError{Field: "to", Msg: "must be YYYY-MM-DD"})
		}
	}
	end := to.AddDate(0, 0, 1)
	if !end.After(from) {
		return RespondDomainError(c, domain.ValidationError{Field: "to", Msg: "must not be before from"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="bookings_%s_%s.csv"`, from.Format(model.DateLayout), to.Format(model.DateLayout)))
	// buffer so a failed query still produces a JSON error
	var buf bytes.Buffer
	if err := h.Export.ExportCSV(c.Request().Context(), &buf, from, end); err != nil {
		res.Header().Del(echo.HeaderContentDisposition)
		return RespondDomainError(c, err)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
