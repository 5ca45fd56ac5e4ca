package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/middleware"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func respondError(c echo.Context, status int, code, msg string, details any) error {
	return c.JSON(status, errorBody{Error: msg, Code: code, Details: details})
}

// RespondDomainError maps service errors onto HTTP responses.  Anything it
// does not recognise is logged with the request id and answered with an
// opaque 500.
func RespondDomainError(c echo.Context, err error) error {
	var (
		verr   domain.ValidationError
		nf     domain.NotFoundError
		capErr domain.CapacityError
		terr   domain.TransientError
	)
	switch {
	case errors.As(err, &verr):
		var details any
		if verr.Field != "" {
			details = echo.Map{"field": verr.Field}
		}
		return respondError(c, http.StatusBadRequest, "validation_error", verr.Error(), details)
	case errors.As(err, &nf):
		return respondError(c, http.StatusNotFound, "not_found", nf.Error(), nil)
	case errors.As(err, &capErr):
		return respondError(c, http.StatusConflict, "capacity_exceeded", "not enough seats available",
			echo.Map{"requested": capErr.Requested, "available": capErr.Available})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return respondError(c, http.StatusConflict, "already_cancelled", err.Error(), nil)
	case errors.Is(err, repository.ErrForbidden):
		return respondError(c, http.StatusForbidden, "forbidden", "forbidden", nil)
	case errors.As(err, &terr):
		c.Response().Header().Set("Retry-After", "1")
		return respondError(c, http.StatusServiceUnavailable, "retryable", "temporarily unavailable, retry the request", nil)
	}
	c.Logger().Errorf("request %s: %v", c.Response().Header().Get(echo.HeaderXRequestID), err)
	return respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
}

// getUserID returns the caller's ID set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}
