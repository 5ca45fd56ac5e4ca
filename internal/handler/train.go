package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
	"github.com/csfahad/rbms-sub001/internal/service"
)

// TrainRegistry reads and writes the train registry.
type TrainRegistry interface {
	CreateWithClasses(ctx context.Context, t *model.Train) error
	UpsertClass(ctx context.Context, c model.TrainClass) error
	GetByID(ctx context.Context, id uint64) (*model.Train, error)
	List(ctx context.Context) ([]model.Train, error)
}

// AvailabilityChecker answers public availability queries.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, trainID uint64, classType, date string) (*service.AvailabilityView, error)
}

// TrainHandler serves the public train routes and the admin registry
// writes.  OnChange, when set, runs after every successful write; the
// router uses it to purge cached registry responses.
type TrainHandler struct {
	Trains   TrainRegistry
	Avail    AvailabilityChecker
	OnChange func(ctx context.Context)
}

func NewTrainHandler(trains TrainRegistry, avail AvailabilityChecker) *TrainHandler {
	return &TrainHandler{Trains: trains, Avail: avail}
}

func trainLookupErr(err error) error {
	if errors.Is(err, repository.ErrTrainNotFound) {
		return domain.NotFoundError{Resource: "train", Err: err}
	}
	return err
}

// List handles GET /v1/trains.
func (h *TrainHandler) List(c echo.Context) error {
	trains, err := h.Trains.List(c.Request().Context())
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trains": trains})
}

// Get handles GET /v1/trains/:id.
func (h *TrainHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	t, err := h.Trains.GetByID(c.Request().Context(), id)
	if err != nil {
		return RespondDomainError(c, trainLookupErr(err))
	}
	return c.JSON(http.StatusOK, t)
}

// Availability handles GET /v1/trains/:id/classes/:class/availability?date=.
// The answer is computed from the database on every call.
func (h *TrainHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	v, err := h.Avail.CheckAvailability(c.Request().Context(), id, c.Param("class"), c.QueryParam("date"))
	if err != nil {
		return RespondDomainError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, v)
}

type createTrainReq struct {
	Number      string             `json:"number"`
	Name        string             `json:"name"`
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	Classes     []model.TrainClass `json:"classes"`
}

type upsertClassReq struct {
	TotalSeats int   `json:"total_seats"`
	Fare       int64 `json:"fare"`
}

func validateClass(classType string, seats int, fare int64) (string, error) {
	classType = strings.ToUpper(strings.TrimSpace(classType))
	switch {
	case classType == "":
		return "", domain.ValidationError{Field: "class_type", Msg: "is required"}
	case len(classType) > service.MaxClassTypeLen:
		return "", domain.ValidationError{Field: "class_type", Msg: "is too long"}
	case seats <= 0:
		return "", domain.ValidationError{Field: "total_seats", Msg: "must be positive"}
	case fare < 0:
		return "", domain.ValidationError{Field: "fare", Msg: "must not be negative"}
	}
	return classType, nil
}

// CreateTrain handles POST /v1/admin/trains.  Classes in the body are
// created along with the train in the same transaction.
func (h *TrainHandler) CreateTrain(c echo.Context) error {
	var req createTrainReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
	}
	t := model.Train{
		Number:      strings.TrimSpace(req.Number),
		Name:        strings.TrimSpace(req.Name),
		Source:      strings.TrimSpace(req.Source),
		Destination: strings.TrimSpace(req.Destination),
	}
	required := []struct{ field, value string }{
		{"number", t.Number}, {"name", t.Name}, {"source", t.Source}, {"destination", t.Destination},
	}
	for _, r := range required {
		if r.value == "" {
			return RespondDomainError(c, domain.ValidationError{Field: r.field, Msg: "is required"})
		}
	}
	for i := range req.Classes {
		ct, err := validateClass(req.Classes[i].ClassType, req.Classes[i].TotalSeats, req.Classes[i].Fare)
		if err != nil {
			return RespondDomainError(c, err)
		}
		req.Classes[i].ClassType = ct
	}
	t.Classes = req.Classes

	ctx := c.Request().Context()
	if err := h.Trains.CreateWithClasses(ctx, &t); err != nil {
		if repository.IsDuplicateKey(err, "") {
			return respondError(c, http.StatusConflict, "conflict", "train number already exists", nil)
		}
		return RespondDomainError(c, err)
	}
	h.changed(ctx)
	return c.JSON(http.StatusCreated, t)
}

// UpsertClass handles PUT /v1/admin/trains/:id/classes/:class.  Bookings
// already committed are unaffected even if capacity drops below them.
func (h *TrainHandler) UpsertClass(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondDomainError(c, err)
	}
	var req upsertClassReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
	}
	classType, err := validateClass(c.Param("class"), req.TotalSeats, req.Fare)
	if err != nil {
		return RespondDomainError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.Trains.GetByID(ctx, id); err != nil {
		return RespondDomainError(c, trainLookupErr(err))
	}
	cl := model.TrainClass{TrainID: id, ClassType: classType, TotalSeats: req.TotalSeats, Fare: req.Fare}
	if err := h.Trains.UpsertClass(ctx, cl); err != nil {
		return RespondDomainError(c, err)
	}
	h.changed(ctx)
	return c.JSON(http.StatusOK, cl)
}

func (h *TrainHandler) changed(ctx context.Context) {
	if h.OnChange != nil {
		h.OnChange(ctx)
	}
}
