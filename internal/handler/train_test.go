package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
	"github.com/csfahad/rbms-sub001/internal/service"
)

type fakeRegistry struct {
	trains    map[uint64]*model.Train
	upserted  []model.TrainClass
	createErr error
}

// CreateWithClasses stores nothing when createErr is set, like the
// transactional repository.
func (f *fakeRegistry) CreateWithClasses(_ context.Context, t *model.Train) error {
	if f.createErr != nil {
		return f.createErr
	}
	t.ID = uint64(len(f.trains) + 1)
	for i := range t.Classes {
		t.Classes[i].TrainID = t.ID
	}
	f.trains[t.ID] = t
	f.upserted = append(f.upserted, t.Classes...)
	return nil
}

func (f *fakeRegistry) UpsertClass(_ context.Context, c model.TrainClass) error {
	f.upserted = append(f.upserted, c)
	return nil
}

func (f *fakeRegistry) GetByID(_ context.Context, id uint64) (*model.Train, error) {
	if t, ok := f.trains[id]; ok {
		return t, nil
	}
	return nil, repository.ErrTrainNotFound
}

func (f *fakeRegistry) List(context.Context) ([]model.Train, error) {
	out := []model.Train{}
	for _, t := range f.trains {
		out = append(out, *t)
	}
	return out, nil
}

type fakeAvailability struct{}

func (fakeAvailability) CheckAvailability(_ context.Context, trainID uint64, classType, date string) (*service.AvailabilityView, error) {
	if date == "" {
		return nil, domain.ValidationError{Field: "travel_date", Msg: "must be YYYY-MM-DD"}
	}
	return &service.AvailabilityView{TrainID: trainID, ClassType: classType, TravelDate: date, TotalSeats: 10, Available: 4}, nil
}

func newTrainHandler() (*TrainHandler, *fakeRegistry, *int) {
	reg := &fakeRegistry{trains: map[uint64]*model.Train{}}
	h := NewTrainHandler(reg, fakeAvailability{})
	changes := 0
	h.OnChange = func(context.Context) { changes++ }
	return h, reg, &changes
}

func TestCreateTrainWithClasses(t *testing.T) {
	h, reg, changes := newTrainHandler()
	body := `{"number":"12951","name":"Rajdhani","source":"BCT","destination":"NDLS","classes":[{"class_type":"3a","total_seats":64,"fare":180000}]}`
	rec := call(t, h.CreateTrain, http.MethodPost, "/v1/admin/trains", body, nil, 1)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(reg.upserted) != 1 || reg.upserted[0].ClassType != "3A" || reg.upserted[0].TrainID != 1 {
		t.Fatalf("upserted = %+v", reg.upserted)
	}
	if *changes != 1 {
		t.Fatalf("cache purge hook ran %d times", *changes)
	}
}

func TestCreateTrainFailureStoresNothing(t *testing.T) {
	h, reg, changes := newTrainHandler()
	reg.createErr = errors.New("class insert failed")
	body := `{"number":"12951","name":"Rajdhani","source":"BCT","destination":"NDLS","classes":[{"class_type":"1A","total_seats":18,"fare":1},{"class_type":"3A","total_seats":64,"fare":1}]}`
	rec := call(t, h.CreateTrain, http.MethodPost, "/v1/admin/trains", body, nil, 1)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(reg.trains) != 0 || len(reg.upserted) != 0 || *changes != 0 {
		t.Fatalf("trains=%d classes=%d purges=%d", len(reg.trains), len(reg.upserted), *changes)
	}
}

func TestCreateTrainDuplicateNumber(t *testing.T) {
	h, reg, _ := newTrainHandler()
	reg.createErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '12951' for key 'trains.uq_trains_number'"}
	rec := call(t, h.CreateTrain, http.MethodPost, "/v1/admin/trains", `{"number":"12951","name":"R","source":"A","destination":"B"}`, nil, 1)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateTrainValidation(t *testing.T) {
	h, _, changes := newTrainHandler()
	rec := call(t, h.CreateTrain, http.MethodPost, "/v1/admin/trains", `{"number":"1","name":"X","source":"A"}`, nil, 1)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	details, _ := decode(t, rec)["details"].(map[string]any)
	if details["field"] != "destination" {
		t.Fatalf("details = %v", details)
	}
	if *changes != 0 {
		t.Fatalf("purge ran on failed write")
	}
}

func TestUpsertClassUnknownTrain(t *testing.T) {
	h, _, _ := newTrainHandler()
	rec := call(t, h.UpsertClass, http.MethodPut, "/v1/admin/trains/9/classes/SL", `{"total_seats":10,"fare":100}`,
		map[string]string{"id": "9", "class": "SL"}, 1)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpsertClassRejectsZeroSeats(t *testing.T) {
	h, reg, _ := newTrainHandler()
	reg.trains[1] = &model.Train{ID: 1}
	rec := call(t, h.UpsertClass, http.MethodPut, "/v1/admin/trains/1/classes/SL", `{"total_seats":0,"fare":100}`,
		map[string]string{"id": "1", "class": "SL"}, 1)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAvailabilityNeverCached(t *testing.T) {
	h, _, _ := newTrainHandler()
	rec := call(t, h.Availability, http.MethodGet, "/v1/trains/1/classes/SL/availability?date=2026-10-20", "",
		map[string]string{"id": "1", "class": "SL"}, 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("availability must not be cacheable")
	}
	if decode(t, rec)["available"] != float64(4) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

type fakeExporter struct {
	from, to time.Time
}

func (f *fakeExporter) ExportCSV(_ context.Context, w io.Writer, from, to time.Time) error {
	f.from, f.to = from, to
	_, err := io.WriteString(w, "booking_id,pnr\n1,1510123456\n")
	return err
}

func TestExportBookingsWindow(t *testing.T) {
	exp := &fakeExporter{}
	h := NewAdminHandler(exp)
	rec := call(t, h.ExportBookings, http.MethodGet, "/v1/admin/bookings/export?from=2026-10-01&to=2026-10-15", "", nil, 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("content-type = %s", rec.Header().Get("Content-Type"))
	}
	if exp.to.Format(model.DateLayout) != "2026-10-16" || exp.from.Format(model.DateLayout) != "2026-10-01" {
		t.Fatalf("window = %s..%s", exp.from, exp.to)
	}
}

func TestExportBookingsBadDate(t *testing.T) {
	h := NewAdminHandler(&fakeExporter{})
	rec := call(t, h.ExportBookings, http.MethodGet, "/v1/admin/bookings/export?from=yesterday", "", nil, 1)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
