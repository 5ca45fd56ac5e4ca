// Package service holds the booking core: availability, seat and PNR
// assignment, and the create and cancel transactions built on them.
// Handlers call into it and translate the domain errors it returns.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/csfahad/rbms-sub001/internal/config"
	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// Passenger field limits.
const (
	MaxClassTypeLen = 10
	MaxNameLen      = 100
	MaxAge          = 125
)

var validGenders = map[string]bool{"M": true, "F": true, "O": true}

// EventPublisher receives booking lifecycle notifications after commit.
// Failures are logged and never undo the booking.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, b *model.Booking) error
	BookingCancelled(ctx context.Context, b *model.Booking) error
}

// PassengerInput is one traveller of a booking request.
type PassengerInput struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// CreateBookingInput is a booking request.  TravelDate is YYYY-MM-DD.
// FromStation and ToStation default to the train's route.
type CreateBookingInput struct {
	UserID      uint64           `json:"-"`
	TrainID     uint64           `json:"train_id"`
	ClassType   string           `json:"class_type"`
	TravelDate  string           `json:"travel_date"`
	Passengers  []PassengerInput `json:"passengers"`
	FromStation *string          `json:"from_station,omitempty"`
	ToStation   *string          `json:"to_station,omitempty"`
}

// BookingList is a user's bookings split the way the history view shows
// them.
type BookingList struct {
	Upcoming  []model.Booking `json:"upcoming"`
	Past      []model.Booking `json:"past"`
	Cancelled []model.Booking `json:"cancelled"`
}

// AvailabilityView answers the public availability query.
type AvailabilityView struct {
	TrainID    uint64 `json:"train_id"`
	ClassType  string `json:"class_type"`
	TravelDate string `json:"travel_date"`
	TotalSeats int    `json:"total_seats"`
	Available  int    `json:"available"`
	Fare       int64  `json:"fare"`
}

// BookingService runs booking transactions against MySQL.
type BookingService struct {
	db         *sql.DB
	trains     *repository.TrainRepo
	bookings   *repository.BookingRepo
	passengers *repository.PassengerRepo
	avail      *AvailabilityCalculator
	seats      *SeatAssigner
	pnr        *PNRGenerator
	events     EventPublisher
	cfg        config.BookingConfig
	now        func() time.Time
	log        *log.Logger
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces the wall clock used for PNRs and for deciding which
// travel dates are in the past.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

func WithPNRGenerator(g *PNRGenerator) Option {
	return func(s *BookingService) { s.pnr = g }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *BookingService) { s.events = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BookingService) { s.log = l }
}

// NewBookingService wires the repositories and helpers around db.
func NewBookingService(db *sql.DB, cfg config.BookingConfig, opts ...Option) *BookingService {
	trains := repository.NewTrainRepo(db)
	passengers := repository.NewPassengerRepo(db)
	s := &BookingService{
		db:         db,
		trains:     trains,
		bookings:   repository.NewBookingRepo(db),
		passengers: passengers,
		avail:      NewAvailabilityCalculator(trains, passengers),
		seats:      NewSeatAssigner(passengers),
		pnr:        NewPNRGenerator(),
		cfg:        cfg,
		now:        time.Now,
		log:        log.New("booking"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *BookingService) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Create books every passenger of in onto one train class and date, or
// nothing.  The class row is locked for the length of the transaction;
// availability, PNR and seats are all decided under that lock.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	req, travelDate, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}
	var booking *model.Booking
	err = s.withRetry(ctx, "create booking", func(ctx context.Context) error {
		b, err := s.createTx(ctx, req, travelDate)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("booking %d confirmed: pnr=%s train=%d class=%s date=%s seats=%d",
		booking.ID, booking.PNR, booking.TrainID, booking.ClassType,
		booking.TravelDate.Format(model.DateLayout), len(booking.Passengers))
	s.publish(ctx, booking, true)
	return booking, nil
}

func (s *BookingService) createTx(ctx context.Context, in CreateBookingInput, travelDate time.Time) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	class, err := s.trains.LockClassTx(ctx, tx, in.TrainID, in.ClassType)
	if err != nil {
		if errors.Is(err, repository.ErrTrainNotFound) {
			return nil, domain.NotFoundError{Resource: "train class", Err: err}
		}
		return nil, err
	}
	scope := model.Scope{TrainID: in.TrainID, ClassType: in.ClassType, TravelDate: travelDate}
	free, err := s.avail.Remaining(ctx, tx, class.TotalSeats, scope)
	if err != nil {
		return nil, err
	}
	if free < len(in.Passengers) {
		return nil, domain.CapacityError{Requested: len(in.Passengers), Available: free}
	}

	b := &model.Booking{
		UserID:      in.UserID,
		TrainID:     in.TrainID,
		ClassType:   in.ClassType,
		TravelDate:  travelDate,
		Status:      model.StatusConfirmed,
		TotalFare:   class.Fare * int64(len(in.Passengers)),
		FromStation: in.FromStation,
		ToStation:   in.ToStation,
	}
	if b.FromStation == nil {
		src := class.Source
		b.FromStation = &src
	}
	if b.ToStation == nil {
		dst := class.Destination
		b.ToStation = &dst
	}
	if err := s.insertWithPNR(ctx, tx, b); err != nil {
		return nil, err
	}

	b.Passengers = make([]model.Passenger, 0, len(in.Passengers))
	for _, pin := range in.Passengers {
		seat, err := s.seats.NextTx(ctx, tx, scope)
		if err != nil {
			return nil, err
		}
		p := model.Passenger{BookingID: b.ID, Name: pin.Name, Age: pin.Age, Gender: pin.Gender, SeatNumber: seat}
		if err := s.passengers.CreateTx(ctx, tx, &p); err != nil {
			return nil, err
		}
		b.Passengers = append(b.Passengers, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, commitErr("commit booking", err)
	}
	committed = true
	return b, nil
}

// insertWithPNR inserts b, drawing a fresh PNR after each collision.  A
// failed INSERT only rolls back its own statement so the transaction and
// its class lock stay usable.
func (s *BookingService) insertWithPNR(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var last error
	for attempt := 1; attempt <= s.cfg.PNRAttempts; attempt++ {
		b.PNR = s.pnr.Generate(s.now().UTC())
		err := s.bookings.CreateTx(ctx, tx, b)
		if err == nil {
			return nil
		}
		if !repository.IsDuplicateKey(err, repository.PNRKey) {
			return err
		}
		s.log.Warnf("pnr collision on %s (attempt %d/%d)", b.PNR, attempt, s.cfg.PNRAttempts)
		last = err
	}
	return domain.TransientError{Op: "assign pnr", Err: last}
}

// Cancel moves a Confirmed booking to Cancelled.  Its seats count as free
// from the moment the transaction commits.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return s.cancel(ctx, bookingID, 0)
}

// CancelForUser is Cancel restricted to bookings owned by userID.  Other
// users' bookings yield repository.ErrForbidden.
func (s *BookingService) CancelForUser(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	return s.cancel(ctx, bookingID, userID)
}

func (s *BookingService) cancel(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
	if bookingID == 0 {
		return nil, domain.ValidationError{Field: "booking_id", Msg: "must be positive"}
	}
	var booking *model.Booking
	err := s.withRetry(ctx, "cancel booking", func(ctx context.Context) error {
		b, err := s.cancelTx(ctx, bookingID, ownerID)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("booking %d cancelled: pnr=%s seats released=%d", booking.ID, booking.PNR, len(booking.Passengers))
	s.publish(ctx, booking, false)
	return booking, nil
}

func (s *BookingService) cancelTx(ctx context.Context, bookingID, ownerID uint64) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if ownerID != 0 {
		b, err := s.bookings.GetByID(ctx, tx, bookingID)
		if err != nil {
			return nil, bookingLookupErr(err)
		}
		if b.UserID != ownerID {
			return nil, repository.ErrForbidden
		}
	}
	n, err := s.bookings.CancelTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, tx, bookingID)
	if err != nil {
		return nil, bookingLookupErr(err)
	}
	if n == 0 {
		// the row exists, so it was not Confirmed
		return nil, domain.ErrAlreadyCancelled
	}
	if b.Passengers, err = s.passengers.ListByBooking(ctx, tx, bookingID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, commitErr("commit cancellation", err)
	}
	committed = true
	return b, nil
}

// Get returns a booking with its passengers.  When userID is non-zero the
// booking must belong to that user.
func (s *BookingService) Get(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, bookingLookupErr(err)
	}
	if userID != 0 && b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if b.Passengers, err = s.passengers.ListByBooking(ctx, s.db, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// ListForUser returns the user's bookings partitioned into upcoming, past
// and cancelled.  Travel today counts as upcoming.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) (*BookingList, error) {
	all, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.attachPassengers(ctx, all); err != nil {
		return nil, err
	}
	return PartitionBookings(all, s.today()), nil
}

// PartitionBookings splits bookings around today (UTC midnight).
func PartitionBookings(all []model.Booking, today time.Time) *BookingList {
	out := &BookingList{
		Upcoming:  []model.Booking{},
		Past:      []model.Booking{},
		Cancelled: []model.Booking{},
	}
	for _, b := range all {
		switch {
		case b.Status == model.StatusCancelled:
			out.Cancelled = append(out.Cancelled, b)
		case b.TravelDate.Before(today):
			out.Past = append(out.Past, b)
		default:
			out.Upcoming = append(out.Upcoming, b)
		}
	}
	return out
}

func (s *BookingService) attachPassengers(ctx context.Context, bs []model.Booking) error {
	ids := make([]uint64, len(bs))
	for i := range bs {
		ids[i] = bs[i].ID
	}
	byBooking, err := s.passengers.ListByBookings(ctx, ids)
	if err != nil {
		return err
	}
	for i := range bs {
		bs[i].Passengers = byBooking[bs[i].ID]
	}
	return nil
}

// CheckAvailability answers "how many seats are left" outside of any
// booking transaction.  The figure may be stale by the time a booking is
// attempted.
func (s *BookingService) CheckAvailability(ctx context.Context, trainID uint64, classType, date string) (*AvailabilityView, error) {
	if trainID == 0 {
		return nil, domain.ValidationError{Field: "train_id", Msg: "must be positive"}
	}
	classType, err := normalizeClass(classType)
	if err != nil {
		return nil, err
	}
	travelDate, err := parseTravelDate(date)
	if err != nil {
		return nil, err
	}
	free, class, err := s.avail.Availability(ctx, s.db, model.Scope{TrainID: trainID, ClassType: classType, TravelDate: travelDate})
	if err != nil {
		return nil, err
	}
	return &AvailabilityView{
		TrainID:    trainID,
		ClassType:  classType,
		TravelDate: travelDate.Format(model.DateLayout),
		TotalSeats: class.TotalSeats,
		Available:  free,
		Fare:       class.Fare,
	}, nil
}

// commitErr reports a failed COMMIT.  The server may have applied the
// transaction before the connection broke, so it is never retried: the
// caller gets a TransientError and can check the outcome before retrying.
func commitErr(op string, err error) error {
	return domain.TransientError{Op: op, Err: err}
}

// withRetry runs fn with a per-attempt deadline and repeats it when the
// database gave up on a lock.  The last transient failure is returned as a
// domain.TransientError.  Errors fn already reports as TransientError
// (a failed commit, exhausted PNR attempts) are returned at once.
func (s *BookingService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := s.cfg.RetryBackoff
	var last error
	for attempt := 1; attempt <= s.cfg.TxRetries; attempt++ {
		actx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
		err := fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		if domain.IsTransient(err) || !repository.IsRetryable(err) {
			return err
		}
		last = err
		s.log.Warnf("%s: attempt %d/%d failed: %v", op, attempt, s.cfg.TxRetries, err)
		if attempt == s.cfg.TxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return domain.TransientError{Op: op, Err: ctx.Err()}
		}
		backoff *= 2
	}
	return domain.TransientError{Op: op, Err: last}
}

func (s *BookingService) publish(ctx context.Context, b *model.Booking, confirmed bool) {
	if s.events == nil {
		return
	}
	var err error
	if confirmed {
		err = s.events.BookingConfirmed(ctx, b)
	} else {
		err = s.events.BookingCancelled(ctx, b)
	}
	if err != nil {
		s.log.Warnf("booking %d: publish event: %v", b.ID, err)
	}
}

func bookingLookupErr(err error) error {
	if errors.Is(err, repository.ErrBookingNotFound) {
		return domain.NotFoundError{Resource: "booking", Err: err}
	}
	return err
}

// validateCreate checks and normalises a booking request before any
// database work.
func (s *BookingService) validateCreate(in CreateBookingInput) (CreateBookingInput, time.Time, error) {
	if in.UserID == 0 {
		return in, time.Time{}, domain.ValidationError{Field: "user_id", Msg: "must be positive"}
	}
	if in.TrainID == 0 {
		return in, time.Time{}, domain.ValidationError{Field: "train_id", Msg: "must be positive"}
	}
	class, err := normalizeClass(in.ClassType)
	if err != nil {
		return in, time.Time{}, err
	}
	in.ClassType = class
	travelDate, err := parseTravelDate(in.TravelDate)
	if err != nil {
		return in, time.Time{}, err
	}
	if travelDate.Before(s.today()) {
		return in, time.Time{}, domain.ValidationError{Field: "travel_date", Msg: "must not be in the past"}
	}
	if len(in.Passengers) == 0 {
		return in, time.Time{}, domain.ValidationError{Field: "passengers", Msg: "at least one passenger is required"}
	}
	if len(in.Passengers) > s.cfg.MaxPassengers {
		return in, time.Time{}, domain.ValidationError{
			Field: "passengers",
			Msg:   fmt.Sprintf("at most %d passengers per booking", s.cfg.MaxPassengers),
		}
	}
	ps := make([]PassengerInput, len(in.Passengers))
	for i, p := range in.Passengers {
		field := fmt.Sprintf("passengers[%d]", i)
		p.Name = strings.TrimSpace(p.Name)
		p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
		switch {
		case p.Name == "":
			return in, time.Time{}, domain.ValidationError{Field: field + ".name", Msg: "is required"}
		case len(p.Name) > MaxNameLen:
			return in, time.Time{}, domain.ValidationError{Field: field + ".name", Msg: "is too long"}
		case p.Age < 0 || p.Age > MaxAge:
			return in, time.Time{}, domain.ValidationError{Field: field + ".age", Msg: fmt.Sprintf("must be between 0 and %d", MaxAge)}
		case !validGenders[p.Gender]:
			return in, time.Time{}, domain.ValidationError{Field: field + ".gender", Msg: "must be M, F or O"}
		}
		ps[i] = p
	}
	in.Passengers = ps
	in.FromStation = trimOptional(in.FromStation)
	in.ToStation = trimOptional(in.ToStation)
	return in, travelDate, nil
}

func normalizeClass(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "", domain.ValidationError{Field: "class_type", Msg: "is required"}
	}
	if len(c) > MaxClassTypeLen {
		return "", domain.ValidationError{Field: "class_type", Msg: "is too long"}
	}
	return c, nil
}

func parseTravelDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: "travel_date", Msg: "must be YYYY-MM-DD", Err: err}
	}
	return t, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
