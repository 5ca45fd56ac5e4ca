package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/csfahad/rbms-sub001/internal/config"
	"github.com/csfahad/rbms-sub001/internal/database"
	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// These tests run against a real MySQL named by TEST_MYSQL_DSN and are
// skipped without it.  `make test-integration` runs them, e.g.
// rbms:rbms@tcp(127.0.0.1:3306)/rbms_test?parseTime=true&loc=UTC&innodb_lock_wait_timeout=5

type liveFixture struct {
	db      *sql.DB
	svc     *BookingService
	trainID uint64
	userID  uint64
	date    string
}

func newLiveFixture(t *testing.T, seats int) *liveFixture {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := database.OpenDSN(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stamp := time.Now().UnixNano()
	users := repository.NewUserRepo(db)
	userID, err := users.Create(ctx, fmt.Sprintf("it-%d@example.com", stamp), "password123", model.RoleUser, 4)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	trains := repository.NewTrainRepo(db)
	tr := &model.Train{Number: fmt.Sprintf("T%d", stamp%1e12), Name: "Integration", Source: "BCT", Destination: "NDLS",
		Classes: []model.TrainClass{{ClassType: "SL", TotalSeats: seats, Fare: 500}}}
	if err := trains.CreateWithClasses(ctx, tr); err != nil {
		t.Fatalf("create train: %v", err)
	}

	quiet := log.New("it")
	quiet.SetOutput(io.Discard)
	cfg := config.BookingConfig{TxTimeout: 10 * time.Second, TxRetries: 5, RetryBackoff: 20 * time.Millisecond, PNRAttempts: 5, MaxPassengers: 6}
	return &liveFixture{
		db:      db,
		svc:     NewBookingService(db, cfg, WithLogger(quiet)),
		trainID: tr.ID,
		userID:  userID,
		date:    time.Now().UTC().AddDate(0, 0, 30).Format(model.DateLayout),
	}
}

func (f *liveFixture) book(ctx context.Context, n int) (*model.Booking, error) {
	ps := make([]PassengerInput, n)
	for i := range ps {
		ps[i] = PassengerInput{Name: fmt.Sprintf("Traveller %d", i+1), Age: 30, Gender: "M"}
	}
	return f.svc.Create(ctx, CreateBookingInput{
		UserID: f.userID, TrainID: f.trainID, ClassType: "SL", TravelDate: f.date, Passengers: ps,
	})
}

func (f *liveFixture) available(t *testing.T) int {
	t.Helper()
	v, err := f.svc.CheckAvailability(context.Background(), f.trainID, "SL", f.date)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return v.Available
}

// race books n single-seat bookings at once and returns the successes.
func (f *liveFixture) race(t *testing.T, n int) []*model.Booking {
	t.Helper()
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		won  []*model.Booking
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			b, err := f.book(context.Background(), 1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			won = append(won, b)
		}()
	}
	close(start)
	wg.Wait()
	for _, err := range errs {
		if !errors.Is(err, domain.ErrCapacityExceeded) && !domain.IsTransient(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return won
}

func TestLiveLastSeatHasOneWinner(t *testing.T) {
	f := newLiveFixture(t, 2)
	if _, err := f.book(context.Background(), 1); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	won := f.race(t, 2)
	if len(won) != 1 {
		t.Fatalf("%d bookings got the last seat", len(won))
	}
	if won[0].Passengers[0].SeatNumber != "SL-002" {
		t.Fatalf("seat = %s", won[0].Passengers[0].SeatNumber)
	}
	if got := f.available(t); got != 0 {
		t.Fatalf("available = %d", got)
	}
}

func TestLiveConcurrentBookersNeverOverbook(t *testing.T) {
	const seats, bookers = 5, 20
	f := newLiveFixture(t, seats)
	won := f.race(t, bookers)
	if len(won) > seats {
		t.Fatalf("%d bookings for %d seats", len(won), seats)
	}

	seen := map[string]bool{}
	for _, b := range won {
		s := b.Passengers[0].SeatNumber
		if seen[s] {
			t.Fatalf("seat %s assigned twice", s)
		}
		seen[s] = true
	}
	var confirmed int
	err := f.db.QueryRow(`SELECT COUNT(*) FROM passengers p JOIN bookings b ON b.id = p.booking_id
		WHERE b.train_id = ? AND b.class_type = 'SL' AND b.status = ?`, f.trainID, model.StatusConfirmed).Scan(&confirmed)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if confirmed != len(won) || f.available(t) != seats-len(won) {
		t.Fatalf("confirmed=%d won=%d available=%d", confirmed, len(won), f.available(t))
	}
}

func TestLiveCancelRestoresAvailability(t *testing.T) {
	f := newLiveFixture(t, 3)
	ctx := context.Background()
	b, err := f.book(ctx, 3)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.book(ctx, 1); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if _, err := f.svc.CancelForUser(ctx, f.userID, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("available after cancel = %d", got)
	}
	if _, err := f.svc.CancelForUser(ctx, f.userID, b.ID); !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Fatalf("second cancel: %v", err)
	}
	again, err := f.book(ctx, 2)
	if err != nil {
		t.Fatalf("rebook: %v", err)
	}
	if again.PNR == b.PNR {
		t.Fatalf("PNR reused")
	}
}
