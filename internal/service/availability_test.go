package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

type stubClasses struct {
	class *model.ClassRoute
	err   error
}

func (s stubClasses) GetClass(context.Context, repository.DBTX, uint64, string) (*model.ClassRoute, error) {
	return s.class, s.err
}

type stubCounter struct {
	held  int
	calls int
}

func (s *stubCounter) CountConfirmed(context.Context, repository.DBTX, model.Scope) (int, error) {
	s.calls++
	return s.held, nil
}

var availScope = model.Scope{TrainID: 7, ClassType: "SL", TravelDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)}

func TestAvailabilityDerivedFromConfirmedPassengers(t *testing.T) {
	counter := &stubCounter{held: 3}
	calc := NewAvailabilityCalculator(stubClasses{class: &model.ClassRoute{TrainClass: model.TrainClass{TotalSeats: 10, Fare: 250}}}, counter)

	free, class, err := calc.Availability(context.Background(), nil, availScope)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if free != 7 || class.TotalSeats != 10 {
		t.Fatalf("free = %d, class = %+v", free, class)
	}
}

func TestAvailabilityUnknownClassIsNotFound(t *testing.T) {
	counter := &stubCounter{}
	calc := NewAvailabilityCalculator(stubClasses{err: repository.ErrTrainNotFound}, counter)

	_, _, err := calc.Availability(context.Background(), nil, availScope)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if counter.calls != 0 {
		t.Fatalf("counted passengers for a missing class")
	}
}

func TestAvailabilityPassesThroughLookupErrors(t *testing.T) {
	boom := errors.New("connection reset")
	calc := NewAvailabilityCalculator(stubClasses{err: boom}, &stubCounter{})

	if _, _, err := calc.Availability(context.Background(), nil, availScope); !errors.Is(err, boom) || domain.IsNotFound(err) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	calc := NewAvailabilityCalculator(stubClasses{}, &stubCounter{held: 12})

	free, err := calc.Remaining(context.Background(), nil, 10, availScope)
	if err != nil || free != 0 {
		t.Fatalf("free = %d, err = %v", free, err)
	}
}
