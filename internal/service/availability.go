package service

import (
	"context"
	"errors"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// ClassReader looks up a train class, optionally under a row lock.
type ClassReader interface {
	GetClass(ctx context.Context, q repository.DBTX, trainID uint64, classType string) (*model.ClassRoute, error)
}

// PassengerCounter counts seats held by Confirmed bookings in a scope.
type PassengerCounter interface {
	CountConfirmed(ctx context.Context, q repository.DBTX, s model.Scope) (int, error)
}

// AvailabilityCalculator derives free seats from the class capacity and
// the passengers of Confirmed bookings.  Nothing is cached.
type AvailabilityCalculator struct {
	classes    ClassReader
	passengers PassengerCounter
}

func NewAvailabilityCalculator(classes ClassReader, passengers PassengerCounter) *AvailabilityCalculator {
	return &AvailabilityCalculator{classes: classes, passengers: passengers}
}

// Availability returns total_seats minus confirmed passengers for the
// scope, together with the class row it was computed from.  An unknown
// train or class is a domain.NotFoundError.  Pass a transaction as q when
// the answer feeds a reservation.
func (a *AvailabilityCalculator) Availability(ctx context.Context, q repository.DBTX, s model.Scope) (int, *model.ClassRoute, error) {
	class, err := a.classes.GetClass(ctx, q, s.TrainID, s.ClassType)
	if err != nil {
		if errors.Is(err, repository.ErrTrainNotFound) {
			return 0, nil, domain.NotFoundError{Resource: "train class", Err: err}
		}
		return 0, nil, err
	}
	free, err := a.Remaining(ctx, q, class.TotalSeats, s)
	if err != nil {
		return 0, nil, err
	}
	return free, class, nil
}

// Remaining is Availability for a class the caller has already loaded,
// typically under FOR UPDATE.
func (a *AvailabilityCalculator) Remaining(ctx context.Context, q repository.DBTX, totalSeats int, s model.Scope) (int, error) {
	held, err := a.passengers.CountConfirmed(ctx, q, s)
	if err != nil {
		return 0, err
	}
	// capacity may have been lowered below what is already sold
	if free := totalSeats - held; free > 0 {
		return free, nil
	}
	return 0, nil
}
