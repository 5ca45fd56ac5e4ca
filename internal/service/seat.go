package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// SeatLister is the slice of PassengerRepo the seat assigner needs.
type SeatLister interface {
	SeatNumbers(ctx context.Context, q repository.DBTX, s model.Scope) ([]string, error)
}

// SeatAssigner hands out seat numbers of the form <class>-<ordinal>, the
// ordinal zero padded to three digits.  The next ordinal is one past the
// highest ordinal held by a Confirmed booking in the scope, so seats freed
// in the middle of the range are not handed out again.  Seats freed at
// the top of the range are: with CLS-001..CLS-003 confirmed and the
// booking holding CLS-003 cancelled, the next seat is CLS-003 once more.
//
// NextTx must run on a transaction that holds the train class lock,
// otherwise two bookings may read the same maximum.
type SeatAssigner struct {
	seats SeatLister
}

func NewSeatAssigner(seats SeatLister) *SeatAssigner {
	return &SeatAssigner{seats: seats}
}

// NextTx returns the next free seat number in the scope.  Seats inserted
// earlier in the same transaction are visible to it.
func (a *SeatAssigner) NextTx(ctx context.Context, q repository.DBTX, s model.Scope) (string, error) {
	held, err := a.seats.SeatNumbers(ctx, q, s)
	if err != nil {
		return "", err
	}
	return FormatSeat(s.ClassType, MaxSeatOrdinal(held)+1), nil
}

// FormatSeat renders a seat number.  Ordinals above 999 simply widen.
func FormatSeat(classType string, ordinal int) string {
	return fmt.Sprintf("%s-%03d", classType, ordinal)
}

// MaxSeatOrdinal returns the largest ordinal among seats, or 0 when none
// parse.  The ordinal is the part after the last hyphen so class codes may
// themselves contain hyphens.
func MaxSeatOrdinal(seats []string) int {
	highest := 0
	for _, s := range seats {
		i := strings.LastIndexByte(s, '-')
		if i < 0 {
			continue
		}
		n, err := strconv.Atoi(s[i+1:])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
