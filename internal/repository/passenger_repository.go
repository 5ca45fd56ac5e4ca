package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/csfahad/rbms-sub001/internal/model"
)

// PassengerRepo provides access to the passengers table.  Every count and
// seat query joins through bookings and only considers Confirmed rows, so
// a cancelled booking stops holding capacity the moment its status flips.
type PassengerRepo struct {
	db *sql.DB
}

// NewPassengerRepo returns a new PassengerRepo bound to the given database.
func NewPassengerRepo(db *sql.DB) *PassengerRepo { return &PassengerRepo{db: db} }

const confirmedInScope = `FROM passengers p
               JOIN bookings b ON b.id = p.booking_id
               WHERE b.train_id = ? AND b.class_type = ? AND b.travel_date = ? AND b.status = ?`

func scopeArgs(s model.Scope) []any {
	return []any{s.TrainID, s.ClassType, s.TravelDate.Format(model.DateLayout), model.StatusConfirmed}
}

// CountConfirmed returns the number of passengers holding seats in the
// scope.  Pass the caller's transaction when the count feeds a reservation
// decision.
func (r *PassengerRepo) CountConfirmed(ctx context.Context, q DBTX, s model.Scope) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) `+confirmedInScope, scopeArgs(s)...).Scan(&n)
	return n, err
}

// SeatNumbers returns every seat number held by a Confirmed booking in the
// scope, in no particular order.
func (r *PassengerRepo) SeatNumbers(ctx context.Context, q DBTX, s model.Scope) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT p.seat_number `+confirmedInScope, scopeArgs(s)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []string
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// CreateTx inserts a passenger within the caller's transaction and
// populates the generated ID.
func (r *PassengerRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Passenger) error {
	const q = `INSERT INTO passengers (booking_id, name, age, gender, seat_number) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.Name, p.Age, p.Gender, p.SeatNumber)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByBooking returns a booking's passengers in insertion order.
func (r *PassengerRepo) ListByBooking(ctx context.Context, q DBTX, bookingID uint64) ([]model.Passenger, error) {
	const sel = `SELECT id, booking_id, name, age, gender, seat_number FROM passengers WHERE booking_id = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, sel, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Passenger, 0)
	for rows.Next() {
		var p model.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Name, &p.Age, &p.Gender, &p.SeatNumber); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListByBookings fetches passengers for many bookings in one query, keyed
// by booking ID.
func (r *PassengerRepo) ListByBookings(ctx context.Context, bookingIDs []uint64) (map[uint64][]model.Passenger, error) {
	out := make(map[uint64][]model.Passenger, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(bookingIDs))
	placeholders := make([]string, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT id, booking_id, name, age, gender, seat_number FROM passengers
          WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
          ORDER BY booking_id, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Name, &p.Age, &p.Gender, &p.SeatNumber); err != nil {
			return nil, err
		}
		out[p.BookingID] = append(out[p.BookingID], p)
	}
	return out, rows.Err()
}
