package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/csfahad/rbms-sub001/internal/model"
)

// PNRKey is the name of the unique index on bookings.pnr.  Duplicate-key
// errors naming it are PNR collisions rather than data errors.
const PNRKey = "uq_bookings_pnr"

// BookingRepo provides persistence for bookings.  Rows are inserted once
// by the booking transaction; the only later write is the status flip
// performed by CancelTx.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, train_id, class_type, travel_date, pnr, status, total_fare,
                      from_station, to_station, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var from, to sql.NullString
	if err := row.Scan(
		&b.ID, &b.UserID, &b.TrainID, &b.ClassType, &b.TravelDate, &b.PNR, &b.Status, &b.TotalFare,
		&from, &to, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if from.Valid {
		s := from.String
		b.FromStation = &s
	}
	if to.Valid {
		s := to.String
		b.ToStation = &s
	}
	return &b, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// CreateTx inserts a booking within the caller's transaction and reads the
// row back to populate the ID and timestamps.  A PNR collision surfaces as
// a duplicate-key error on PNRKey; MySQL rolls back only the failed
// statement, so the caller may regenerate the PNR and call CreateTx again
// on the same transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, train_id, class_type, travel_date, pnr, status, total_fare, from_station, to_station)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.TrainID, b.ClassType, b.TravelDate.Format(model.DateLayout), b.PNR, b.Status, b.TotalFare,
		nullable(b.FromStation), nullable(b.ToStation),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns the booking or ErrBookingNotFound.  Passengers are not
// loaded.
func (r *BookingRepo) GetByID(ctx context.Context, q DBTX, id uint64) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// CancelTx flips a Confirmed booking to Cancelled in a single conditional
// update and returns the number of rows changed (0 or 1).  Zero means the
// booking is missing or already cancelled; the caller tells them apart.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.StatusCancelled, id, model.StatusConfirmed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByUser returns a user's bookings, nearest travel date first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY travel_date, id`, userID)
}

// ListCreatedBetween returns bookings created in [from, to), oldest first.
// It backs the read-only history export.
func (r *BookingRepo) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	return r.list(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`,
		from.UTC(), to.UTC())
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
