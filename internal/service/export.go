package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
)

var exportHeader = []string{
	"booking_id", "pnr", "user_id", "train_id", "class_type", "travel_date", "status",
	"total_fare", "from_station", "to_station", "created_at",
	"passenger_id", "passenger_name", "passenger_age", "passenger_gender", "seat_number",
}

// ExportCSV writes every booking created in [from, to) as CSV, one row per
// passenger.  It only reads.
func (s *BookingService) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	if !to.After(from) {
		return domain.ValidationError{Field: "to", Msg: "must be after from"}
	}
	bookings, err := s.bookings.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if err := s.attachPassengers(ctx, bookings); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, b := range bookings {
		base := []string{
			strconv.FormatUint(b.ID, 10),
			b.PNR,
			strconv.FormatUint(b.UserID, 10),
			strconv.FormatUint(b.TrainID, 10),
			b.ClassType,
			b.TravelDate.Format(model.DateLayout),
			b.Status,
			strconv.FormatInt(b.TotalFare, 10),
			deref(b.FromStation),
			deref(b.ToStation),
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, p := range b.Passengers {
			row := append(append([]string{}, base...),
				strconv.FormatUint(p.ID, 10),
				p.Name,
				strconv.Itoa(p.Age),
				p.Gender,
				p.SeatNumber,
			)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
