package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/csfahad/rbms-sub001/internal/domain"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
)

// Ticket renders the e-ticket of a booking owned by userID as a PDF and
// returns the bytes with a suggested file name.
func (s *BookingService) Ticket(ctx context.Context, userID, bookingID uint64) ([]byte, string, error) {
	b, err := s.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, "", err
	}
	train, err := s.trains.GetByID(ctx, b.TrainID)
	if err != nil {
		if errors.Is(err, repository.ErrTrainNotFound) {
			return nil, "", domain.NotFoundError{Resource: "train", Err: err}
		}
		return nil, "", err
	}
	return BuildTicketPDF(b, train)
}

// BuildTicketPDF lays out one page listing the booking and every
// passenger with their seat.
func BuildTicketPDF(b *model.Booking, t *model.Train) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.PNR, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("PNR          : %s", b.PNR),
		fmt.Sprintf("Status       : %s", b.Status),
		fmt.Sprintf("Train        : %s %s", t.Number, t.Name),
		fmt.Sprintf("Class        : %s", b.ClassType),
		fmt.Sprintf("Travel date  : %s", b.TravelDate.Format(model.DateLayout)),
		fmt.Sprintf("Route        : %s -> %s", orDash(b.FromStation), orDash(b.ToStation)),
		fmt.Sprintf("Total fare   : %s", formatFare(b.TotalFare)),
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(80, 8, "Passenger", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 8, "Age", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 8, "Gender", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Seat", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, p := range b.Passengers {
		pdf.CellFormat(80, 8, p.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", p.Age), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 8, p.Gender, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, p.SeatNumber, "1", 1, "C", false, 0, "")
	}

	if b.Status == model.StatusCancelled {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, "THIS BOOKING HAS BEEN CANCELLED")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("ETICKET_%s.pdf", b.PNR), nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// formatFare prints minor units as a decimal amount.
func formatFare(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
