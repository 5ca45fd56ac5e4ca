package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/csfahad/rbms-sub001/internal/model"
)

func TestBuildTicketPDF(t *testing.T) {
	from, to := "NDLS", "BCT"
	b := &model.Booking{
		ID: 11, PNR: "1510123456", Status: model.StatusConfirmed, ClassType: "3A",
		TravelDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), TotalFare: 50000,
		FromStation: &from, ToStation: &to,
		Passengers: []model.Passenger{{Name: "Asha", Age: 30, Gender: "F", SeatNumber: "3A-001"}},
	}
	pdf, name, err := BuildTicketPDF(b, &model.Train{Number: "12951", Name: "Rajdhani"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if name != "ETICKET_1510123456.pdf" {
		t.Fatalf("filename = %s", name)
	}
}

func TestFormatFare(t *testing.T) {
	for in, want := range map[int64]string{0: "0.00", 5: "0.05", 50000: "500.00", -125: "-1.25"} {
		if got := formatFare(in); got != want {
			t.Fatalf("formatFare(%d) = %s, want %s", in, got, want)
		}
	}
}
