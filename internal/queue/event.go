// Package queue defines the booking lifecycle messages exchanged over
// RabbitMQ together with their publisher and the log-writing consumer.
package queue

import (
	"time"

	"github.com/csfahad/rbms-sub001/internal/model"
)

// Queue names.  Each event type has its own durable queue; the routing key
// equals the queue name on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking commits or is cancelled.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	Type        string   `json:"type"`
	BookingID   uint64   `json:"booking_id"`
	PNR         string   `json:"pnr"`
	UserID      uint64   `json:"user_id"`
	TrainID     uint64   `json:"train_id"`
	ClassType   string   `json:"class_type"`
	TravelDate  string   `json:"travel_date"`
	FromStation string   `json:"from_station,omitempty"`
	ToStation   string   `json:"to_station,omitempty"`
	Seats       []string `json:"seats"`
	TotalFare   int64    `json:"total_fare"`
	OccurredAt  string   `json:"occurred_at"`
}

// NewBookingEvent snapshots b for queue typ at time at.
func NewBookingEvent(typ string, b *model.Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		PNR:        b.PNR,
		UserID:     b.UserID,
		TrainID:    b.TrainID,
		ClassType:  b.ClassType,
		TravelDate: b.TravelDate.Format(model.DateLayout),
		Seats:      make([]string, 0, len(b.Passengers)),
		TotalFare:  b.TotalFare,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	if b.FromStation != nil {
		ev.FromStation = *b.FromStation
	}
	if b.ToStation != nil {
		ev.ToStation = *b.ToStation
	}
	for _, p := range b.Passengers {
		ev.Seats = append(ev.Seats, p.SeatNumber)
	}
	return ev
}
