package model

import "time"

// DateLayout is the wire and SQL form of a travel date.
const DateLayout = "2006-01-02"

// Booking statuses.  Cancelled is terminal.
const (
	StatusConfirmed = "Confirmed"
	StatusCancelled = "Cancelled"
)

// Booking records a user's reservation of one or more seats of a train
// class on a travel date.  Only Status ever changes after insert.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the booking.
//  TrainID     – booked train.
//  ClassType   – booked class on that train.
//  TravelDate  – date of travel (UTC midnight).
//  PNR         – passenger-facing reference, unique across all bookings.
//  Status      – Confirmed or Cancelled.
//  TotalFare   – fare × passenger count, in minor units.
//  FromStation – segment start (defaults to the train's source).
//  ToStation   – segment end (defaults to the train's destination).
type Booking struct {
	ID          uint64      `json:"id"`           // bookings.id
	UserID      uint64      `json:"user_id"`      // bookings.user_id
	TrainID     uint64      `json:"train_id"`     // bookings.train_id
	ClassType   string      `json:"class_type"`   // bookings.class_type
	TravelDate  time.Time   `json:"travel_date"`  // bookings.travel_date
	PNR         string      `json:"pnr"`          // bookings.pnr
	Status      string      `json:"status"`       // bookings.status
	TotalFare   int64       `json:"total_fare"`   // bookings.total_fare
	FromStation *string     `json:"from_station"` // bookings.from_station (nullable)
	ToStation   *string     `json:"to_station"`   // bookings.to_station (nullable)
	CreatedAt   time.Time   `json:"created_at"`   // bookings.created_at
	UpdatedAt   time.Time   `json:"updated_at"`   // bookings.updated_at
	Passengers  []Passenger `json:"passengers,omitempty"`
}

// Passenger is a traveller on a booking.  Rows are written once at booking
// time and removed only by cascading deletion of the booking.
type Passenger struct {
	ID         uint64 `json:"id"`          // passengers.id
	BookingID  uint64 `json:"booking_id"`  // passengers.booking_id
	Name       string `json:"name"`        // passengers.name
	Age        int    `json:"age"`         // passengers.age
	Gender     string `json:"gender"`      // passengers.gender
	SeatNumber string `json:"seat_number"` // passengers.seat_number
}
