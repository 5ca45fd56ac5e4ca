package model

import "time"

// Train is an entry of the train registry.  Source and Destination form
// the train's default route; bookings copy them unless the caller books a
// shorter segment.
//
// Fields:
//  ID          – primary key identifier.
//  Number      – public train number (unique).
//  Name        – display name.
//  Source      – origin station code.
//  Destination – terminal station code.
//  Classes     – fare classes offered on this train (joined, not a column).
type Train struct {
	ID          uint64       `json:"id"`          // trains.id
	Number      string       `json:"number"`      // trains.number
	Name        string       `json:"name"`        // trains.name
	Source      string       `json:"source"`      // trains.source
	Destination string       `json:"destination"` // trains.destination
	CreatedAt   time.Time    `json:"created_at"`  // trains.created_at
	Classes     []TrainClass `json:"classes,omitempty"`
}

// TrainClass is a fare class on a specific train.  TotalSeats is the
// capacity ceiling for every travel date; Fare is the flat per-seat price
// in minor currency units.  The row is never written by the booking flow.
//
// Fields:
//  TrainID    – train the class belongs to.
//  ClassType  – class code such as SL, 3A or CC.
//  TotalSeats – seats sold per travel date.
//  Fare       – per-seat fare in minor units.
type TrainClass struct {
	TrainID    uint64 `json:"train_id"`    // train_classes.train_id
	ClassType  string `json:"class_type"`  // train_classes.class_type
	TotalSeats int    `json:"total_seats"` // train_classes.total_seats
	Fare       int64  `json:"fare"`        // train_classes.fare
}

// ClassRoute is what the registry hands the booking core for a
// (train, class) pair: fare, capacity and the train's route.
type ClassRoute struct {
	TrainClass
	Source      string
	Destination string
}

// Scope identifies the inventory over which capacity and seat numbering
// are tracked.
type Scope struct {
	TrainID    uint64
	ClassType  string
	TravelDate time.Time
}
