package config

import "time"

// BookingConfig bounds the booking transactions.  TxTimeout caps a single
// attempt (lock wait included); TxRetries is the number of attempts made
// when an attempt fails with a lock timeout or deadlock; PNRAttempts caps
// reference regeneration after unique-key collisions.
type BookingConfig struct {
	TxTimeout     time.Duration
	TxRetries     int
	RetryBackoff  time.Duration
	PNRAttempts   int
	MaxPassengers int
}

// LoadBookingConfig reads the booking tunables, clamping nonsensical
// values to the smallest usable setting.
func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		TxTimeout:     envDur("BOOKING_TX_TIMEOUT", 10*time.Second),
		TxRetries:     envInt("BOOKING_TX_RETRIES", 3),
		RetryBackoff:  envDur("BOOKING_RETRY_BACKOFF", 50*time.Millisecond),
		PNRAttempts:   envInt("PNR_MAX_ATTEMPTS", 5),
		MaxPassengers: envInt("MAX_PASSENGERS_PER_BOOKING", 6),
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = 10 * time.Second
	}
	if c.TxRetries < 1 {
		c.TxRetries = 1
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.PNRAttempts < 1 {
		c.PNRAttempts = 1
	}
	if c.MaxPassengers < 1 {
		c.MaxPassengers = 1
	}
	return c
}
