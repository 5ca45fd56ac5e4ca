package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// PNRLength is the length of every generated booking reference.
const PNRLength = 10

// PNRGenerator produces passenger name records: the booking day and month
// (DDMM) followed by six random digits.  References are not guaranteed to
// be unique; the bookings table enforces that and the booking transaction
// regenerates on collision.
type PNRGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPNRGenerator returns a generator seeded from the runtime's entropy.
func NewPNRGenerator() *PNRGenerator {
	return &PNRGenerator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewPNRGeneratorWithSource returns a generator drawing from src.  Tests
// use it to force specific sequences, collisions included.
func NewPNRGeneratorWithSource(src rand.Source) *PNRGenerator {
	return &PNRGenerator{rnd: rand.New(src)}
}

// Generate returns a reference for a booking created at t.
func (g *PNRGenerator) Generate(t time.Time) string {
	g.mu.Lock()
	n := g.rnd.IntN(1_000_000)
	g.mu.Unlock()
	return fmt.Sprintf("%02d%02d%06d", t.Day(), int(t.Month()), n)
}
