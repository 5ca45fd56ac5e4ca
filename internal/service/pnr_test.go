package service

import (
	"math/rand/v2"
	"strconv"
	"testing"
	"time"
)

func TestPNRFormat(t *testing.T) {
	g := NewPNRGenerator()
	at := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		p := g.Generate(at)
		if len(p) != PNRLength {
			t.Fatalf("len(%q) = %d", p, len(p))
		}
		if p[:4] != "0703" {
			t.Fatalf("prefix of %q should be day then month", p)
		}
		if _, err := strconv.Atoi(p[4:]); err != nil {
			t.Fatalf("suffix of %q is not numeric", p)
		}
	}
}

func TestPNRDeterministicWithSource(t *testing.T) {
	a := NewPNRGeneratorWithSource(rand.NewPCG(42, 7))
	b := NewPNRGeneratorWithSource(rand.NewPCG(42, 7))
	at := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		if x, y := a.Generate(at), b.Generate(at); x != y {
			t.Fatalf("draw %d differs: %s vs %s", i, x, y)
		}
	}
}
