package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDurationExceeded = errors.New("max route duration exceeded")
)

// Limits are the per-truck constraints every Path must respect.
// A zero MaxDurationSeconds disables the duration check.
type Limits struct {
	Capacity           float64
	MaxDurationSeconds float64
}

// One truck's leg: an ordered visiting sequence plus aggregates.
// Aggregates are always derived from Stops, never carried over from
// another Path.
type Path struct {
	Stops           []Stop
	Demand          float64
	DurationSeconds float64
}

// NewPath copies stops and computes the aggregates.
func NewPath(stops []Stop) Path {
	p := Path{Stops: make([]Stop, 0, len(stops))}
	for _, s := range stops {
		p.add(s)
	}
	return p
}

func (p *Path) add(s Stop) {
	p.Stops = append(p.Stops, s)
	p.Demand += s.Demand
	p.DurationSeconds += s.DepotDurationSeconds
}

// Fits reports whether s can be appended without breaking the limits.
func (p Path) Fits(s Stop, limits Limits) bool {
	return p.check(s, limits) == nil
}

func (p Path) check(s Stop, limits Limits) error {
	if p.Demand+s.Demand > limits.Capacity {
		return fmt.Errorf("load stop %d: demand %v + %v > %v: %w", s.ID, p.Demand, s.Demand, limits.Capacity, ErrCapacityExceeded)
	}
	if limits.MaxDurationSeconds > 0 && p.DurationSeconds+s.DepotDurationSeconds > limits.MaxDurationSeconds {
		return fmt.Errorf(
			"load stop %d: duration %v + %v > %v: %w",
			s.ID, p.DurationSeconds, s.DepotDurationSeconds, limits.MaxDurationSeconds, ErrDurationExceeded,
		)
	}
	return nil
}

// Load appends a single stop to the path if it fits.
func (p *Path) Load(s Stop, limits Limits) error {
	if err := p.check(s, limits); err != nil {
		return err
	}
	p.add(s)
	return nil
}

// Clone returns a deep copy whose Stops slice shares nothing with p.
func (p Path) Clone() Path {
	out := p
	out.Stops = append([]Stop(nil), p.Stops...)
	return out
}

// Swap exchanges two positions in place. Aggregates are order independent
// and stay untouched.
func (p *Path) Swap(i, j int) {
	p.Stops[i], p.Stops[j] = p.Stops[j], p.Stops[i]
}

func (p Path) Len() int { return len(p.Stops) }

// Within reports whether the aggregates respect the limits.
func (p Path) Within(limits Limits) bool {
	if p.Demand > limits.Capacity {
		return false
	}
	return limits.MaxDurationSeconds <= 0 || p.DurationSeconds <= limits.MaxDurationSeconds
}
