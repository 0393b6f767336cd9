package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrStopMissing    = errors.New("stop missing from route")
	ErrStopDuplicated = errors.New("stop duplicated in route")
)

// Route is one candidate full solution (a chromosome): every catalog stop
// on exactly one Path. Fitness is the total travelled distance, so lower
// is better. PenalizedEdges counts legs whose distance could not be
// resolved and were charged the penalty distance instead.
type Route struct {
	Name           string
	Paths          []Path
	Fitness        float64
	PenalizedEdges int
}

// Clone returns a deep copy of the route.
func (r Route) Clone() Route {
	out := r
	out.Paths = make([]Path, len(r.Paths))
	for i, p := range r.Paths {
		out.Paths[i] = p.Clone()
	}
	return out
}

func (r Route) StopCount() int {
	n := 0
	for _, p := range r.Paths {
		n += len(p.Stops)
	}
	return n
}

// Signature identifies the visiting order, e.g. "1-3-2|4-5".
// Two routes with equal signatures are the same solution.
func (r Route) Signature() string {
	var sb strings.Builder
	for i, p := range r.Paths {
		if i > 0 {
			sb.WriteByte('|')
		}
		for j, s := range p.Stops {
			if j > 0 {
				sb.WriteByte('-')
			}
			sb.WriteString(strconv.Itoa(s.ID))
		}
	}
	return sb.String()
}

// CheckCoverage verifies every catalog stop appears exactly once.
func (r Route) CheckCoverage(catalog []Stop) error {
	counts := make(map[int]int, len(catalog))
	for _, p := range r.Paths {
		for _, s := range p.Stops {
			counts[s.ID]++
		}
	}

	for _, s := range catalog {
		switch n := counts[s.ID]; {
		case n == 0:
			return fmt.Errorf("check coverage: stop %d: %w", s.ID, ErrStopMissing)
		case n > 1:
			return fmt.Errorf("check coverage: stop %d seen %d times: %w", s.ID, n, ErrStopDuplicated)
		}
		delete(counts, s.ID)
	}

	if len(counts) > 0 {
		return fmt.Errorf("check coverage: %d stop(s) not in the catalog: %w", len(counts), ErrStopDuplicated)
	}

	return nil
}

// Represents a single stop in a delivery route.
// A RouteStop corresponds to arriving at a specific customer at a computed time.
type RouteStop struct {
	StopID   int
	Name     string
	Location Coordinates
	Demand   float64
	ArriveAt time.Time
}

// Represents the planned delivery route for a single truck.
// A RoutePlan is rendered from one Path of the fittest Route and describes the
// ordered sequence of delivery stops, along with aggregate distance and duration metrics.
// It is immutable planning data and contains no side effects.
type RoutePlan struct {
	TruckID              int
	DepartAt             time.Time
	Stops                []RouteStop
	Demand               float64
	TotalDurationSeconds float64
	TotalDistanceMeters  float64
}
