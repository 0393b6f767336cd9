package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidCatalog = errors.New("invalid stop catalog")

// Represents a single customer location to be served by a truck.
// Depot leg values are the travel distance and duration from the depot;
// they are filled once per planning request and drive the aggregate
// duration of a Path.
type Stop struct {
	ID                   int
	Name                 string
	Address              string
	Location             Coordinates
	Demand               float64
	DepotDistanceMeters  float64
	DepotDurationSeconds float64
}

// Catalog is the immutable input of one planning request: the depot and
// the customer stops, in catalog order. The depot is never part of Stops.
type Catalog struct {
	Depot Stop
	Stops []Stop
}

// Validate checks the catalog against the vehicle limits. A stop whose
// demand alone exceeds the capacity can never be placed on any path.
func (c Catalog) Validate(limits Limits) error {
	seen := make(map[int]struct{}, len(c.Stops))
	for i, s := range c.Stops {
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: duplicate stop id %d at index %d", ErrInvalidCatalog, s.ID, i)
		}
		seen[s.ID] = struct{}{}

		if s.Demand < 0 {
			return fmt.Errorf("%w: stop %d has negative demand %v", ErrInvalidCatalog, s.ID, s.Demand)
		}
		if s.Demand > limits.Capacity {
			return fmt.Errorf("%w: stop %d demand %v exceeds capacity %v", ErrInvalidCatalog, s.ID, s.Demand, limits.Capacity)
		}
		if limits.MaxDurationSeconds > 0 && s.DepotDurationSeconds > limits.MaxDurationSeconds {
			return fmt.Errorf(
				"%w: stop %d depot duration %v exceeds max duration %v",
				ErrInvalidCatalog, s.ID, s.DepotDurationSeconds, limits.MaxDurationSeconds,
			)
		}
	}

	return nil
}

// TotalDemand sums the demand of every stop in the catalog.
func (c Catalog) TotalDemand() float64 {
	total := 0.0
	for _, s := range c.Stops {
		total += s.Demand
	}
	return total
}
