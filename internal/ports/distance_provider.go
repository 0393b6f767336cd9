package ports

import (
	"context"
	"errors"
	"fmt"

	"truck-routing-service/internal/domain"
)

// ErrDistanceUnavailable marks a leg whose distance could not be resolved.
var ErrDistanceUnavailable = errors.New("distance unavailable")

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// DistanceUnavailableError is the typed failure variant of a lookup.
// It unwraps to both ErrDistanceUnavailable and the underlying cause.
type DistanceUnavailableError struct {
	Origin      domain.Coordinates
	Destination domain.Coordinates
	Err         error
}

func (e *DistanceUnavailableError) Error() string {
	return fmt.Sprintf("distance unavailable %s -> %s: %v", e.Origin.Key(), e.Destination.Key(), e.Err)
}

func (e *DistanceUnavailableError) Unwrap() []error {
	return []error{ErrDistanceUnavailable, e.Err}
}

// Contract for retrieving travel distance and duration between locations.
type DistanceProvider interface {
	// Return travel distance and estimated duration between two locations.
	GetDistance(ctx context.Context, origin, destination domain.Coordinates) (DistanceResult, error)
}
