package distance

import (
	"context"
	"math"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

// EuclideanProvider computes straight-line distances in coordinate mode.
// Duration is distance divided by UnitsPerSecond (1 when unset), so a
// catalog in plain grid units reports durations in the same units.
type EuclideanProvider struct {
	UnitsPerSecond float64
}

func NewEuclideanProvider(unitsPerSecond float64) *EuclideanProvider {
	return &EuclideanProvider{UnitsPerSecond: unitsPerSecond}
}

func (e *EuclideanProvider) GetDistance(_ context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	d := math.Hypot(destination.Lon-origin.Lon, destination.Lat-origin.Lat)

	speed := e.UnitsPerSecond
	if speed <= 0 {
		speed = 1
	}

	return ports.DistanceResult{DistanceMeters: d, DurationSeconds: d / speed}, nil
}

func (e *EuclideanProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		r, _ := e.GetDistance(ctx, origin, d)
		out[d.Key()] = r
	}
	return out, nil
}
