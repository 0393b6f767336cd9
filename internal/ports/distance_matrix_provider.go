package ports

import (
	"context"

	"truck-routing-service/internal/domain"
)

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return distances from one origin to many destinations, keyed by
	// domain.Coordinates.Key of each destination.
	GetDistances(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) (map[string]DistanceResult, error)
}
