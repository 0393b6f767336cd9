package ports

import (
	"context"

	"truck-routing-service/internal/domain"
)

// Port: a boundary for retrieving and updating customer stops.
type StopRepository interface {
	// Retrieve all stops available for routing, ordered by id.
	ListStops(ctx context.Context) ([]domain.Stop, error)
	// Persist resolved coordinates and the depot leg of one stop.
	UpdateLocation(ctx context.Context, stopID int, location domain.Coordinates, depotLeg DistanceResult) error
}
