package distance

import (
	"context"
	"errors"
	"fmt"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

// ORSDistanceProvider implements DistanceMatrixProvider using the
// OpenRouteService matrix endpoint.
//
// It performs no caching of its own; wrap it in a MemoProvider backed by
// a persistent DistanceCache to avoid repeated matrix calls.
//
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	*orsClient
	profile string
}

func NewORSDistanceProvider(apiKey string, opts ...ORSOption) (*ORSDistanceProvider, error) {
	client, err := newORSClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}

	return &ORSDistanceProvider{orsClient: client, profile: "driving-car"}, nil
}

// Delegate to batched path to reuse matrix logic.
func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	results, err := o.GetDistances(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, &ports.DistanceUnavailableError{Origin: origin, Destination: destination, Err: err}
	}

	result, ok := results[destination.Key()]
	if !ok {
		return ports.DistanceResult{}, &ports.DistanceUnavailableError{
			Origin: origin, Destination: destination, Err: errors.New("no distance result"),
		}
	}

	return result, nil
}

// Compute distances from a single origin to many destinations.
// Unroutable destinations are absent from the result.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	if len(destinations) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	out := make(map[string]ports.DistanceResult, len(destinations))
	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Coordinates, 0, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if d == origin {
			out[k] = ports.DistanceResult{}
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	// Fetch a single origin->many matrix row.
	fetched, err := o.fetchMatrixRow(ctx, origin, destList)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}
