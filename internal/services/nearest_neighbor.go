package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

// NearestNeighborOrder orders stops with a greedy nearest-neighbor walk
// starting at the depot.
//
// Each step picks the unvisited stop with the shortest travel duration from
// the current position. It does not attempt global optimization; it gives
// the genetic solver one reasonable individual to start from.
func NearestNeighborOrder(
	ctx context.Context,
	depot domain.Coordinates,
	stops []domain.Stop,
	provider ports.DistanceProvider,
) ([]domain.Stop, error) {
	if provider == nil {
		return nil, errors.New("nearest neighbor: provider must be non-nil")
	}

	remaining := make([]domain.Stop, len(stops))
	copy(remaining, stops)

	ordered := make([]domain.Stop, 0, len(stops))
	current := depot

	for len(remaining) > 0 {
		var (
			results map[string]ports.DistanceResult
			err     error
		)

		// Prefer batched distance lookups when supported to reduce external API calls.
		if mp, ok := provider.(ports.DistanceMatrixProvider); ok {
			targets := make([]domain.Coordinates, 0, len(remaining))
			for _, s := range remaining {
				targets = append(targets, s.Location)
			}
			results, err = mp.GetDistances(ctx, current, targets)
			if err != nil {
				return nil, fmt.Errorf("nearest neighbor: get distances matrix from %s: %w", current, err)
			}
		} else {
			results = make(map[string]ports.DistanceResult, len(remaining))
			for _, s := range remaining {
				r, e := provider.GetDistance(ctx, current, s.Location)
				if e != nil {
					if ctx.Err() != nil {
						return nil, fmt.Errorf("nearest neighbor: %w", ctx.Err())
					}
					continue
				}
				results[s.Location.Key()] = r
			}
		}

		best := -1
		minDuration := math.Inf(1)

		// Select next stop by minimum travel duration (greedy step).
		for i, s := range remaining {
			r, ok := results[s.Location.Key()]
			if !ok {
				// Unroutable from here.
				continue
			}
			// Tie-breaker on stop id keeps the order deterministic.
			if best < 0 || r.DurationSeconds < minDuration || (r.DurationSeconds == minDuration && s.ID < remaining[best].ID) {
				minDuration = r.DurationSeconds
				best = i
			}
		}

		// Nothing reachable: continue with the next stop in input order.
		if best < 0 {
			best = 0
		}

		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		current = next.Location
	}

	return ordered, nil
}
