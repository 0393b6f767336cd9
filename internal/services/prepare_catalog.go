package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

// warmer is implemented by oracles that can precompute every pairwise
// distance of a request up front.
type warmer interface {
	Warm(ctx context.Context, points []domain.Coordinates) error
}

// PrepareCatalog builds the immutable catalog of one planning request.
//
// Stops without a depot leg get one from the provider, through a single
// matrix call when supported. When the provider can warm its memo, every
// pairwise distance is resolved once here so that fitness evaluation
// never waits on the network; warm-up failures only log, since evaluation
// applies its own retry and penalty policy.
func PrepareCatalog(
	ctx context.Context,
	depot domain.Stop,
	stops []domain.Stop,
	provider ports.DistanceProvider,
) (_ domain.Catalog, err error) {
	defer obs.Time(ctx, "services.PrepareCatalog")(&err)

	out := make([]domain.Stop, len(stops))
	copy(out, stops)

	missing := make([]int, 0)
	for i, s := range out {
		if s.DepotDistanceMeters == 0 && s.DepotDurationSeconds == 0 && s.Location != depot.Location {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		legs, err := depotLegs(ctx, depot.Location, out, missing, provider)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("prepare catalog: %w", err)
		}
		for _, i := range missing {
			leg := legs[out[i].Location.Key()]
			out[i].DepotDistanceMeters = leg.DistanceMeters
			out[i].DepotDurationSeconds = leg.DurationSeconds
		}
	}

	if w, ok := provider.(warmer); ok && len(out) > 0 {
		points := make([]domain.Coordinates, 0, len(out)+1)
		points = append(points, depot.Location)
		for _, s := range out {
			points = append(points, s.Location)
		}
		if err := w.Warm(ctx, points); err != nil {
			log.Printf("req_id=%s distance warm-up incomplete: %v", obs.RequestID(ctx), err)
		}
	}

	return domain.Catalog{Depot: depot, Stops: out}, nil
}

func depotLegs(
	ctx context.Context,
	depot domain.Coordinates,
	stops []domain.Stop,
	missing []int,
	provider ports.DistanceProvider,
) (map[string]ports.DistanceResult, error) {
	legs := make(map[string]ports.DistanceResult, len(missing))

	// Prefer a single depot->many lookup when supported to reduce external API calls.
	if mp, ok := provider.(ports.DistanceMatrixProvider); ok {
		targets := make([]domain.Coordinates, 0, len(missing))
		for _, i := range missing {
			targets = append(targets, stops[i].Location)
		}

		results, err := mp.GetDistances(ctx, depot, targets)
		if err != nil {
			return nil, fmt.Errorf("get depot legs matrix: %w", err)
		}
		for _, t := range targets {
			r, ok := results[t.Key()]
			if !ok {
				return nil, &ports.DistanceUnavailableError{Origin: depot, Destination: t, Err: errors.New("missing from matrix row")}
			}
			legs[t.Key()] = r
		}
		return legs, nil
	}

	for _, i := range missing {
		loc := stops[i].Location
		r, err := provider.GetDistance(ctx, depot, loc)
		if err != nil {
			return nil, fmt.Errorf("get depot leg for stop %d: %w", stops[i].ID, err)
		}
		legs[loc.Key()] = r
	}
	return legs, nil
}
