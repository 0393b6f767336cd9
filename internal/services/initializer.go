package services

import (
	"context"
	"fmt"
	"slices"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

// PackGreedy walks stops in order and appends each one to the current path
// while demand and duration stay within limits; otherwise the current path
// is closed and a new one starts with that stop. Stops are assumed to be
// individually servable (see Catalog.Validate).
func PackGreedy(stops []domain.Stop, limits domain.Limits) []domain.Path {
	paths := make([]domain.Path, 0)
	var cur domain.Path

	for _, s := range stops {
		if err := cur.Load(s, limits); err != nil {
			if cur.Len() > 0 {
				paths = append(paths, cur)
			}
			cur = domain.NewPath([]domain.Stop{s})
		}
	}

	if cur.Len() > 0 {
		paths = append(paths, cur)
	}
	return paths
}

// Initialize builds the generation-0 routes. Every slot greedily packs its
// own shuffle of the catalog; slot 0 uses the configured seeding order
// instead when it is not a shuffle. An empty catalog yields routes with no paths.
func Initialize(
	ctx context.Context,
	catalog domain.Catalog,
	cfg SolverConfig,
	provider ports.DistanceProvider,
) ([]domain.Route, error) {
	limits := cfg.Limits()
	routes := make([]domain.Route, cfg.PopulationSize)

	for slot := range routes {
		order, err := seedOrder(ctx, catalog, cfg, provider, slot)
		if err != nil {
			return nil, fmt.Errorf("initialize slot %d: %w", slot, err)
		}

		routes[slot] = domain.Route{
			Name:  routeName(0, slot),
			Paths: PackGreedy(order, limits),
		}
	}

	return routes, nil
}

func seedOrder(
	ctx context.Context,
	catalog domain.Catalog,
	cfg SolverConfig,
	provider ports.DistanceProvider,
	slot int,
) ([]domain.Stop, error) {
	if slot == 0 {
		switch cfg.Seeding {
		case SeedingDepotDistance:
			return DepotDistanceOrder(catalog.Stops), nil
		case SeedingNearestNeighbor:
			return NearestNeighborOrder(ctx, catalog.Depot.Location, catalog.Stops, provider)
		}
	}

	order := slices.Clone(catalog.Stops)
	rng := slotRand(cfg.Seed, 0, slot)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order, nil
}

func routeName(generation, slot int) string {
	return fmt.Sprintf("g%d-%d", generation, slot)
}
