package services

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

func pt(x, y float64) domain.Coordinates { return domain.Coordinates{Lon: x, Lat: y} }

// scenarioCatalog is the four-stop example around a depot at the origin.
func scenarioCatalog() domain.Catalog {
	return domain.Catalog{
		Depot: domain.Stop{ID: 0, Name: "depot", Location: pt(0, 0)},
		Stops: []domain.Stop{
			{ID: 1, Location: pt(1, 2), Demand: 10},
			{ID: 2, Location: pt(3, 1), Demand: 5},
			{ID: 3, Location: pt(2, 3), Demand: 8},
			{ID: 4, Location: pt(4, 4), Demand: 6},
		},
	}
}

// randomCatalog places n stops on a 100x100 grid with demands 1..20.
func randomCatalog(seed uint64, n int) domain.Catalog {
	rng := rand.New(rand.NewPCG(seed, 7))
	c := domain.Catalog{Depot: domain.Stop{ID: 0, Location: pt(50, 50)}}
	for i := 1; i <= n; i++ {
		c.Stops = append(c.Stops, domain.Stop{
			ID:       i,
			Location: pt(float64(rng.IntN(100)), float64(rng.IntN(100))),
			Demand:   float64(1 + rng.IntN(20)),
		})
	}
	return c
}

func checkRoute(t *testing.T, r domain.Route, catalog []domain.Stop, limits domain.Limits) {
	t.Helper()

	if err := r.CheckCoverage(catalog); err != nil {
		t.Fatalf("route %s: %v", r.Name, err)
	}

	for i, p := range r.Paths {
		if p.Len() == 0 {
			t.Fatalf("route %s path %d is empty", r.Name, i)
		}
		if !p.Within(limits) {
			t.Fatalf("route %s path %d breaks limits: demand=%v duration=%v", r.Name, i, p.Demand, p.DurationSeconds)
		}

		want := domain.NewPath(p.Stops)
		// Sums built in a different stop order may differ in the last bits.
		if !approxEqual(p.Demand, want.Demand) || !approxEqual(p.DurationSeconds, want.DurationSeconds) {
			t.Fatalf("route %s path %d aggregates = %v/%v, want %v/%v",
				r.Name, i, p.Demand, p.DurationSeconds, want.Demand, want.DurationSeconds)
		}
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestCheckRouteToleratesReorderedSums(t *testing.T) {
	stops := []domain.Stop{
		{ID: 1, Demand: 0.1, DepotDurationSeconds: 0.1},
		{ID: 2, Demand: 0.2, DepotDurationSeconds: 0.2},
		{ID: 3, Demand: 0.3, DepotDurationSeconds: 0.3},
	}
	// 0.3+0.2+0.1 is 0.6 while 0.1+0.2+0.3 is 0.6000000000000001.
	p := domain.Path{Stops: stops, Demand: 0.3 + 0.2 + 0.1, DurationSeconds: 0.3 + 0.2 + 0.1}
	if want := domain.NewPath(stops); p.Demand == want.Demand {
		t.Fatalf("sums agree exactly (%v), the case does not exercise rounding", p.Demand)
	}

	r := domain.Route{Name: "r", Paths: []domain.Path{p}}
	checkRoute(t, r, stops, domain.Limits{Capacity: 1, MaxDurationSeconds: 1e6})
}

// memRepo is an in-memory StopRepository.
type memRepo struct {
	mu      sync.Mutex
	stops   []domain.Stop
	updates map[int]domain.Coordinates
}

func (r *memRepo) ListStops(context.Context) ([]domain.Stop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Stop(nil), r.stops...), nil
}

func (r *memRepo) UpdateLocation(_ context.Context, id int, loc domain.Coordinates, leg ports.DistanceResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = map[int]domain.Coordinates{}
	}
	r.updates[id] = loc
	for i := range r.stops {
		if r.stops[i].ID == id {
			r.stops[i].Location = loc
			r.stops[i].DepotDistanceMeters = leg.DistanceMeters
			r.stops[i].DepotDurationSeconds = leg.DurationSeconds
		}
	}
	return nil
}
