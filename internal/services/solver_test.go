package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"truck-routing-service/internal/adapters/distance"
	"truck-routing-service/internal/domain"
)

func euclid(a, b domain.Coordinates) float64 { return math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat) }

func TestSolveSingleTruckScenario(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 1
	cfg.Generations = 1
	cfg.Capacity = 100

	catalog := scenarioCatalog()
	res, err := Solve(context.Background(), cfg, catalog, distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Best.Paths) != 1 {
		t.Fatalf("paths = %d, want 1", len(res.Best.Paths))
	}
	p := res.Best.Paths[0]
	if p.Len() != 4 || p.Demand != 29 {
		t.Fatalf("path has %d stops and demand %v, want 4 and 29", p.Len(), p.Demand)
	}

	want := 0.0
	for i := 1; i < len(p.Stops); i++ {
		want += euclid(p.Stops[i-1].Location, p.Stops[i].Location)
	}
	if math.Abs(res.Best.Fitness-want) > 1e-9 {
		t.Fatalf("fitness = %v, want %v", res.Best.Fitness, want)
	}
	if res.State != Converged {
		t.Fatalf("state = %s, want converged", res.State)
	}
}

func TestSolveTightCapacityNeedsSeveralTrucks(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 20
	cfg.Generations = 15
	cfg.Capacity = 10
	cfg.MutationRate = 0.2

	catalog := scenarioCatalog()
	s, err := NewSolver(cfg, catalog, distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for gen := 0; gen <= cfg.Generations; gen++ {
		for _, r := range s.Population().Routes {
			if len(r.Paths) < 2 {
				t.Fatalf("generation %d route %s has %d paths, want >= 2", gen, r.Name, len(r.Paths))
			}
			checkRoute(t, r, catalog.Stops, cfg.Limits())
		}
		if gen < cfg.Generations {
			if err := s.Step(context.Background()); err != nil {
				t.Fatalf("step %d: %v", gen+1, err)
			}
		}
	}
}

func TestSolverInvariantsHoldEveryGeneration(t *testing.T) {
	ctx := context.Background()
	oracle := distance.NewMemoProvider(distance.NewEuclideanProvider(1), nil)

	raw := randomCatalog(42, 30)
	catalog, err := PrepareCatalog(ctx, raw.Depot, raw.Stops, oracle)
	if err != nil {
		t.Fatalf("prepare catalog: %v", err)
	}

	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 24
	cfg.Generations = 25
	cfg.Capacity = 60
	cfg.MaxDurationSeconds = 200
	cfg.MutationRate = 0.1
	cfg.Workers = 4
	cfg.IncludeDepotLegs = true

	s, err := NewSolver(cfg, catalog, oracle)
	if err != nil {
		t.Fatalf("new solver: %v", err)
	}
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for gen := 0; gen < cfg.Generations; gen++ {
		for _, r := range s.Population().Routes {
			checkRoute(t, r, catalog.Stops, cfg.Limits())
		}
		if err := s.Step(ctx); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
}

func TestSolverIsDeterministic(t *testing.T) {
	catalog := randomCatalog(7, 25)
	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 30
	cfg.Generations = 20
	cfg.Capacity = 70
	cfg.MutationRate = 0.05
	cfg.Seed = 99

	run := func(workers int) *Result {
		c := cfg
		c.Workers = workers
		res, err := Solve(context.Background(), c, catalog, distance.NewEuclideanProvider(1))
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		return res
	}

	a, b := run(1), run(8)
	if a.Best.Signature() != b.Best.Signature() || a.Best.Fitness != b.Best.Fitness {
		t.Fatalf("best differs: %s (%v) vs %s (%v)", a.Best.Signature(), a.Best.Fitness, b.Best.Signature(), b.Best.Fitness)
	}
	if len(a.Ranked) != len(b.Ranked) {
		t.Fatalf("ranked sizes differ: %d vs %d", len(a.Ranked), len(b.Ranked))
	}
	for i := range a.Ranked {
		if a.Ranked[i].Signature() != b.Ranked[i].Signature() {
			t.Fatalf("ranked[%d] differs", i)
		}
	}
}

func TestElitismNeverWorsensBest(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 20
	cfg.Generations = 40
	cfg.Capacity = 50
	cfg.MutationRate = 0.3
	cfg.EliteCount = 2

	res, err := Solve(context.Background(), cfg, randomCatalog(3, 20), distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if len(res.History) != cfg.Generations+1 {
		t.Fatalf("history = %d entries, want %d", len(res.History), cfg.Generations+1)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i].Best > res.History[i-1].Best {
			t.Fatalf("best worsened at generation %d: %v > %v", i, res.History[i].Best, res.History[i-1].Best)
		}
	}
	if res.Best.Fitness != res.History[len(res.History)-1].Best {
		t.Fatalf("best fitness %v does not match last history entry", res.Best.Fitness)
	}
}

func TestResultOrientationAgrees(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 15
	cfg.Generations = 5
	cfg.Capacity = 40

	res, err := Solve(context.Background(), cfg, randomCatalog(11, 15), distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if res.Ranked[0].Signature() != res.Best.Signature() {
		t.Fatalf("ranked[0] is not the best route")
	}
	for i := 1; i < len(res.Ranked); i++ {
		if res.Ranked[i].Fitness < res.Ranked[i-1].Fitness {
			t.Fatalf("ranked not sorted by ascending distance at %d", i)
		}
		if res.Ranked[i].Signature() == res.Ranked[i-1].Signature() {
			t.Fatalf("ranked contains duplicate signature at %d", i)
		}
	}
}

func TestSolveEmptyCatalog(t *testing.T) {
	catalog := domain.Catalog{Depot: domain.Stop{Location: pt(0, 0)}}

	res, err := Solve(context.Background(), DefaultSolverConfig(), catalog, distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Best.Paths) != 0 || res.Best.Fitness != 0 {
		t.Fatalf("best = %+v, want empty route", res.Best)
	}
	if res.State != Converged || res.Generations != 0 {
		t.Fatalf("state=%s generations=%d, want converged/0", res.State, res.Generations)
	}
}

func TestSolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultSolverConfig()
	cfg.PopulationSize = 5
	cfg.Generations = 50

	res, err := Solve(ctx, cfg, scenarioCatalog(), distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.StoppedEarly || res.Generations != 0 {
		t.Fatalf("stopped=%v generations=%d, want early stop at 0", res.StoppedEarly, res.Generations)
	}
	if res.State != Converged || res.Best.StopCount() != 4 {
		t.Fatalf("state=%s stops=%d", res.State, res.Best.StopCount())
	}
}

func TestNewSolverRejectsInvalidInput(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.Capacity = 7

	_, err := NewSolver(cfg, scenarioCatalog(), distance.NewEuclideanProvider(1))
	if !errors.Is(err, domain.ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}

	cfg = DefaultSolverConfig()
	cfg.EliteCount = cfg.PopulationSize + 1
	_, err = NewSolver(cfg, scenarioCatalog(), distance.NewEuclideanProvider(1))
	if !errors.Is(err, ErrInvalidSolverConfig) {
		t.Fatalf("err = %v, want ErrInvalidSolverConfig", err)
	}
}

func TestSolverStateMachine(t *testing.T) {
	s, err := NewSolver(DefaultSolverConfig(), scenarioCatalog(), distance.NewEuclideanProvider(1))
	if err != nil {
		t.Fatalf("new solver: %v", err)
	}
	ctx := context.Background()

	if s.State() != Uninitialized {
		t.Fatalf("state = %s, want uninitialized", s.State())
	}
	if err := s.Step(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("step before initialize: err = %v, want ErrInvalidState", err)
	}

	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if s.State() != Initialized {
		t.Fatalf("state = %s, want initialized", s.State())
	}
	if err := s.Initialize(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second initialize: err = %v, want ErrInvalidState", err)
	}

	if err := s.Step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.State() != Evolving || s.Generation() != 1 {
		t.Fatalf("state=%s generation=%d, want evolving/1", s.State(), s.Generation())
	}

	if _, err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.State() != Converged {
		t.Fatalf("state = %s, want converged", s.State())
	}
	if err := s.Step(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("step after converge: err = %v, want ErrInvalidState", err)
	}
}

func TestSolverSeedingStrategies(t *testing.T) {
	for _, seeding := range []string{SeedingShuffle, SeedingDepotDistance, SeedingNearestNeighbor} {
		t.Run(seeding, func(t *testing.T) {
			cfg := DefaultSolverConfig()
			cfg.PopulationSize = 6
			cfg.Generations = 3
			cfg.Capacity = 15
			cfg.Seeding = seeding

			catalog := scenarioCatalog()
			res, err := Solve(context.Background(), cfg, catalog, distance.NewEuclideanProvider(1))
			if err != nil {
				t.Fatalf("solve: %v", err)
			}
			checkRoute(t, res.Best, catalog.Stops, cfg.Limits())
		})
	}
}
