package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/metrics"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

// State of the evolution driver.
type State int

const (
	Uninitialized State = iota
	Initialized
	Evolving
	Converged
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Evolving:
		return "evolving"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrInvalidState = errors.New("invalid solver state")

type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
}

// Result is the outcome of a run. Ranked holds the distinct routes of the
// final population, best first; Best equals Ranked[0].
type Result struct {
	Best        domain.Route
	Ranked      []domain.Route
	Generations int
	State       State
	// StoppedEarly is set when the context ended before the generation cap.
	StoppedEarly bool
	History      []GenerationStats
}

// Solver drives one genetic run over a single catalog:
// Uninitialized -> Initialized -> Evolving -> Converged.
//
// A Solver is not safe for concurrent use; breeding within a generation
// runs in parallel internally.
type Solver struct {
	cfg      SolverConfig
	catalog  domain.Catalog
	provider ports.DistanceProvider
	eval     *Evaluator
	pick     selectFunc

	state      State
	generation int
	pop        *Population
	history    []GenerationStats
	stopped    bool
}

func NewSolver(cfg SolverConfig, catalog domain.Catalog, provider ports.DistanceProvider) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := catalog.Validate(cfg.Limits()); err != nil {
		return nil, fmt.Errorf("new solver: %w", err)
	}
	if provider == nil {
		return nil, errors.New("new solver: distance provider must be non-nil")
	}

	pick, err := selector(cfg)
	if err != nil {
		return nil, err
	}

	return &Solver{
		cfg:      cfg,
		catalog:  catalog,
		provider: provider,
		eval:     NewEvaluator(provider, catalog.Depot.Location, cfg),
		pick:     pick,
	}, nil
}

func (s *Solver) State() State { return s.state }

func (s *Solver) Generation() int { return s.generation }

// Population returns the current generation, nil before Initialize.
func (s *Solver) Population() *Population { return s.pop }

// Initialize builds and evaluates generation 0.
func (s *Solver) Initialize(ctx context.Context) (err error) {
	defer obs.Time(ctx, "solver.Initialize")(&err)

	if s.state != Uninitialized {
		return fmt.Errorf("initialize: %w: %s", ErrInvalidState, s.state)
	}

	routes, err := Initialize(ctx, s.catalog, s.cfg, s.provider)
	if err != nil {
		return err
	}

	for i := range routes {
		routes[i], err = s.eval.Evaluate(ctx, routes[i])
		if err != nil {
			return fmt.Errorf("initialize: evaluate slot %d: %w", i, err)
		}
	}

	s.pop = NewPopulation(routes)
	s.state = Initialized
	s.record()
	return nil
}

// Step breeds the next generation and replaces the population with it.
// The elite routes are copied first; every other slot gets a freshly bred
// child. On error the current population is kept.
func (s *Solver) Step(ctx context.Context) error {
	if s.state != Initialized && s.state != Evolving {
		return fmt.Errorf("step: %w: %s", ErrInvalidState, s.state)
	}

	gen := s.generation + 1
	n := s.pop.Len()
	next := make([]domain.Route, n)

	elites := s.pop.bestIndices(s.cfg.EliteCount)
	for i, idx := range elites {
		next[i] = s.pop.Routes[idx].Clone()
	}

	limits := s.cfg.Limits()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.workers())

	for slot := len(elites); slot < n; slot++ {
		g.Go(func() error {
			rng := slotRand(s.cfg.Seed, gen, slot)
			male := s.pop.Routes[s.pick(rng, s.pop)]
			female := s.pop.Routes[s.pick(rng, s.pop)]

			child := Crossover(rng, male, female, s.catalog.Stops, limits)
			child = Mutate(rng, child, s.cfg.MutationRate)
			if err := child.CheckCoverage(s.catalog.Stops); err != nil {
				return fmt.Errorf("breed slot %d: %w", slot, err)
			}

			child, err := s.eval.Evaluate(gctx, child)
			if err != nil {
				return fmt.Errorf("breed slot %d: %w", slot, err)
			}
			child.Name = routeName(gen, slot)
			next[slot] = child
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("step generation %d: %w", gen, err)
	}

	s.pop = NewPopulation(next)
	s.generation = gen
	s.state = Evolving
	metrics.Generations.Inc()
	s.record()
	return nil
}

// Run initializes when needed, evolves up to the configured number of
// generations and converges. The context is checked between generations;
// when it ends the run converges early on the last complete generation.
func (s *Solver) Run(ctx context.Context) (_ *Result, err error) {
	defer obs.Time(ctx, "solver.Run")(&err)

	if s.state == Uninitialized {
		if err := s.Initialize(ctx); err != nil {
			metrics.PlanningRuns.WithLabelValues("failed").Inc()
			return nil, err
		}
	}
	if s.state == Converged {
		return s.result(), nil
	}

	// Nothing to route: terminal success without evolving.
	if len(s.catalog.Stops) == 0 {
		return s.converge(), nil
	}

	for s.generation < s.cfg.Generations {
		if ctx.Err() != nil {
			s.stopped = true
			break
		}

		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				s.stopped = true
				break
			}
			metrics.PlanningRuns.WithLabelValues("failed").Inc()
			return nil, err
		}

		if s.cfg.LogEvery > 0 && s.generation%s.cfg.LogEvery == 0 {
			last := s.history[len(s.history)-1]
			log.Printf("req_id=%s generation=%d best=%.3f mean=%.3f",
				obs.RequestID(ctx), last.Generation, last.Best, last.Mean)
		}
	}

	if s.stopped {
		log.Printf("req_id=%s solver stopped early generation=%d/%d: %v",
			obs.RequestID(ctx), s.generation, s.cfg.Generations, context.Cause(ctx))
	}

	return s.converge(), nil
}

func (s *Solver) converge() *Result {
	s.state = Converged
	res := s.result()

	outcome := "converged"
	if s.stopped {
		outcome = "stopped"
	}
	metrics.PlanningRuns.WithLabelValues(outcome).Inc()
	metrics.BestFitness.Set(res.Best.Fitness)

	log.Printf("solver converged generations=%d best=%.3f paths=%d demand=%.1f penalized=%d distinct=%d",
		res.Generations, res.Best.Fitness, len(res.Best.Paths), s.catalog.TotalDemand(), res.Best.PenalizedEdges, len(res.Ranked))
	return res
}

func (s *Solver) result() *Result {
	ranked := s.pop.Distinct()
	best, _ := s.pop.Fittest()

	return &Result{
		Best:         best,
		Ranked:       ranked,
		Generations:  s.generation,
		State:        s.state,
		StoppedEarly: s.stopped,
		History:      append([]GenerationStats(nil), s.history...),
	}
}

func (s *Solver) record() {
	best := math.Inf(1)
	if r, ok := s.pop.Fittest(); ok {
		best = r.Fitness
	}
	s.history = append(s.history, GenerationStats{
		Generation: s.generation,
		Best:       best,
		Mean:       s.pop.MeanFitness(),
	})
}

// Solve is a convenience wrapper that runs a fresh solver to convergence.
func Solve(ctx context.Context, cfg SolverConfig, catalog domain.Catalog, provider ports.DistanceProvider) (*Result, error) {
	s, err := NewSolver(cfg, catalog, provider)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
