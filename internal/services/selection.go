package services

import (
	"fmt"
	"math/rand/v2"
)

// selectFunc picks a parent index from the population.
type selectFunc func(rng *rand.Rand, pop *Population) int

func selector(cfg SolverConfig) (selectFunc, error) {
	switch cfg.Selection {
	case SelectionTournament:
		return tournament(cfg.TournamentSize), nil
	case SelectionThreshold:
		return threshold(cfg.TournamentSize), nil
	}
	return nil, fmt.Errorf("%w: unknown selection %q", ErrInvalidSolverConfig, cfg.Selection)
}

// tournament draws k routes uniformly with replacement and returns the one
// with the lowest distance. Routes without a finite fitness never win; if
// the whole sample is non-finite a uniform random route is returned.
func tournament(k int) selectFunc {
	return func(rng *rand.Rand, pop *Population) int {
		n := pop.Len()
		best := -1
		for range k {
			i := rng.IntN(n)
			if !finite(pop.Routes[i].Fitness) {
				continue
			}
			if best < 0 || pop.Routes[i].Fitness < pop.Routes[best].Fitness {
				best = i
			}
		}

		if best < 0 {
			return rng.IntN(n)
		}
		return best
	}
}

// threshold draws one bar r in [0, 1) and k routes uniformly; a route is a
// candidate when its share of the population weight 1/(1+distance) exceeds
// r. The candidate with the lowest distance wins. When no candidate clears
// the bar a uniform random route is returned.
func threshold(k int) selectFunc {
	return func(rng *rand.Rand, pop *Population) int {
		n := pop.Len()
		bar := rng.Float64()
		best := -1

		for range k {
			i := rng.IntN(n)
			f := pop.Routes[i].Fitness
			if !finite(f) || pop.totalWeight <= 0 {
				continue
			}
			if bar >= weight(f)/pop.totalWeight {
				continue
			}
			if best < 0 || f < pop.Routes[best].Fitness {
				best = i
			}
		}

		if best < 0 {
			return rng.IntN(n)
		}
		return best
	}
}
