package services

import (
	"math/rand/v2"

	"truck-routing-service/internal/domain"
)

// Mutate swaps two random positions of each path with probability rate.
// Stops never move between paths, so aggregates are left as they are.
// The input route is not modified.
func Mutate(rng *rand.Rand, route domain.Route, rate float64) domain.Route {
	out := route.Clone()

	for i := range out.Paths {
		if rng.Float64() >= rate {
			continue
		}

		n := out.Paths[i].Len()
		if n < 2 {
			continue
		}
		out.Paths[i].Swap(rng.IntN(n), rng.IntN(n))
	}

	return out
}
