package services

import (
	"cmp"
	"math"
	"slices"

	"truck-routing-service/internal/domain"
)

// Population is one generation of routes. It is never modified after
// construction; each generation builds a new one.
type Population struct {
	Routes []domain.Route

	totalFitness float64
	// Sum of 1/(1+fitness), used by threshold selection.
	totalWeight float64
}

func NewPopulation(routes []domain.Route) *Population {
	p := &Population{Routes: routes}
	for _, r := range routes {
		if !finite(r.Fitness) {
			continue
		}
		p.totalFitness += r.Fitness
		p.totalWeight += weight(r.Fitness)
	}
	return p
}

func (p *Population) Len() int { return len(p.Routes) }

// TotalFitness is the summed distance of every finite-fitness route.
func (p *Population) TotalFitness() float64 { return p.totalFitness }

func (p *Population) MeanFitness() float64 {
	if len(p.Routes) == 0 {
		return 0
	}
	return p.totalFitness / float64(len(p.Routes))
}

// Fittest returns the route with the lowest distance; the earliest wins ties.
func (p *Population) Fittest() (domain.Route, bool) {
	idx := p.bestIndices(1)
	if len(idx) == 0 {
		return domain.Route{}, false
	}
	return p.Routes[idx[0]], true
}

// bestIndices returns the indices of the n fittest routes, best first.
func (p *Population) bestIndices(n int) []int {
	idx := make([]int, len(p.Routes))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return compareFitness(p.Routes[a].Fitness, p.Routes[b].Fitness)
	})
	return idx[:min(n, len(idx))]
}

// Distinct returns the routes ranked by fitness with repeated visiting
// orders removed.
func (p *Population) Distinct() []domain.Route {
	seen := make(map[string]struct{}, len(p.Routes))
	out := make([]domain.Route, 0, len(p.Routes))

	for _, i := range p.bestIndices(len(p.Routes)) {
		sig := p.Routes[i].Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, p.Routes[i])
	}
	return out
}

// compareFitness orders lower distances first and non-finite values last.
func compareFitness(a, b float64) int {
	fa, fb := finite(a), finite(b)
	switch {
	case fa && !fb:
		return -1
	case !fa && fb:
		return 1
	case !fa && !fb:
		return 0
	}
	return cmp.Compare(a, b)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func weight(fitness float64) float64 { return 1 / (1 + fitness) }
