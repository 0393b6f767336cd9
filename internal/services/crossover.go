package services

import (
	"math/rand/v2"

	"truck-routing-service/internal/domain"
)

// Crossover breeds one child from two parents, row by row.
//
// A crossover row r and column c are drawn. Rows before r come from male,
// rows after r from female (or male when female has no such row). Row r
// merges both: male stops at positions < c and female stops from c on,
// each side falling back to the other when it is too short.
//
// Every stop is placed at most once: a stop already placed is skipped and
// a stop that would break the limits is left out of its row. Stops left
// out that way, or never met at all, are then inserted in catalog order
// into the path with the fewest stops that fits them, else into a new
// path. The child therefore covers catalog exactly once.
func Crossover(
	rng *rand.Rand,
	male, female domain.Route,
	catalog []domain.Stop,
	limits domain.Limits,
) domain.Route {
	var paths []domain.Path
	placed := make(map[int]struct{}, len(catalog))

	emit := func(stops []domain.Stop) {
		var p domain.Path
		for _, s := range stops {
			if _, ok := placed[s.ID]; ok {
				continue
			}
			if p.Load(s, limits) != nil {
				continue
			}
			placed[s.ID] = struct{}{}
		}
		if p.Len() > 0 {
			paths = append(paths, p)
		}
	}

	m, f := male.Paths, female.Paths
	if len(m) > 0 && len(f) > 0 {
		r := rng.IntN(min(len(m), len(f)))
		mRow, fRow := m[r].Stops, f[r].Stops

		c := 0
		if n := min(len(mRow), len(fRow)); n > 0 {
			c = rng.IntN(n)
		}

		for i := range max(len(m), len(f)) {
			switch {
			case i < r:
				emit(m[i].Stops)
			case i == r:
				emit(mergeRow(mRow, fRow, c))
			case i < len(f):
				emit(f[i].Stops)
			default:
				emit(m[i].Stops)
			}
		}
	} else {
		for _, p := range m {
			emit(p.Stops)
		}
		for _, p := range f {
			emit(p.Stops)
		}
	}

	for _, s := range catalog {
		if _, ok := placed[s.ID]; ok {
			continue
		}
		paths = insertShortest(paths, s, limits)
		placed[s.ID] = struct{}{}
	}

	return domain.Route{Paths: paths}
}

// mergeRow takes male stops before column c and female stops from c on.
func mergeRow(mRow, fRow []domain.Stop, c int) []domain.Stop {
	n := max(len(mRow), len(fRow))
	out := make([]domain.Stop, 0, n)

	for j := range n {
		primary, fallback := fRow, mRow
		if j < c {
			primary, fallback = mRow, fRow
		}

		switch {
		case j < len(primary):
			out = append(out, primary[j])
		case j < len(fallback):
			out = append(out, fallback[j])
		}
	}
	return out
}

// insertShortest appends s to the path with the fewest stops that still
// fits it; ties go to the earliest path. Without a fitting path s opens a
// new one.
func insertShortest(paths []domain.Path, s domain.Stop, limits domain.Limits) []domain.Path {
	best := -1
	for i, p := range paths {
		if !p.Fits(s, limits) {
			continue
		}
		if best < 0 || p.Len() < paths[best].Len() {
			best = i
		}
	}

	if best < 0 {
		return append(paths, domain.NewPath([]domain.Stop{s}))
	}

	_ = paths[best].Load(s, limits)
	return paths
}
