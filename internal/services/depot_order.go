package services

import (
	"cmp"
	"slices"

	"truck-routing-service/internal/domain"
)

// DepotDistanceOrder sorts stops by their depot leg distance, nearest
// first, so greedy packing fills each path with a contiguous distance band.
// Ties break on stop id.
func DepotDistanceOrder(stops []domain.Stop) []domain.Stop {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b domain.Stop) int {
		if c := cmp.Compare(a.DepotDistanceMeters, b.DepotDistanceMeters); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
