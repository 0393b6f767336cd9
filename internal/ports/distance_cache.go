package ports

import "context"

// Persistent origin->destination cache. Keys are domain.Coordinates.Key values.
type DistanceCache interface {
	// Return the cached subset of destinations; misses are simply absent.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
