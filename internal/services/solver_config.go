package services

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"truck-routing-service/internal/domain"
)

// Selection strategies.
const (
	SelectionTournament = "tournament"
	SelectionThreshold  = "threshold"
)

// Seeding orders for the first individual of the initial population.
const (
	SeedingShuffle         = "shuffle"
	SeedingDepotDistance   = "depot-distance"
	SeedingNearestNeighbor = "nearest-neighbor"
)

var ErrInvalidSolverConfig = errors.New("invalid solver config")

// SolverConfig holds every tunable of the genetic solver. Fitness is total
// travelled distance and lower is better throughout.
type SolverConfig struct {
	PopulationSize     int     `yaml:"population_size"`
	Generations        int     `yaml:"generations"`
	MutationRate       float64 `yaml:"mutation_rate"`
	TournamentSize     int     `yaml:"tournament_size"`
	Capacity           float64 `yaml:"capacity"`
	MaxDurationSeconds float64 `yaml:"max_duration_seconds"`

	// Best routes copied unchanged into the next generation.
	EliteCount int    `yaml:"elite_count"`
	Seed       uint64 `yaml:"seed"`
	// Parallel breeding workers; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Distance charged for a leg the oracle could not resolve after one retry.
	PenaltyDistance float64 `yaml:"penalty_distance"`

	Selection string `yaml:"selection"`
	Seeding   string `yaml:"seeding"`

	IncludeDepotLegs bool `yaml:"include_depot_legs"`
	ReturnToDepot    bool `yaml:"return_to_depot"`

	// Log progress every LogEvery generations; 0 logs only start and end.
	LogEvery int `yaml:"log_every"`
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		PopulationSize:     50,
		Generations:        100,
		MutationRate:       0.01,
		TournamentSize:     5,
		Capacity:           100,
		MaxDurationSeconds: 8 * 60,
		EliteCount:         1,
		Seed:               1,
		PenaltyDistance:    1e7,
		Selection:          SelectionTournament,
		Seeding:            SeedingShuffle,
		LogEvery:           10,
	}
}

func (c SolverConfig) Limits() domain.Limits {
	return domain.Limits{Capacity: c.Capacity, MaxDurationSeconds: c.MaxDurationSeconds}
}

func (c SolverConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c SolverConfig) Validate() error {
	switch {
	case c.PopulationSize < 1:
		return fmt.Errorf("%w: population_size must be >= 1, got %d", ErrInvalidSolverConfig, c.PopulationSize)
	case c.Generations < 0:
		return fmt.Errorf("%w: generations must be >= 0, got %d", ErrInvalidSolverConfig, c.Generations)
	case c.MutationRate < 0 || c.MutationRate > 1 || math.IsNaN(c.MutationRate):
		return fmt.Errorf("%w: mutation_rate must be within [0, 1], got %v", ErrInvalidSolverConfig, c.MutationRate)
	case c.TournamentSize < 1:
		return fmt.Errorf("%w: tournament_size must be >= 1, got %d", ErrInvalidSolverConfig, c.TournamentSize)
	case !(c.Capacity > 0) || math.IsInf(c.Capacity, 0):
		return fmt.Errorf("%w: capacity must be positive, got %v", ErrInvalidSolverConfig, c.Capacity)
	case c.MaxDurationSeconds < 0 || math.IsNaN(c.MaxDurationSeconds):
		return fmt.Errorf("%w: max_duration_seconds must be >= 0, got %v", ErrInvalidSolverConfig, c.MaxDurationSeconds)
	case c.EliteCount < 0 || c.EliteCount > c.PopulationSize:
		return fmt.Errorf("%w: elite_count must be within [0, %d], got %d", ErrInvalidSolverConfig, c.PopulationSize, c.EliteCount)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidSolverConfig, c.Workers)
	case !(c.PenaltyDistance > 0) || math.IsInf(c.PenaltyDistance, 0):
		return fmt.Errorf("%w: penalty_distance must be positive and finite, got %v", ErrInvalidSolverConfig, c.PenaltyDistance)
	case c.LogEvery < 0:
		return fmt.Errorf("%w: log_every must be >= 0, got %d", ErrInvalidSolverConfig, c.LogEvery)
	}

	switch c.Selection {
	case SelectionTournament, SelectionThreshold:
	default:
		return fmt.Errorf("%w: unknown selection %q", ErrInvalidSolverConfig, c.Selection)
	}

	switch c.Seeding {
	case SeedingShuffle, SeedingDepotDistance, SeedingNearestNeighbor:
	default:
		return fmt.Errorf("%w: unknown seeding %q", ErrInvalidSolverConfig, c.Seeding)
	}

	return nil
}
