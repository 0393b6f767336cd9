package dto

import (
	"time"

	"truck-routing-service/internal/services"
)

// SolverOverrides replace single fields of the selected solver profile.
// Unset fields keep the profile value.
type SolverOverrides struct {
	PopulationSize     *int     `json:"population_size"`
	Generations        *int     `json:"generations"`
	MutationRate       *float64 `json:"mutation_rate"`
	TournamentSize     *int     `json:"tournament_size"`
	Capacity           *float64 `json:"capacity"`
	MaxDurationSeconds *float64 `json:"max_duration_seconds"`
	EliteCount         *int     `json:"elite_count"`
	Seed               *uint64  `json:"seed"`
	Selection          *string  `json:"selection"`
	Seeding            *string  `json:"seeding"`
	IncludeDepotLegs   *bool    `json:"include_depot_legs"`
}

// Apply copies every set override onto cfg.
func (o *SolverOverrides) Apply(cfg services.SolverConfig) services.SolverConfig {
	if o == nil {
		return cfg
	}
	if o.PopulationSize != nil {
		cfg.PopulationSize = *o.PopulationSize
	}
	if o.Generations != nil {
		cfg.Generations = *o.Generations
	}
	if o.MutationRate != nil {
		cfg.MutationRate = *o.MutationRate
	}
	if o.TournamentSize != nil {
		cfg.TournamentSize = *o.TournamentSize
	}
	if o.Capacity != nil {
		cfg.Capacity = *o.Capacity
	}
	if o.MaxDurationSeconds != nil {
		cfg.MaxDurationSeconds = *o.MaxDurationSeconds
	}
	if o.EliteCount != nil {
		cfg.EliteCount = *o.EliteCount
	}
	if o.Seed != nil {
		cfg.Seed = *o.Seed
	}
	if o.Selection != nil {
		cfg.Selection = *o.Selection
	}
	if o.Seeding != nil {
		cfg.Seeding = *o.Seeding
	}
	if o.IncludeDepotLegs != nil {
		cfg.IncludeDepotLegs = *o.IncludeDepotLegs
	}
	return cfg
}

type PlanRequest struct {
	Profile       string           `json:"profile"`
	DepartAt      *time.Time       `json:"depart_at"`
	ReturnToDepot *bool            `json:"return_to_depot"`
	DepotLon      *float64         `json:"depot_lon"`
	DepotLat      *float64         `json:"depot_lat"`
	IncludeRanked bool             `json:"include_ranked"`
	TimeoutMillis int              `json:"timeout_ms"`
	Solver        *SolverOverrides `json:"solver"`
}

type PlanStopResponse struct {
	CustomerID int       `json:"customer_id"`
	Name       string    `json:"name"`
	Lon        float64   `json:"lon"`
	Lat        float64   `json:"lat"`
	Demand     float64   `json:"demand"`
	ArriveAt   time.Time `json:"arrive_at"`
}

type TruckPlanResponse struct {
	TruckID              int                `json:"truck_id"`
	DepartAt             time.Time          `json:"depart_at"`
	Demand               float64            `json:"demand"`
	TotalDistanceMeters  float64            `json:"total_distance_meters"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
	Stops                []PlanStopResponse `json:"stops"`
}

type RankedRouteResponse struct {
	Name           string  `json:"name"`
	Fitness        float64 `json:"fitness"`
	PenalizedEdges int     `json:"penalized_edges"`
	Paths          [][]int `json:"paths"`
}

type PlanResponse struct {
	Profile        string                     `json:"profile"`
	Generations    int                        `json:"generations"`
	StoppedEarly   bool                       `json:"stopped_early"`
	Fitness        float64                    `json:"fitness"`
	PenalizedEdges int                        `json:"penalized_edges"`
	Trucks         []TruckPlanResponse        `json:"trucks"`
	Ranked         []RankedRouteResponse      `json:"ranked,omitempty"`
	History        []services.GenerationStats `json:"history"`
}
