package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"truck-routing-service/internal/adapters/distance"
	"truck-routing-service/internal/adapters/repositories"
	"truck-routing-service/internal/config"
	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/services"
)

type pathOutput struct {
	Stops           []int   `json:"stops"`
	Demand          float64 `json:"demand"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type output struct {
	Fitness        float64                    `json:"fitness"`
	PenalizedEdges int                        `json:"penalized_edges"`
	Generations    int                        `json:"generations"`
	StoppedEarly   bool                       `json:"stopped_early"`
	Paths          []pathOutput               `json:"paths"`
	History        []services.GenerationStats `json:"history,omitempty"`
}

// solve runs the genetic solver once over a customer file in coordinate
// mode (euclidean distances) and prints the best route as JSON.
func main() {
	catalogPath := flag.String("catalog", "data/seeds/customers.json", "customer file with lon/lat per customer")
	depotFlag := flag.String("depot", "0,0", "depot coordinates as x,y")
	profile := flag.String("profile", "coordinate", "solver profile")
	profilesPath := flag.String("profiles", "", "optional YAML file overlaying the built-in profiles")
	generations := flag.Int("generations", -1, "override generations")
	population := flag.Int("population", 0, "override population size")
	seed := flag.Uint64("seed", 0, "override random seed")
	timeout := flag.Duration("timeout", 0, "stop evolving after this long")
	history := flag.Bool("history", false, "include per-generation statistics")
	flag.Parse()

	cfg, err := solverConfig(*profilesPath, *profile)
	if err != nil {
		log.Fatal(err)
	}
	if *generations >= 0 {
		cfg.Generations = *generations
	}
	if *population > 0 {
		cfg.PopulationSize = *population
		cfg.EliteCount = min(cfg.EliteCount, cfg.PopulationSize)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	cfg.LogEvery = 0

	depotLoc, err := domain.ParseCoordinates(*depotFlag)
	if err != nil {
		log.Fatal(err)
	}

	stops, err := readStops(*catalogPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	provider := distance.NewMemoProvider(distance.NewEuclideanProvider(1), nil)
	catalog, err := services.PrepareCatalog(ctx, domain.Stop{Name: "depot", Location: depotLoc}, stops, provider)
	if err != nil {
		log.Fatal(err)
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := services.Solve(ctx, cfg, catalog, provider)
	if err != nil {
		log.Fatal(err)
	}
	hits, misses := provider.Stats()
	log.Printf("solved stops=%d demand=%.1f dur=%dms distance_hits=%d distance_misses=%d",
		len(catalog.Stops), catalog.TotalDemand(), time.Since(start).Milliseconds(), hits, misses)

	out := output{
		Fitness:        res.Best.Fitness,
		PenalizedEdges: res.Best.PenalizedEdges,
		Generations:    res.Generations,
		StoppedEarly:   res.StoppedEarly,
		Paths:          make([]pathOutput, 0, len(res.Best.Paths)),
	}
	if *history {
		out.History = res.History
	}
	for _, p := range res.Best.Paths {
		ids := make([]int, 0, len(p.Stops))
		for _, s := range p.Stops {
			ids = append(ids, s.ID)
		}
		out.Paths = append(out.Paths, pathOutput{Stops: ids, Demand: p.Demand, DurationSeconds: p.DurationSeconds})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func solverConfig(profilesPath, name string) (services.SolverConfig, error) {
	profiles, err := config.LoadProfiles(profilesPath)
	if err != nil {
		return services.SolverConfig{}, err
	}
	return profiles.Get(name)
}

// readStops loads customers from the seed file format. Every customer needs
// coordinates since nothing is geocoded here.
func readStops(path string) ([]domain.Stop, error) {
	seeds, err := repositories.ReadSeedFile(path)
	if err != nil {
		return nil, err
	}

	stops := make([]domain.Stop, 0, len(seeds))
	for _, s := range seeds {
		if s.Lon == nil {
			return nil, fmt.Errorf("customer %d has no coordinates", s.ID)
		}
		stops = append(stops, domain.Stop{
			ID:       s.ID,
			Name:     s.Name,
			Address:  s.Address,
			Location: domain.Coordinates{Lon: *s.Lon, Lat: *s.Lat},
			Demand:   s.Demand,
		})
	}
	return stops, nil
}
