package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"truck-routing-service/internal/adapters/cache"
	"truck-routing-service/internal/adapters/distance"
	"truck-routing-service/internal/adapters/repositories"
	"truck-routing-service/internal/api"
	"truck-routing-service/internal/api/handlers"
	"truck-routing-service/internal/config"
	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/db"
	"truck-routing-service/internal/ports"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	profiles, err := config.LoadProfiles(cfg.SolverProfilesPath)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := profiles.Get(cfg.SolverProfile); err != nil {
		log.Fatalf("SOLVER_PROFILE: %v", err)
	}

	conn, err := openDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	dialect := cfg.Dialect()

	// Initialize schema and seed demo data on startup for local runs.
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatal(err)
	}
	if cfg.SeedOnStart {
		if err := repositories.SeedFromJSON(conn, dialect, cfg.SeedPath); err != nil {
			log.Fatal(err)
		}
	}

	store, closeStore, err := distanceStore(cfg, conn)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	base, geocoder, err := distanceBackend(cfg, conn)
	if err != nil {
		log.Fatal(err)
	}

	// Each request gets its own memo; only the persistent store outlives it.
	newProvider := func() ports.DistanceProvider {
		memo := distance.NewMemoProvider(base, store)
		memo.Concurrency = cfg.MemoConcurrency
		return memo
	}

	depot, err := resolveDepot(cfg, geocoder)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("depot name=%q location=%s", depot.Name, depot.Location)

	repo := repositories.NewSQLStopRepository(conn, dialect)
	router := api.NewRouter(api.Deps{
		Health: &handlers.HealthHandler{DB: conn},
		Customers: &handlers.CustomerHandler{
			Repo:        repo,
			Geocoder:    geocoder,
			NewProvider: newProvider,
			Depot:       depot.Location,
		},
		Plans: &handlers.PlanHandler{
			Repo:           repo,
			NewProvider:    newProvider,
			Profiles:       profiles,
			DefaultProfile: cfg.SolverProfile,
			Depot:          depot,
			SolveTimeout:   cfg.PlanTimeout,
		},
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.PlanTimeout + 60*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening addr=:%s backend=%s cache=%s db=%s", cfg.Port, cfg.DistanceBackend, cfg.DistanceCache, dialect)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.Dialect() == db.Postgres {
		return db.Open(cfg.DatabaseURL)
	}
	return db.OpenSQLite(cfg.DBPath)
}

// distanceStore builds the persistent distance cache behind the memo.
func distanceStore(cfg *config.Config, conn *sql.DB) (ports.DistanceCache, func(), error) {
	switch cfg.DistanceCache {
	case "sql":
		return cache.NewSQLDistanceCache(conn, cfg.Dialect(), cfg.DistanceCacheMaxAge), func() {}, nil
	case "redis":
		rc, err := cache.NewRedisDistanceCacheFromURL(cfg.RedisURL, cfg.DistanceCacheMaxAge)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// distanceBackend returns the distance oracle and, for ORS, a geocoder.
func distanceBackend(cfg *config.Config, conn *sql.DB) (ports.DistanceProvider, ports.Geocoder, error) {
	switch cfg.DistanceBackend {
	case "haversine":
		return distance.NewHaversineProvider(cfg.SpeedKph), nil, nil
	case "ors":
		opts := []distance.ORSOption{
			distance.WithBaseURL(cfg.ORSBaseURL),
			distance.WithRateLimit(cfg.ORSRatePerSec, cfg.ORSBurst),
		}

		provider, err := distance.NewORSDistanceProvider(cfg.ORSAPIKey, opts...)
		if err != nil {
			return nil, nil, err
		}

		geocodeCache := cache.NewSQLGeocodeCache(conn, cfg.Dialect())
		geocoder, err := distance.NewORSGeocoder(cfg.ORSAPIKey, geocodeCache, cfg.ORSCountry, opts...)
		if err != nil {
			return nil, nil, err
		}
		return provider, geocoder, nil
	default:
		return distance.NewEuclideanProvider(1), nil, nil
	}
}

// resolveDepot uses DEPOT_LON/DEPOT_LAT when set, otherwise geocodes
// DEPOT_ADDRESS.
func resolveDepot(cfg *config.Config, geocoder ports.Geocoder) (domain.Stop, error) {
	depot := domain.Stop{
		Name:     cfg.DepotName,
		Address:  cfg.DepotAddress,
		Location: domain.Coordinates{Lon: cfg.DepotLon, Lat: cfg.DepotLat},
	}

	if depot.Location != (domain.Coordinates{}) || strings.TrimSpace(cfg.DepotAddress) == "" {
		return depot, nil
	}
	if geocoder == nil {
		return domain.Stop{}, fmt.Errorf("DEPOT_ADDRESS needs DISTANCE_BACKEND=ors; set DEPOT_LON and DEPOT_LAT instead")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	loc, err := geocoder.Geocode(ctx, cfg.DepotAddress)
	if err != nil {
		return domain.Stop{}, fmt.Errorf("geocode depot: %w", err)
	}
	depot.Location = loc
	return depot, nil
}
