package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"truck-routing-service/internal/platform/db"
)

// Config holds the service configuration, read from the environment.
type Config struct {
	// HTTP server
	Port        string        `env:"PORT" envDefault:"8080"`
	PlanTimeout time.Duration `env:"PLAN_TIMEOUT" envDefault:"60s"`

	// Database
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/app.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	SeedPath    string `env:"SEED_PATH" envDefault:"data/seeds/customers.json"`
	SeedOnStart bool   `env:"SEED_ON_START" envDefault:"true"`

	// Depot
	DepotName    string  `env:"DEPOT_NAME" envDefault:"depot"`
	DepotAddress string  `env:"DEPOT_ADDRESS"`
	DepotLon     float64 `env:"DEPOT_LON" envDefault:"0"`
	DepotLat     float64 `env:"DEPOT_LAT" envDefault:"0"`

	// Distance oracle: euclidean, haversine or ors
	DistanceBackend string  `env:"DISTANCE_BACKEND" envDefault:"euclidean"`
	SpeedKph        float64 `env:"SPEED_KPH" envDefault:"50"`
	ORSAPIKey       string  `env:"ORS_API_KEY"`
	ORSBaseURL      string  `env:"ORS_BASE_URL" envDefault:"https://api.openrouteservice.org"`
	ORSCountry      string  `env:"ORS_COUNTRY"`
	ORSRatePerSec   float64 `env:"ORS_RATE_PER_SEC" envDefault:"0.66"`
	ORSBurst        int     `env:"ORS_BURST" envDefault:"2"`
	MemoConcurrency int     `env:"MEMO_CONCURRENCY" envDefault:"5"`

	// Persistent distance cache: none, sql or redis
	DistanceCache       string        `env:"DISTANCE_CACHE" envDefault:"sql"`
	DistanceCacheMaxAge time.Duration `env:"DISTANCE_CACHE_MAX_AGE" envDefault:"720h"`
	RedisURL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Solver
	SolverProfile      string `env:"SOLVER_PROFILE" envDefault:"coordinate"`
	SolverProfilesPath string `env:"SOLVER_PROFILES_PATH"`
}

// Load reads an optional .env file, then parses and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is normal outside local development.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.PlanTimeout <= 0 {
		return fmt.Errorf("PLAN_TIMEOUT must be positive")
	}

	d, err := db.ParseDialect(c.DBDriver)
	if err != nil {
		return fmt.Errorf("DB_DRIVER: %w", err)
	}
	if d == db.Postgres && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required for DB_DRIVER=postgres")
	}
	if d == db.SQLite && strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH is required for DB_DRIVER=sqlite")
	}

	switch c.DistanceBackend {
	case "euclidean", "haversine":
	case "ors":
		if strings.TrimSpace(c.ORSAPIKey) == "" {
			return fmt.Errorf("ORS_API_KEY is required for DISTANCE_BACKEND=ors")
		}
	default:
		return fmt.Errorf("DISTANCE_BACKEND must be one of: euclidean, haversine, ors")
	}

	if c.SpeedKph <= 0 {
		return fmt.Errorf("SPEED_KPH must be positive")
	}

	if c.ORSRatePerSec < 0 {
		return fmt.Errorf("ORS_RATE_PER_SEC must be non-negative")
	}

	if c.MemoConcurrency < 1 {
		return fmt.Errorf("MEMO_CONCURRENCY must be >= 1")
	}

	switch c.DistanceCache {
	case "none", "sql":
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required for DISTANCE_CACHE=redis")
		}
	default:
		return fmt.Errorf("DISTANCE_CACHE must be one of: none, sql, redis")
	}

	if c.DistanceCacheMaxAge < 0 {
		return fmt.Errorf("DISTANCE_CACHE_MAX_AGE must be non-negative")
	}

	if strings.TrimSpace(c.SolverProfile) == "" {
		return fmt.Errorf("SOLVER_PROFILE is required")
	}

	return nil
}

// Dialect returns the SQL dialect of DB_DRIVER. Validate has already
// rejected unknown drivers.
func (c *Config) Dialect() db.Dialect {
	d, _ := db.ParseDialect(c.DBDriver)
	return d
}

// Get returns the environment value of key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
