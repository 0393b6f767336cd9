package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"truck-routing-service/internal/platform/db"
	"truck-routing-service/internal/services"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" || cfg.Dialect() != db.SQLite || cfg.DistanceBackend != "euclidean" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/routes")
	t.Setenv("DISTANCE_CACHE", "redis")
	t.Setenv("DEPOT_LON", "-112.07")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dialect() != db.Postgres || cfg.DistanceCache != "redis" || cfg.DepotLon != -112.07 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port: "8080", PlanTimeout: 1, DBDriver: "sqlite", DBPath: "x.db",
			DistanceBackend: "euclidean", SpeedKph: 50, MemoConcurrency: 1,
			DistanceCache: "none", SolverProfile: "coordinate",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := map[string]func(c *Config){
		"unknown driver":      func(c *Config) { c.DBDriver = "mysql" },
		"postgres needs url":  func(c *Config) { c.DBDriver = "postgres" },
		"ors needs key":       func(c *Config) { c.DistanceBackend = "ors" },
		"unknown backend":     func(c *Config) { c.DistanceBackend = "osrm" },
		"unknown cache":       func(c *Config) { c.DistanceCache = "memcached" },
		"zero timeout":        func(c *Config) { c.PlanTimeout = 0 },
		"empty profile":       func(c *Config) { c.SolverProfile = " " },
		"no memo concurrency": func(c *Config) { c.MemoConcurrency = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestGet(t *testing.T) {
	t.Setenv("TRUCK_ROUTING_TEST_KEY", "value")

	if got := Get("TRUCK_ROUTING_TEST_KEY", "fallback"); got != "value" {
		t.Fatalf("Get = %q, want value", got)
	}
	if got := Get("TRUCK_ROUTING_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("Get = %q, want fallback", got)
	}
}

func TestBuiltinProfiles(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coord, err := profiles.Get("coordinate")
	if err != nil {
		t.Fatalf("coordinate profile: %v", err)
	}
	if coord.Capacity != 100 || coord.MaxDurationSeconds != 480 || coord.MutationRate != 0.01 || coord.IncludeDepotLegs {
		t.Fatalf("coordinate profile = %+v", coord)
	}
	// Values the profile leaves out keep the solver defaults.
	if coord.EliteCount != services.DefaultSolverConfig().EliteCount {
		t.Fatalf("elite count = %d", coord.EliteCount)
	}

	geo, err := profiles.Get("geo")
	if err != nil {
		t.Fatalf("geo profile: %v", err)
	}
	if geo.Capacity != 300 || geo.MutationRate != 0.05 || !geo.IncludeDepotLegs || geo.Seeding != services.SeedingDepotDistance {
		t.Fatalf("geo profile = %+v", geo)
	}

	if _, err := profiles.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func TestProfilesFileOverlay(t *testing.T) {
	p := filepath.Join(t.TempDir(), "profiles.yaml")
	body := strings.Join([]string{
		"profiles:",
		"  geo:",
		"    population_size: 80",
		"  tiny:",
		"    population_size: 4",
		"    generations: 2",
		"    selection: threshold",
	}, "\n")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	profiles, err := LoadProfiles(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	geo, _ := profiles.Get("geo")
	if geo.PopulationSize != 80 || geo.Capacity != 300 {
		t.Fatalf("geo overlay = %+v", geo)
	}

	tiny, _ := profiles.Get("tiny")
	if tiny.PopulationSize != 4 || tiny.Selection != services.SelectionThreshold || tiny.Capacity != 100 {
		t.Fatalf("tiny = %+v", tiny)
	}
}

func TestProfilesRejectInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"out of range", "profiles:\n  bad:\n    mutation_rate: 2\n"},
		{"misspelled key", "profiles:\n  coordinate:\n    mutaton_rate: 0.9\n"},
		{"unknown top-level key", "profile:\n  coordinate: {}\n"},
		{"not a mapping", "profiles:\n  coordinate: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "profiles.yaml")
			if err := os.WriteFile(p, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			if _, err := LoadProfiles(p); err == nil {
				t.Fatalf("expected error for %q", tt.body)
			}
		})
	}
}
