package main

import (
	"database/sql"
	"flag"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"truck-routing-service/internal/adapters/repositories"
	"truck-routing-service/internal/config"
	"truck-routing-service/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	driver := flag.String("driver", config.Get("DB_DRIVER", "sqlite"), "database driver: sqlite or postgres")
	dsn := flag.String("dsn", "", "DATABASE_URL for postgres or file path for sqlite (defaults from env)")
	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/customers.json"), "customer seed file")
	skipSeed := flag.Bool("schema-only", false, "create the schema without seeding")
	flag.Parse()

	dialect, err := db.ParseDialect(*driver)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := open(dialect, *dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *skipSeed {
		return
	}

	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(conn, dialect, *seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}

func open(dialect db.Dialect, dsn string) (*sql.DB, error) {
	if dialect == db.Postgres {
		if strings.TrimSpace(dsn) == "" {
			dsn = config.Get("DATABASE_URL", "")
		}
		if strings.TrimSpace(dsn) == "" {
			log.Fatal("DATABASE_URL is required")
		}
		return db.Open(dsn)
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = config.Get("DB_PATH", "data/app.db")
	}
	return db.OpenSQLite(dsn)
}
