package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"truck-routing-service/internal/platform/db"
)

// CustomerSeed is one entry of the seed file. Lon and Lat are optional;
// customers without coordinates are located later through the geocoder.
type CustomerSeed struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lon     *float64 `json:"lon,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Demand  float64  `json:"demand"`
}

// ReadSeedFile parses and validates a customer seed file.
func ReadSeedFile(jsonPath string) ([]CustomerSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed customers: read %q: %w", jsonPath, err)
	}

	var data []CustomerSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed customers: parse json: %w", err)
	}

	rows := make([]CustomerSeed, 0, len(data))
	for i, item := range data {
		if item.ID <= 0 {
			return nil, fmt.Errorf("seed customers: invalid id at index %d: %d", i+1, item.ID)
		}

		if item.Demand < 0 {
			return nil, fmt.Errorf("seed customers: id %d: demand must be non-negative", item.ID)
		}

		if (item.Lon == nil) != (item.Lat == nil) {
			return nil, fmt.Errorf("seed customers: id %d: lon and lat must be set together", item.ID)
		}

		item.Name = strings.TrimSpace(item.Name)
		item.Address = strings.TrimSpace(item.Address)
		if item.Address == "" && item.Lon == nil {
			return nil, fmt.Errorf("seed customers: id %d: needs an address or coordinates", item.ID)
		}
		rows = append(rows, item)
	}

	return rows, nil
}

// SeedFromJSON upserts the customers of a seed file. Existing coordinates
// survive a re-seed when the file omits them.
func SeedFromJSON(conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	rows, err := ReadSeedFile(jsonPath)
	if err != nil {
		return err
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("seed customers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
	INSERT INTO customers (id, name, address, lon, lat, demand)
	VALUES (%s)
	ON CONFLICT (id) DO UPDATE
	SET name = excluded.name,
		address = excluded.address,
		lon = COALESCE(excluded.lon, customers.lon),
		lat = COALESCE(excluded.lat, customers.lat),
		demand = excluded.demand;
	`, dialect.Placeholders(1, 6))

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed customers: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range rows {
		if _, err := stmt.Exec(c.ID, c.Name, c.Address, nullFloat(c.Lon), nullFloat(c.Lat), c.Demand); err != nil {
			return fmt.Errorf("seed customers: insert id=%d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed customers: commit tx: %w", err)
	}

	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
