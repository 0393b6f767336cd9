package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/db"
	"truck-routing-service/internal/ports"
)

var (
	_ ports.StopRepository = (*SQLStopRepository)(nil)

	ErrStopNotFound = errors.New("stop not found")
)

// SQL-backed implementation of the StopRepository port, for postgres or SQLite.
type SQLStopRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLStopRepository(conn *sql.DB, dialect db.Dialect) *SQLStopRepository {
	return &SQLStopRepository{DB: conn, Dialect: dialect}
}

// Return all customers ordered by id. Customers that were never located
// come back with zero coordinates.
func (s *SQLStopRepository) ListStops(ctx context.Context) ([]domain.Stop, error) {
	if s.DB == nil {
		return nil, errors.New("sql stop repository: DB is nil")
	}

	query := `
	SELECT
		id,
		name,
		address,
		lon,
		lat,
		demand,
		depot_distance,
		depot_duration
	FROM customers
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stops: query customers table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 64)
	for rows.Next() {
		var st domain.Stop
		var lon, lat sql.NullFloat64
		err := rows.Scan(
			&st.ID, &st.Name, &st.Address, &lon, &lat,
			&st.Demand, &st.DepotDistanceMeters, &st.DepotDurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		st.Location = domain.Coordinates{Lon: lon.Float64, Lat: lat.Float64}
		stops = append(stops, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}

// Persist the resolved coordinates and depot leg of one customer.
func (s *SQLStopRepository) UpdateLocation(
	ctx context.Context,
	stopID int,
	location domain.Coordinates,
	depotLeg ports.DistanceResult,
) error {
	if s.DB == nil {
		return errors.New("sql stop repository: DB is nil")
	}

	query := fmt.Sprintf(`
	UPDATE customers
	SET lon = %s, lat = %s, depot_distance = %s, depot_duration = %s
	WHERE id = %s;
	`,
		s.Dialect.Placeholder(1), s.Dialect.Placeholder(2), s.Dialect.Placeholder(3),
		s.Dialect.Placeholder(4), s.Dialect.Placeholder(5),
	)

	res, err := s.DB.ExecContext(ctx, query,
		location.Lon, location.Lat, depotLeg.DistanceMeters, depotLeg.DurationSeconds, stopID)
	if err != nil {
		return fmt.Errorf("update location id=%d: %w", stopID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update location id=%d: rows affected: %w", stopID, err)
	}
	if n == 0 {
		return fmt.Errorf("update location id=%d: %w", stopID, ErrStopNotFound)
	}

	return nil
}
