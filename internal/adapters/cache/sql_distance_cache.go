package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"truck-routing-service/internal/platform/db"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

var _ ports.DistanceCache = (*SQLDistanceCache)(nil)

// SQLDistanceCache persists origin->destination distance results in the
// distance_cache table of either postgres or SQLite. Entries older than
// MaxAge are reported as misses so road-network changes eventually show up;
// a zero MaxAge keeps entries forever.
type SQLDistanceCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	MaxAge  time.Duration

	now func() time.Time
}

func NewSQLDistanceCache(conn *sql.DB, dialect db.Dialect, maxAge time.Duration) *SQLDistanceCache {
	return &SQLDistanceCache{DB: conn, Dialect: dialect, MaxAge: maxAge, now: time.Now}
}

func (s *SQLDistanceCache) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	args := make([]any, 0, 2+len(uniq))
	args = append(args, origin)
	var minFetched int64
	if s.MaxAge > 0 {
		minFetched = s.clock().Add(-s.MaxAge).Unix()
	}
	args = append(args, minFetched)
	for _, d := range uniq {
		args = append(args, d)
	}

	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT destination, distance_meters, duration_seconds
	FROM distance_cache
	WHERE origin = %s
		AND fetched_at >= %s
		AND destination IN (%s);
	`, s.Dialect.Placeholder(1), s.Dialect.Placeholder(2), s.Dialect.Placeholders(3, len(uniq)))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.DistanceResult, len(uniq))
	for rows.Next() {
		var dest string
		var meters, seconds float64
		if err := rows.Scan(&dest, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[dest] = ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many cached distance results for a single origin.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, fetched_at)
	VALUES (%s)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = excluded.distance_meters,
		duration_seconds = excluded.duration_seconds,
		fetched_at = excluded.fetched_at;
	`, s.Dialect.Placeholders(1, 5)))
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	fetchedAt := s.clock().Unix()
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert distance cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds, fetchedAt); err != nil {
			return fmt.Errorf("insert distance cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}
