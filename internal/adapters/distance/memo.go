package distance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/metrics"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// MemoProvider memoizes an underlying DistanceProvider for the lifetime of
// a planning run. Lookups resolve in order: in-memory entries, the optional
// persistent cache, then the wrapped provider. Concurrent misses for the
// same ordered pair collapse into a single upstream call.
//
// A pair the upstream could not resolve is remembered as unavailable and
// answered without another upstream call until the memo is dropped. Only
// whole-batch and context failures are left unremembered.
//
// The provider is safe for concurrent use.
type MemoProvider struct {
	next  ports.DistanceProvider
	store ports.DistanceCache

	mu      sync.RWMutex
	entries map[string]ports.DistanceResult
	failed  map[string]*ports.DistanceUnavailableError
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64

	// Parallel origins during Warm.
	Concurrency int
}

var errUnroutable = errors.New("unroutable pair")

func NewMemoProvider(next ports.DistanceProvider, store ports.DistanceCache) *MemoProvider {
	return &MemoProvider{
		next:        next,
		store:       store,
		entries:     make(map[string]ports.DistanceResult),
		failed:      make(map[string]*ports.DistanceUnavailableError),
		Concurrency: 5,
	}
}

func pairKey(origin, destination string) string { return origin + "|" + destination }

// lookup reports a remembered result or a remembered failure.
func (m *MemoProvider) lookup(k string) (ports.DistanceResult, *ports.DistanceUnavailableError, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.entries[k]; ok {
		return r, nil, true
	}
	if e, ok := m.failed[k]; ok {
		return ports.DistanceResult{}, e, true
	}
	return ports.DistanceResult{}, nil, false
}

func (m *MemoProvider) remember(
	origin string,
	results map[string]ports.DistanceResult,
	failures map[string]*ports.DistanceUnavailableError,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for dest, r := range results {
		m.entries[pairKey(origin, dest)] = r
	}
	for dest, e := range failures {
		m.failed[pairKey(origin, dest)] = e
	}
}

// Stats returns the number of in-memory hits and upstream resolutions.
func (m *MemoProvider) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *MemoProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	if origin == destination {
		return ports.DistanceResult{}, nil
	}

	k := pairKey(origin.Key(), destination.Key())
	if r, failure, ok := m.lookup(k); ok {
		m.hits.Add(1)
		if failure != nil {
			metrics.DistanceLookups.WithLabelValues("failure").Inc()
			return ports.DistanceResult{}, failure
		}
		metrics.DistanceLookups.WithLabelValues("hit").Inc()
		return r, nil
	}

	v, err, _ := m.group.Do(k, func() (any, error) {
		if r, failure, ok := m.lookup(k); ok {
			if failure != nil {
				return ports.DistanceResult{}, failure
			}
			return r, nil
		}

		results, failures, err := m.resolve(ctx, origin, []domain.Coordinates{destination})
		if err != nil {
			return ports.DistanceResult{}, err
		}
		if failure, ok := failures[destination.Key()]; ok {
			return ports.DistanceResult{}, failure
		}

		r, ok := results[destination.Key()]
		if !ok {
			return ports.DistanceResult{}, &ports.DistanceUnavailableError{
				Origin: origin, Destination: destination, Err: errors.New("no result returned"),
			}
		}
		return r, nil
	})
	if err != nil {
		metrics.DistanceLookups.WithLabelValues("failure").Inc()
		return ports.DistanceResult{}, err
	}

	return v.(ports.DistanceResult), nil
}

// GetDistances resolves one origin to many destinations, batching every
// miss into a single upstream matrix call when the wrapped provider supports it.
// Destinations that could not be resolved are absent from the result.
func (m *MemoProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, len(destinations))
	misses := make([]domain.Coordinates, 0, len(destinations))
	seen := make(map[string]struct{}, len(destinations))

	for _, d := range destinations {
		dk := d.Key()
		if _, ok := seen[dk]; ok {
			continue
		}
		seen[dk] = struct{}{}

		if d == origin {
			out[dk] = ports.DistanceResult{}
			continue
		}
		if r, failure, ok := m.lookup(pairKey(origin.Key(), dk)); ok {
			m.hits.Add(1)
			if failure == nil {
				out[dk] = r
			}
			continue
		}
		misses = append(misses, d)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, _, err := m.resolve(ctx, origin, misses)
	if err != nil {
		return nil, err
	}
	for k, v := range fetched {
		out[k] = v
	}

	return out, nil
}

// resolve fetches destinations that are not in memory, consulting the
// persistent cache first. Successes and per-pair failures are remembered
// before returning, even when a later destination ends the call with a
// context error.
func (m *MemoProvider) resolve(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, map[string]*ports.DistanceUnavailableError, error) {
	originKey := origin.Key()
	out := make(map[string]ports.DistanceResult, len(destinations))
	failures := make(map[string]*ports.DistanceUnavailableError)

	if m.store != nil {
		keys := make([]string, 0, len(destinations))
		for _, d := range destinations {
			keys = append(keys, d.Key())
		}

		cached, err := m.store.GetMany(ctx, originKey, keys)
		if err != nil {
			// A broken cache degrades to upstream lookups.
			log.Printf("req_id=%s distance cache read failed origin=%s: %v", obs.RequestID(ctx), originKey, err)
		}
		for k, v := range cached {
			out[k] = v
		}
	}

	misses := make([]domain.Coordinates, 0, len(destinations))
	for _, d := range destinations {
		if _, ok := out[d.Key()]; !ok {
			misses = append(misses, d)
		}
	}

	m.misses.Add(int64(len(destinations)))
	metrics.DistanceLookups.WithLabelValues("miss").Add(float64(len(destinations)))

	fetched := make(map[string]ports.DistanceResult, len(misses))
	var stopErr error

	if mp, ok := m.next.(ports.DistanceMatrixProvider); ok && len(misses) > 1 {
		rows, err := mp.GetDistances(ctx, origin, misses)
		if err != nil {
			// The whole batch failed; single lookups may still succeed later.
			return nil, nil, &ports.DistanceUnavailableError{Origin: origin, Destination: misses[0], Err: err}
		}
		for _, d := range misses {
			if r, ok := rows[d.Key()]; ok {
				fetched[d.Key()] = r
				continue
			}
			failures[d.Key()] = &ports.DistanceUnavailableError{Origin: origin, Destination: d, Err: errUnroutable}
		}
	} else {
		for _, d := range misses {
			r, err := m.next.GetDistance(ctx, origin, d)
			if err != nil {
				if ctx.Err() != nil {
					stopErr = &ports.DistanceUnavailableError{Origin: origin, Destination: d, Err: ctx.Err()}
					break
				}

				var due *ports.DistanceUnavailableError
				if !errors.As(err, &due) {
					due = &ports.DistanceUnavailableError{Origin: origin, Destination: d, Err: err}
				}
				failures[d.Key()] = due
				continue
			}
			fetched[d.Key()] = r
		}
	}

	if len(failures) > 0 {
		metrics.DistanceLookups.WithLabelValues("failure").Add(float64(len(failures)))
	}

	if m.store != nil && len(fetched) > 0 {
		if err := m.store.PutMany(ctx, originKey, fetched); err != nil {
			log.Printf("req_id=%s distance cache write failed origin=%s: %v", obs.RequestID(ctx), originKey, err)
		}
	}

	for k, v := range fetched {
		out[k] = v
	}
	m.remember(originKey, out, failures)

	if stopErr != nil {
		return nil, nil, stopErr
	}
	return out, failures, nil
}

// Warm resolves every ordered pair among points once, so that fitness
// evaluation in later generations never leaves memory.
func (m *MemoProvider) Warm(ctx context.Context, points []domain.Coordinates) (err error) {
	defer obs.Time(ctx, "distance.memo.Warm")(&err)

	uniq := make([]domain.Coordinates, 0, len(points))
	seen := make(map[domain.Coordinates]struct{}, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}

	limit := m.Concurrency
	if limit <= 0 {
		limit = 1
	}

	// A failing origin must not cancel its siblings.
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(limit)

	for _, origin := range uniq {
		targets := make([]domain.Coordinates, 0, len(uniq)-1)
		for _, t := range uniq {
			if t != origin {
				targets = append(targets, t)
			}
		}
		if len(targets) == 0 {
			continue
		}

		g.Go(func() error {
			if _, err := m.GetDistances(ctx, origin, targets); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm distances from %s: %w", origin.Key(), err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
