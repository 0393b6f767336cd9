package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

// BuildSchedule renders one RoutePlan per path of route, in path order.
//
// Each truck departs the depot at departAt and visits its stops in the
// order the path holds; arrival times accumulate leg durations. The
// schedule always includes the depot leg, and the return leg when
// returnToDepot is set. Unlike fitness evaluation, a failed lookup here is
// returned as an error.
func BuildSchedule(
	ctx context.Context,
	route domain.Route,
	depot domain.Coordinates,
	departAt time.Time,
	provider ports.DistanceProvider,
	returnToDepot bool,
) ([]domain.RoutePlan, error) {
	if provider == nil {
		return nil, errors.New("build schedule: provider must be non-nil")
	}

	plans := make([]domain.RoutePlan, 0, len(route.Paths))
	for i, p := range route.Paths {
		plan, err := PlanPath(ctx, i+1, departAt, depot, p, provider, returnToDepot)
		if err != nil {
			return nil, fmt.Errorf("build schedule: %w", err)
		}
		plans = append(plans, *plan)
	}

	return plans, nil
}

// PlanPath schedules a single truck over one path.
func PlanPath(
	ctx context.Context,
	truckID int,
	departAt time.Time,
	depot domain.Coordinates,
	path domain.Path,
	provider ports.DistanceProvider,
	returnToDepot bool,
) (*domain.RoutePlan, error) {
	plan := &domain.RoutePlan{
		TruckID:  truckID,
		DepartAt: departAt,
		Stops:    make([]domain.RouteStop, 0, len(path.Stops)),
		Demand:   path.Demand,
	}

	if len(path.Stops) == 0 {
		return plan, nil
	}

	currentTime := departAt
	current := depot

	for _, s := range path.Stops {
		leg, err := provider.GetDistance(ctx, current, s.Location)
		if err != nil {
			return nil, fmt.Errorf("plan path: truck %d: leg %s -> stop %d: %w", truckID, current, s.ID, err)
		}

		currentTime = currentTime.Add(seconds(leg.DurationSeconds))
		plan.TotalDurationSeconds += leg.DurationSeconds
		plan.TotalDistanceMeters += leg.DistanceMeters

		plan.Stops = append(plan.Stops, domain.RouteStop{
			StopID:   s.ID,
			Name:     s.Name,
			Location: s.Location,
			Demand:   s.Demand,
			ArriveAt: currentTime,
		})
		current = s.Location
	}

	// Optionally includes return leg to the depot for total route metrics.
	if returnToDepot {
		back, err := provider.GetDistance(ctx, current, depot)
		if err != nil {
			return nil, fmt.Errorf("plan path: truck %d: return leg from %s: %w", truckID, current, err)
		}

		plan.TotalDurationSeconds += back.DurationSeconds
		plan.TotalDistanceMeters += back.DistanceMeters
	}

	return plan, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
