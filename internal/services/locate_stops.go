package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

type LocateFailure struct {
	StopID int
	Reason string
}

type LocateResult struct {
	Located int
	Skipped int
	Failed  []LocateFailure
}

// LocateStops geocodes every customer address, recomputes its depot leg and
// persists both. A customer whose address cannot be resolved is reported
// and skipped; the rest of the batch continues. Repository failures abort.
func LocateStops(
	ctx context.Context,
	depot domain.Coordinates,
	repo ports.StopRepository,
	geocoder ports.Geocoder,
	provider ports.DistanceProvider,
) (_ *LocateResult, err error) {
	defer obs.Time(ctx, "services.LocateStops")(&err)

	stops, err := repo.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("locate stops: list stops: %w", err)
	}

	res := &LocateResult{Failed: make([]LocateFailure, 0)}
	for _, s := range stops {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("locate stops: %w", err)
		}

		if strings.TrimSpace(s.Address) == "" {
			res.Skipped++
			continue
		}

		loc, err := geocoder.Geocode(ctx, s.Address)
		if err != nil {
			log.Printf("req_id=%s geocode stop=%d failed: %v", obs.RequestID(ctx), s.ID, err)
			res.Failed = append(res.Failed, LocateFailure{StopID: s.ID, Reason: err.Error()})
			continue
		}

		leg, err := provider.GetDistance(ctx, depot, loc)
		if err != nil {
			log.Printf("req_id=%s depot leg stop=%d failed: %v", obs.RequestID(ctx), s.ID, err)
			res.Failed = append(res.Failed, LocateFailure{StopID: s.ID, Reason: err.Error()})
			continue
		}

		if err := repo.UpdateLocation(ctx, s.ID, loc, leg); err != nil {
			return nil, fmt.Errorf("locate stops: %w", err)
		}
		res.Located++
	}

	return res, nil
}
