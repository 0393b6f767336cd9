package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

// Source index 0 is always the origin; destinations follow in order.
type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

func newMatrixRequest(origin domain.Coordinates, destinations []domain.Coordinates) matrixRequest {
	req := matrixRequest{
		Locations:    make([][]float64, 0, 1+len(destinations)),
		Sources:      []int{0},
		Destinations: make([]int, 0, len(destinations)),
		Metrics:      []string{"distance", "duration"},
	}

	req.Locations = append(req.Locations, origin.CoordsToList())
	for i, d := range destinations {
		req.Locations = append(req.Locations, d.CoordsToList())
		req.Destinations = append(req.Destinations, i+1)
	}
	return req
}

// row validates the single-source shape and pairs each cell with its
// destination. ORS reports unroutable pairs as null; those destinations are
// left out of the result so the caller can treat them as unavailable.
func (mr matrixResponse) row(destinations []domain.Coordinates) (map[string]ports.DistanceResult, int, error) {
	if len(mr.Distances) != 1 || len(mr.Durations) != 1 {
		return nil, 0, fmt.Errorf(
			"expected 1 source row; got distances=%d durations=%d",
			len(mr.Distances), len(mr.Durations),
		)
	}

	meters, seconds := mr.Distances[0], mr.Durations[0]
	if len(meters) != len(destinations) || len(seconds) != len(destinations) {
		return nil, 0, fmt.Errorf(
			"row lengths do not match destinations: distances=%d durations=%d destinations=%d",
			len(meters), len(seconds), len(destinations),
		)
	}

	out := make(map[string]ports.DistanceResult, len(destinations))
	unroutable := 0
	for i, dest := range destinations {
		if meters[i] == nil || seconds[i] == nil {
			unroutable++
			continue
		}
		out[dest.Key()] = ports.DistanceResult{DistanceMeters: *meters[i], DurationSeconds: *seconds[i]}
	}

	return out, unroutable, nil
}

// fetchMatrixRow retrieves distance and duration from one origin to many
// destinations with a single matrix call.
func (o *ORSDistanceProvider) fetchMatrixRow(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	if len(destinations) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	payload, err := json.Marshal(newMatrixRequest(origin, destinations))
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	out, unroutable, err := mr.row(destinations)
	if err != nil {
		return nil, err
	}
	if unroutable > 0 {
		log.Printf("req_id=%s ors matrix origin=%s unroutable=%d/%d",
			obs.RequestID(ctx), origin.Key(), unroutable, len(destinations))
	}

	return out, nil
}
