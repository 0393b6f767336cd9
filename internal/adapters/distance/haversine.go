package distance

import (
	"context"
	"math"

	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

const earthRadiusMeters = 6371000.0

// HaversineProvider estimates great-circle distance between lon/lat pairs
// and derives duration from a constant average speed.
type HaversineProvider struct {
	SpeedKph float64
}

func NewHaversineProvider(speedKph float64) *HaversineProvider {
	if speedKph <= 0 {
		speedKph = 50
	}
	return &HaversineProvider{SpeedKph: speedKph}
}

func (h *HaversineProvider) GetDistance(_ context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	meters := haversineMeters(origin.Lat, origin.Lon, destination.Lat, destination.Lon)
	seconds := meters / (h.SpeedKph * 1000 / 3600)
	return ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}

func (h *HaversineProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		r, _ := h.GetDistance(ctx, origin, d)
		out[d.Key()] = r
	}
	return out, nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
