package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Immutable geographic coordinates (longitude, latitude).
// In coordinate mode Lon and Lat are plain X and Y values.
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Key renders the coordinates as "lon,lat". It is the cache key used by
// distance caches, so the formatting must stay stable.
func (c Coordinates) Key() string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

func (c Coordinates) String() string { return c.Key() }

// ParseCoordinates is the inverse of Key.
func ParseCoordinates(s string) (Coordinates, error) {
	lonStr, latStr, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: expected \"lon,lat\"", s)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: longitude: %w", s, err)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse coordinates %q: latitude: %w", s, err)
	}

	return Coordinates{Lon: lon, Lat: lat}, nil
}
