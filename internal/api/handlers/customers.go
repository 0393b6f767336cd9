package handlers

import (
	"log"
	"net/http"

	"truck-routing-service/internal/api/dto"
	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
	"truck-routing-service/internal/services"
)

type CustomerHandler struct {
	Repo        ports.StopRepository
	Geocoder    ports.Geocoder
	NewProvider func() ports.DistanceProvider
	Depot       domain.Coordinates
}

// List returns every stored customer ordered by id. Customers that were
// never located report null coordinates.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stops, err := h.Repo.ListStops(r.Context())
	if err != nil {
		log.Printf("list customers failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListCustomerResponse{Customers: make([]dto.CustomerResponse, 0, len(stops))}
	for _, s := range stops {
		c := dto.CustomerResponse{
			ID:                   s.ID,
			Name:                 s.Name,
			Address:              s.Address,
			Demand:               s.Demand,
			DepotDistanceMeters:  s.DepotDistanceMeters,
			DepotDurationSeconds: s.DepotDurationSeconds,
		}
		if s.Location != (domain.Coordinates{}) {
			lon, lat := s.Location.Lon, s.Location.Lat
			c.Lon, c.Lat = &lon, &lat
		}
		res.Customers = append(res.Customers, c)
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Locate geocodes every customer address and stores the coordinates and
// depot leg. Individual failures are reported in the response body.
func (h *CustomerHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.Geocoder == nil {
		writeError(w, r, http.StatusServiceUnavailable, "geocoding is not configured")
		return
	}

	out, err := services.LocateStops(r.Context(), h.Depot, h.Repo, h.Geocoder, h.NewProvider())
	if err != nil {
		log.Printf("locate customers failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.LocateResponse{
		Located: out.Located,
		Skipped: out.Skipped,
		Failed:  make([]dto.LocateFailureResponse, 0, len(out.Failed)),
	}
	for _, f := range out.Failed {
		res.Failed = append(res.Failed, dto.LocateFailureResponse{CustomerID: f.StopID, Reason: f.Reason})
	}

	writeJSON(w, r, http.StatusOK, res)
}
