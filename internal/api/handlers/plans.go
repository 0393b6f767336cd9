package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"truck-routing-service/internal/api/dto"
	"truck-routing-service/internal/config"
	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
	"truck-routing-service/internal/services"
)

// Longest solve a caller may request through timeout_ms.
const maxSolveTimeout = 10 * time.Minute

type PlanHandler struct {
	Repo ports.StopRepository
	// NewProvider is called once per request, so lookups remembered while
	// planning are dropped with the request.
	NewProvider    func() ports.DistanceProvider
	Profiles       config.Profiles
	DefaultProfile string
	Depot          domain.Stop
	// SolveTimeout applies when the request does not set timeout_ms.
	SolveTimeout time.Duration

	now func() time.Time
}

// Plan evolves routes over all stored customers and returns the fittest
// route as per-truck schedules.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.PlanRequest
	if err := decodeStrict(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile := strings.TrimSpace(req.Profile)
	if profile == "" {
		profile = h.DefaultProfile
	}
	cfg, err := h.Profiles.Get(profile)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg = req.Solver.Apply(cfg)
	if req.ReturnToDepot != nil {
		cfg.ReturnToDepot = *req.ReturnToDepot
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	depot := h.Depot
	if (req.DepotLon == nil) != (req.DepotLat == nil) {
		writeError(w, r, http.StatusBadRequest, "depot_lon and depot_lat must be set together")
		return
	}
	if req.DepotLon != nil {
		depot.Location = domain.Coordinates{Lon: *req.DepotLon, Lat: *req.DepotLat}
	}

	timeout := h.SolveTimeout
	if req.TimeoutMillis < 0 {
		writeError(w, r, http.StatusBadRequest, "timeout_ms must not be negative")
		return
	}
	if req.TimeoutMillis > 0 {
		timeout = min(time.Duration(req.TimeoutMillis)*time.Millisecond, maxSolveTimeout)
	}

	depart := h.clock()
	if req.DepartAt != nil {
		depart = *req.DepartAt
	}

	svcReq := services.PlanRoutesRequest{
		Depot:        depot,
		DepartAt:     depart,
		Solver:       cfg,
		SolveTimeout: timeout,
	}

	out, err := services.PlanRoutes(r.Context(), svcReq, h.Repo, h.NewProvider())
	if err != nil {
		status, msg := planErrorStatus(err)
		log.Printf("plan routes failed: status=%d err=%v", status, err)
		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusOK, planResponse(profile, out, req.IncludeRanked))
}

func (h *PlanHandler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func planErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidSolverConfig), errors.Is(err, domain.ErrInvalidCatalog):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ports.ErrDistanceUnavailable):
		return http.StatusBadGateway, "distance provider unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func planResponse(profile string, out *services.PlanRoutesResult, includeRanked bool) dto.PlanResponse {
	res := dto.PlanResponse{
		Profile:        profile,
		Generations:    out.Result.Generations,
		StoppedEarly:   out.Result.StoppedEarly,
		Fitness:        out.Result.Best.Fitness,
		PenalizedEdges: out.Result.Best.PenalizedEdges,
		Trucks:         make([]dto.TruckPlanResponse, 0, len(out.Plans)),
		History:        out.Result.History,
	}

	for _, p := range out.Plans {
		stops := make([]dto.PlanStopResponse, 0, len(p.Stops))
		for _, s := range p.Stops {
			stops = append(stops, dto.PlanStopResponse{
				CustomerID: s.StopID,
				Name:       s.Name,
				Lon:        s.Location.Lon,
				Lat:        s.Location.Lat,
				Demand:     s.Demand,
				ArriveAt:   s.ArriveAt,
			})
		}

		res.Trucks = append(res.Trucks, dto.TruckPlanResponse{
			TruckID:              p.TruckID,
			DepartAt:             p.DepartAt,
			Demand:               p.Demand,
			TotalDistanceMeters:  p.TotalDistanceMeters,
			TotalDurationSeconds: p.TotalDurationSeconds,
			Stops:                stops,
		})
	}

	if includeRanked {
		res.Ranked = make([]dto.RankedRouteResponse, 0, len(out.Result.Ranked))
		for _, rt := range out.Result.Ranked {
			paths := make([][]int, 0, len(rt.Paths))
			for _, p := range rt.Paths {
				ids := make([]int, 0, len(p.Stops))
				for _, s := range p.Stops {
					ids = append(ids, s.ID)
				}
				paths = append(paths, ids)
			}
			res.Ranked = append(res.Ranked, dto.RankedRouteResponse{
				Name:           rt.Name,
				Fitness:        rt.Fitness,
				PenalizedEdges: rt.PenalizedEdges,
				Paths:          paths,
			})
		}
	}

	return res
}
