package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"truck-routing-service/internal/adapters/distance"
	"truck-routing-service/internal/api/dto"
	"truck-routing-service/internal/config"
	"truck-routing-service/internal/domain"
	"truck-routing-service/internal/ports"
)

type memRepo struct {
	stops   []domain.Stop
	listErr error
}

func (m *memRepo) ListStops(context.Context) ([]domain.Stop, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Stop(nil), m.stops...), nil
}

func (m *memRepo) UpdateLocation(_ context.Context, id int, loc domain.Coordinates, leg ports.DistanceResult) error {
	for i := range m.stops {
		if m.stops[i].ID == id {
			m.stops[i].Location = loc
			m.stops[i].DepotDistanceMeters = leg.DistanceMeters
			m.stops[i].DepotDurationSeconds = leg.DurationSeconds
			return nil
		}
	}
	return errors.New("not found")
}

type mapGeocoder map[string]domain.Coordinates

func (g mapGeocoder) Geocode(_ context.Context, address string) (domain.Coordinates, error) {
	c, ok := g[address]
	if !ok {
		return domain.Coordinates{}, distance.ErrNoGeocodeResult
	}
	return c, nil
}

type pingErr struct{ err error }

func (p pingErr) PingContext(context.Context) error { return p.err }

func scenarioStops() []domain.Stop {
	return []domain.Stop{
		{ID: 1, Name: "a", Location: domain.Coordinates{Lon: 1, Lat: 2}, Demand: 10},
		{ID: 2, Name: "b", Location: domain.Coordinates{Lon: 3, Lat: 1}, Demand: 5},
		{ID: 3, Name: "c", Location: domain.Coordinates{Lon: 2, Lat: 3}, Demand: 8},
		{ID: 4, Name: "d", Location: domain.Coordinates{Lon: 4, Lat: 4}, Demand: 6},
	}
}

func euclidean() ports.DistanceProvider { return distance.NewEuclideanProvider(1) }

func newPlanHandler(t *testing.T, repo ports.StopRepository) *PlanHandler {
	t.Helper()

	profiles, err := config.LoadProfiles("")
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}

	return &PlanHandler{
		Repo:           repo,
		NewProvider:    euclidean,
		Profiles:       profiles,
		DefaultProfile: "coordinate",
		Depot:          domain.Stop{Name: "depot"},
		now:            func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) },
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		h      *HealthHandler
		method string
		want   int
	}{
		{"no db", &HealthHandler{}, http.MethodGet, http.StatusOK},
		{"db up", &HealthHandler{DB: pingErr{}}, http.MethodGet, http.StatusOK},
		{"db down", &HealthHandler{DB: pingErr{err: errors.New("down")}}, http.MethodGet, http.StatusServiceUnavailable},
		{"wrong method", &HealthHandler{}, http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h.Check(rec, httptest.NewRequest(tt.method, "/health", nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestListCustomers(t *testing.T) {
	stops := scenarioStops()
	stops = append(stops, domain.Stop{ID: 5, Name: "unlocated", Address: "5 Elm St", Demand: 1})
	h := &CustomerHandler{Repo: &memRepo{stops: stops}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/customers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body)
	}

	var res dto.ListCustomerResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Customers) != 5 {
		t.Fatalf("got %d customers, want 5", len(res.Customers))
	}
	if c := res.Customers[0]; c.Lon == nil || *c.Lon != 1 || *c.Lat != 2 {
		t.Fatalf("customer 1 location = %v/%v", c.Lon, c.Lat)
	}
	if c := res.Customers[4]; c.Lon != nil || c.Lat != nil {
		t.Fatalf("unlocated customer reports coordinates")
	}
}

func TestListCustomersRepoError(t *testing.T) {
	h := &CustomerHandler{Repo: &memRepo{listErr: errors.New("db gone")}}

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/customers", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestLocateCustomers(t *testing.T) {
	repo := &memRepo{stops: []domain.Stop{
		{ID: 1, Address: "1 Main St", Demand: 1},
		{ID: 2, Address: "nowhere", Demand: 1},
		{ID: 3, Demand: 1},
	}}
	h := &CustomerHandler{
		Repo:        repo,
		Geocoder:    mapGeocoder{"1 Main St": {Lon: 3, Lat: 4}},
		NewProvider: euclidean,
	}

	rec := httptest.NewRecorder()
	h.Locate(rec, httptest.NewRequest(http.MethodPost, "/customers/locate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body)
	}

	var res dto.LocateResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Located != 1 || res.Skipped != 1 || len(res.Failed) != 1 || res.Failed[0].CustomerID != 2 {
		t.Fatalf("unexpected locate result: %+v", res)
	}
	if repo.stops[0].DepotDistanceMeters != 5 {
		t.Fatalf("depot leg = %v, want 5", repo.stops[0].DepotDistanceMeters)
	}
}

func TestLocateWithoutGeocoder(t *testing.T) {
	h := &CustomerHandler{Repo: &memRepo{}}

	rec := httptest.NewRecorder()
	h.Locate(rec, httptest.NewRequest(http.MethodPost, "/customers/locate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPlan(t *testing.T) {
	h := newPlanHandler(t, &memRepo{stops: scenarioStops()})

	body := `{"solver":{"population_size":10,"generations":5,"capacity":20},"include_ranked":true}`
	rec := httptest.NewRecorder()
	h.Plan(rec, httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body)
	}

	var res dto.PlanResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if res.Profile != "coordinate" || res.Generations != 5 || res.StoppedEarly {
		t.Fatalf("unexpected summary: %+v", res)
	}
	if len(res.History) != 6 {
		t.Fatalf("history has %d entries, want 6", len(res.History))
	}
	if len(res.Ranked) == 0 || res.Ranked[0].Fitness != res.Fitness {
		t.Fatalf("ranked routes do not start with the best route")
	}

	seen := map[int]bool{}
	for _, truck := range res.Trucks {
		if truck.Demand > 20 {
			t.Fatalf("truck %d carries %v, over capacity", truck.TruckID, truck.Demand)
		}
		if !truck.DepartAt.Equal(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)) {
			t.Fatalf("truck %d departs at %v", truck.TruckID, truck.DepartAt)
		}
		for _, s := range truck.Stops {
			if seen[s.CustomerID] {
				t.Fatalf("customer %d planned twice", s.CustomerID)
			}
			seen[s.CustomerID] = true
		}
	}
	if len(seen) != 4 {
		t.Fatalf("planned %d customers, want 4", len(seen))
	}
}

func TestPlanUsesProviderPerRequest(t *testing.T) {
	h := newPlanHandler(t, &memRepo{stops: scenarioStops()})

	base := distance.NewEuclideanProvider(1)
	var memos []*distance.MemoProvider
	h.NewProvider = func() ports.DistanceProvider {
		m := distance.NewMemoProvider(base, nil)
		memos = append(memos, m)
		return m
	}

	body := `{"solver":{"population_size":10,"generations":3,"capacity":20}}`
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Plan(rec, httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body=%s", i, rec.Code, rec.Body)
		}
	}

	if len(memos) != 2 {
		t.Fatalf("providers built = %d, want 2", len(memos))
	}
	// The second request starts from an empty table.
	for i, m := range memos {
		if _, misses := m.Stats(); misses == 0 {
			t.Fatalf("request %d: misses = 0, want lookups of its own", i)
		}
	}
}

func TestPlanBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"unknown field", `{"trucks":3}`},
		{"two objects", `{}{}`},
		{"unknown profile", `{"profile":"nope"}`},
		{"invalid override", `{"solver":{"population_size":0}}`},
		{"half depot", `{"depot_lon":1}`},
		{"negative timeout", `{"timeout_ms":-1}`},
		{"demand over capacity", `{"solver":{"capacity":5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPlanHandler(t, &memRepo{stops: scenarioStops()})

			rec := httptest.NewRecorder()
			h.Plan(rec, httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body)
			}
		})
	}
}

func TestPlanErrorStatus(t *testing.T) {
	unavailable := &ports.DistanceUnavailableError{Err: errors.New("boom")}
	if got, _ := planErrorStatus(unavailable); got != http.StatusBadGateway {
		t.Fatalf("unavailable distance status = %d, want 502", got)
	}
	if got, _ := planErrorStatus(errors.New("other")); got != http.StatusInternalServerError {
		t.Fatalf("generic status = %d, want 500", got)
	}
}

func TestPlanMethodNotAllowed(t *testing.T) {
	h := newPlanHandler(t, &memRepo{})

	rec := httptest.NewRecorder()
	h.Plan(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("status = %d allow=%q", rec.Code, rec.Header().Get("Allow"))
	}
}
