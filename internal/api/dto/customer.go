package dto

type CustomerResponse struct {
	ID                   int      `json:"id"`
	Name                 string   `json:"name"`
	Address              string   `json:"address,omitempty"`
	Lon                  *float64 `json:"lon"`
	Lat                  *float64 `json:"lat"`
	Demand               float64  `json:"demand"`
	DepotDistanceMeters  float64  `json:"depot_distance_meters"`
	DepotDurationSeconds float64  `json:"depot_duration_seconds"`
}

type ListCustomerResponse struct {
	Customers []CustomerResponse `json:"customers"`
}

type LocateFailureResponse struct {
	CustomerID int    `json:"customer_id"`
	Reason     string `json:"reason"`
}

type LocateResponse struct {
	Located int                     `json:"located"`
	Skipped int                     `json:"skipped"`
	Failed  []LocateFailureResponse `json:"failed"`
}
