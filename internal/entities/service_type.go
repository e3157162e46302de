package entities

type ServiceType struct {
	ID                       uint64  `json:"service_type_id"`
	Name                     string  `json:"service_name"`
	BasePrice                float64 `json:"base_price"`
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
}
