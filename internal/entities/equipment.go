package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type Equipment struct {
	ID              uint64      `json:"equipment_id"`
	CustomerID      uint64      `json:"customer_id"`
	EquipmentType   string      `json:"equipment_type"`
	Brand           null.String `json:"brand"`
	ModelNumber     null.String `json:"model_number"`
	AgeYears        null.Int    `json:"age_years"`
	LastServiceDate *time.Time  `json:"last_service_date"`
}
