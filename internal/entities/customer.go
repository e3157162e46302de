package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

type Customer struct {
	ID                  uint64      `json:"customer_id"`
	Name                string      `json:"name"`
	FirstName           string      `json:"first_name"`
	LastName            string      `json:"last_name"`
	Phone               string      `json:"phone"`
	Email               null.String `json:"email"`
	Address             null.String `json:"address"`
	City                null.String `json:"city"`
	State               null.String `json:"state"`
	Zip                 null.String `json:"zip"`
	SpecialInstructions null.String `json:"special_instructions"`
	CreatedAt           *time.Time  `json:"created_at"`
}
