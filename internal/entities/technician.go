package entities

import "github.com/aarondl/null/v8"

type Technician struct {
	ID             uint64      `json:"tech_id"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone"`
	Email          null.String `json:"email"`
	Specialization null.String `json:"specialization"`
	Status         string      `json:"status"`
}
