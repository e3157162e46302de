package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

const (
	DefaultWorkPerformed = "Service completed"
)

// ServiceRecord is the immutable outcome of a completed request; at most one per request.
type ServiceRecord struct {
	ID            uint64      `json:"record_id"`
	RequestID     uint64      `json:"request_id"`
	CustomerID    uint64      `json:"customer_id"`
	TechID        null.Uint64 `json:"tech_id"`
	ServiceDate   *time.Time  `json:"service_date"`
	WorkPerformed string      `json:"work_performed"`
	PartsUsed     string      `json:"parts_used"`
	TechNotes     string      `json:"tech_notes"`
	CreatedAt     *time.Time  `json:"created_at"`
}
