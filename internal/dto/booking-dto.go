package dto

import "time"

// CreateBookingDTO is the public booking payload. Required fields are checked
// after trimming by the intake service.
type CreateBookingDTO struct {
	Name     string `json:"name" validate:"max=255"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Service  string `json:"service" validate:"max=255"`
	DateTime string `json:"datetime"`
	Message  string `json:"message"`
	Source   string `json:"source" validate:"omitempty,oneof=contact_form chat"`
}

type BookingResultDTO struct {
	RequestID  *uint64 `json:"booking_id,omitempty"`
	CustomerID *uint64 `json:"customer_id,omitempty"`
	Stored     bool    `json:"stored"`
	Notified   bool    `json:"notified"`
}

type CustomerDTO struct {
	ID                  uint64  `json:"customer_id"`
	Name                string  `json:"name"`
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	Phone               string  `json:"phone"`
	Email               *string `json:"email"`
	Address             *string `json:"address"`
	City                *string `json:"city"`
	State               *string `json:"state"`
	Zip                 *string `json:"zip"`
	SpecialInstructions *string `json:"special_instructions"`
}

type ServiceTypeDTO struct {
	ID                       uint64  `json:"service_type_id"`
	Name                     string  `json:"service_name"`
	BasePrice                float64 `json:"base_price"`
	EstimatedDurationMinutes int     `json:"estimated_duration_minutes"`
}

type ServiceRecordDTO struct {
	ID            uint64  `json:"record_id"`
	TechID        *uint64 `json:"tech_id"`
	ServiceDate   *string `json:"service_date"`
	WorkPerformed string  `json:"work_performed"`
	PartsUsed     string  `json:"parts_used"`
	TechNotes     string  `json:"tech_notes"`
}

type BookingDetailDTO struct {
	ID                uint64            `json:"request_id"`
	Status            string            `json:"status"`
	Priority          int               `json:"priority"`
	Source            string            `json:"source"`
	ServiceName       string            `json:"service_name"`
	PreferredDateTime *string           `json:"preferred_datetime"`
	ScheduledDate     *string           `json:"scheduled_date"`
	ScheduledTime     *string           `json:"scheduled_time"`
	ActualStartTime   *time.Time        `json:"actual_start_time"`
	ActualEndTime     *time.Time        `json:"actual_end_time"`
	Notes             *string           `json:"notes"`
	IssueDescription  *string           `json:"issue_description"`
	CreatedAt         *time.Time        `json:"created_at"`
	UpdatedAt         *time.Time        `json:"updated_at"`
	Customer          CustomerDTO       `json:"customer"`
	ServiceType       *ServiceTypeDTO   `json:"service_type"`
	Technician        *TechnicianDTO    `json:"technician"`
	ServiceRecord     *ServiceRecordDTO `json:"service_record"`
}
