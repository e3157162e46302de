package dto

import "time"

type ScheduleJobDTO struct {
	TechID        uint64 `json:"tech_id" validate:"required,gt=0"`
	ScheduledDate string `json:"scheduled_date" validate:"required,isodate"`
	ScheduledTime string `json:"scheduled_time" validate:"required,clock"`
	Priority      *int   `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
}

type CompleteJobDTO struct {
	WorkPerformed *string `json:"work_performed,omitempty"`
	PartsUsed     *string `json:"parts_used,omitempty"`
	TechNotes     *string `json:"tech_notes,omitempty"`
}

type AppendNotesDTO struct {
	Notes string `json:"notes"`
}

type CancelJobDTO struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// JobFilterDTO is bound from the query string; Status is a comma separated list.
type JobFilterDTO struct {
	Date   string `query:"date" validate:"omitempty,isodate"`
	Status string `query:"status"`
}

type EquipmentDTO struct {
	ID              uint64  `json:"equipment_id"`
	EquipmentType   string  `json:"equipment_type"`
	Brand           *string `json:"brand"`
	ModelNumber     *string `json:"model_number"`
	AgeYears        *int    `json:"age_years"`
	LastServiceDate *string `json:"last_service_date"`
}

type JobDTO struct {
	ID               uint64          `json:"request_id"`
	Status           string          `json:"status"`
	Priority         int             `json:"priority"`
	ServiceName      string          `json:"service_name"`
	ScheduledDate    *string         `json:"scheduled_date"`
	ScheduledTime    *string         `json:"scheduled_time"`
	ActualStartTime  *time.Time      `json:"actual_start_time"`
	Notes            *string         `json:"notes"`
	IssueDescription *string         `json:"issue_description"`
	Customer         CustomerDTO     `json:"customer"`
	ServiceType      *ServiceTypeDTO `json:"service_type"`
	Equipment        []EquipmentDTO  `json:"equipment"`
}

type ScheduleItemDTO struct {
	RequestID                uint64  `json:"request_id"`
	Status                   string  `json:"status"`
	Priority                 int     `json:"priority"`
	ScheduledDate            *string `json:"scheduled_date"`
	ScheduledTime            *string `json:"scheduled_time"`
	CustomerName             string  `json:"customer_name"`
	Address                  *string `json:"address"`
	City                     *string `json:"city"`
	ServiceName              string  `json:"service_name"`
	EstimatedDurationMinutes *int    `json:"estimated_duration_minutes"`
}

// JobStatusDTO is returned by lifecycle transitions.
type JobStatusDTO struct {
	RequestID       uint64     `json:"request_id"`
	Status          string     `json:"status"`
	AssignedTechID  *uint64    `json:"assigned_tech_id"`
	ScheduledDate   *string    `json:"scheduled_date"`
	ScheduledTime   *string    `json:"scheduled_time"`
	Priority        int        `json:"priority"`
	ActualStartTime *time.Time `json:"actual_start_time"`
	ActualEndTime   *time.Time `json:"actual_end_time"`
	Notes           *string    `json:"notes"`
	RecordID        *uint64    `json:"record_id,omitempty"`
}
