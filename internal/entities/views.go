package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// JobView is a technician's job with the customer, service and equipment context needed on site.
type JobView struct {
	Request     ServiceRequest
	Customer    Customer
	ServiceType *ServiceType
	Equipment   []Equipment
}

type ScheduleEntry struct {
	RequestID                uint64
	Status                   RequestStatus
	Priority                 int
	ScheduledDate            *time.Time
	ScheduledTime            null.String
	CustomerName             string
	Address                  null.String
	City                     null.String
	ServiceName              string
	EstimatedDurationMinutes null.Int
}

// RequestDetail is the joined read model behind GET /bookings/:id.
type RequestDetail struct {
	Request     ServiceRequest
	Customer    Customer
	ServiceType *ServiceType
	Technician  *Technician
	Record      *ServiceRecord
}
