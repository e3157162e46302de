package events

import (
	"service-dispatch/internal/entities"
)

const (
	JobScheduled = "job.scheduled"
	JobStarted   = "job.started"
	JobCompleted = "job.completed"
	JobCancelled = "job.cancelled"
)

// JobScheduledEvent is published after a request is assigned or rescheduled.
type JobScheduledEvent struct {
	Request entities.ServiceRequest
}

func (e JobScheduledEvent) Name() string { return JobScheduled }

type JobStartedEvent struct {
	Request entities.ServiceRequest
}

func (e JobStartedEvent) Name() string { return JobStarted }

// JobCompletedEvent carries the service record written in the same transaction.
type JobCompletedEvent struct {
	Request entities.ServiceRequest
	Record  entities.ServiceRecord
}

func (e JobCompletedEvent) Name() string { return JobCompleted }

type JobCancelledEvent struct {
	Request entities.ServiceRequest
	Reason  string
}

func (e JobCancelledEvent) Name() string { return JobCancelled }
