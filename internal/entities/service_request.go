package entities

import (
	"fmt"
	"time"

	apperrors "service-dispatch/pkg/errors"

	"github.com/aarondl/null/v8"
)

type RequestStatus string

const (
	StatusNew        RequestStatus = "new"
	StatusScheduled  RequestStatus = "scheduled"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

var AllStatuses = []RequestStatus{StatusNew, StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled}

func (s RequestStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionSchedule Action = "schedule"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

type RequestSource string

const (
	SourceContactForm RequestSource = "contact_form"
	SourceChat        RequestSource = "chat"
)

const (
	PriorityLow       = 1
	PriorityDefault   = 3
	PriorityEmergency = 5
)

type transitionRule struct {
	from []RequestStatus
	to   RequestStatus
}

// Rescheduling a scheduled job is allowed; completed and cancelled are terminal.
var transitions = map[Action]transitionRule{
	ActionSchedule: {from: []RequestStatus{StatusNew, StatusScheduled}, to: StatusScheduled},
	ActionStart:    {from: []RequestStatus{StatusScheduled}, to: StatusInProgress},
	ActionComplete: {from: []RequestStatus{StatusInProgress}, to: StatusCompleted},
	ActionCancel:   {from: []RequestStatus{StatusNew, StatusScheduled}, to: StatusCancelled},
}

// TransitionError reports an action attempted from a state that does not allow it.
type TransitionError struct {
	RequestID uint64
	From      RequestStatus
	Action    Action
}

func (e *TransitionError) Error() string {
	if e.RequestID == 0 {
		return fmt.Sprintf("cannot %s a request in status %q", e.Action, e.From)
	}
	return fmt.Sprintf("cannot %s request %d in status %q", e.Action, e.RequestID, e.From)
}

func (e *TransitionError) Unwrap() error { return apperrors.ErrInvalidTransition }

// Transition returns the status reached by applying action to from.
func Transition(from RequestStatus, action Action) (RequestStatus, error) {
	rule, ok := transitions[action]
	if !ok {
		return "", &TransitionError{From: from, Action: action}
	}
	for _, s := range rule.from {
		if s == from {
			return rule.to, nil
		}
	}
	return "", &TransitionError{From: from, Action: action}
}

// TargetStatus is the status action leads to.
func TargetStatus(action Action) (RequestStatus, bool) {
	rule, ok := transitions[action]
	return rule.to, ok
}

// SourcesFor lists the statuses action may be applied from.
func SourcesFor(action Action) []RequestStatus {
	rule, ok := transitions[action]
	if !ok {
		return nil
	}
	out := make([]RequestStatus, len(rule.from))
	copy(out, rule.from)
	return out
}

// StatusStrings converts statuses for use as a text[] query argument.
func StatusStrings(statuses []RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type ServiceRequest struct {
	ID                uint64        `json:"request_id"`
	CustomerID        uint64        `json:"customer_id"`
	ServiceTypeID     null.Uint64   `json:"service_type_id"`
	ServiceName       string        `json:"service_name"`
	AssignedTechID    null.Uint64   `json:"assigned_tech_id"`
	Status            RequestStatus `json:"status"`
	Priority          int           `json:"priority"`
	Source            RequestSource `json:"source"`
	PreferredDateTime null.String   `json:"preferred_datetime"`
	ScheduledDate     *time.Time    `json:"scheduled_date"`
	ScheduledTime     null.String   `json:"scheduled_time"`
	ActualStartTime   *time.Time    `json:"actual_start_time"`
	ActualEndTime     *time.Time    `json:"actual_end_time"`
	Notes             null.String   `json:"notes"`
	IssueDescription  null.String   `json:"issue_description"`
	CreatedAt         *time.Time    `json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at"`
}
