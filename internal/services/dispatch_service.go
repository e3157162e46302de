package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/internal/events"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/eventbus"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const scheduleWindowDays = 7

// EventPublisher is satisfied by *eventbus.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

var defaultJobStatuses = []entities.RequestStatus{entities.StatusScheduled, entities.StatusInProgress}

type DispatchServiceInterface interface {
	Schedule(ctx context.Context, id uint64, d dto.ScheduleJobDTO) (*dto.JobStatusDTO, error)
	Start(ctx context.Context, id uint64) (*dto.JobStatusDTO, error)
	Complete(ctx context.Context, id uint64, d dto.CompleteJobDTO) (*dto.JobStatusDTO, error)
	Cancel(ctx context.Context, id uint64, reason string) (*dto.JobStatusDTO, error)
	AppendNotes(ctx context.Context, id uint64, notes string) (*dto.JobStatusDTO, error)
	ListJobs(ctx context.Context, techID uint64, f dto.JobFilterDTO) ([]dto.JobDTO, error)
	ListSchedule(ctx context.Context, techID uint64) ([]dto.ScheduleItemDTO, error)
}

type DispatchService struct {
	txManager   repositories.TxManagerInterface
	requestRepo repositories.ServiceRequestRepositoryInterface
	recordRepo  repositories.ServiceRecordRepositoryInterface
	techRepo    repositories.TechnicianRepositoryInterface
	publisher   EventPublisher
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewDispatchService(
	txManager repositories.TxManagerInterface,
	requestRepo repositories.ServiceRequestRepositoryInterface,
	recordRepo repositories.ServiceRecordRepositoryInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	publisher EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) DispatchServiceInterface {
	return &DispatchService{
		txManager:   txManager,
		requestRepo: requestRepo,
		recordRepo:  recordRepo,
		techRepo:    techRepo,
		publisher:   publisher,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// today is the current business-local calendar date, as a UTC midnight for DATE columns.
func (s *DispatchService) today() time.Time {
	local := s.now().In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *DispatchService) publish(ctx context.Context, event eventbus.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, event)
	}
}

func (s *DispatchService) Schedule(ctx context.Context, id uint64, d dto.ScheduleJobDTO) (*dto.JobStatusDTO, error) {
	date, err := utils.ParseDate(d.ScheduledDate, time.UTC)
	if err != nil {
		return nil, apperrors.NewValidationError("scheduled_date", "Scheduled date must be YYYY-MM-DD")
	}
	clock, err := utils.NormalizeClock(d.ScheduledTime)
	if err != nil {
		return nil, apperrors.NewValidationError("scheduled_time", "Scheduled time must be HH:MM")
	}
	var priority null.Int
	if d.Priority != nil {
		if *d.Priority < entities.PriorityLow || *d.Priority > entities.PriorityEmergency {
			return nil, apperrors.NewValidationError("priority", "Priority must be between 1 and 5")
		}
		priority = null.IntFrom(*d.Priority)
	}

	if _, err := s.techRepo.FindByID(ctx, d.TechID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("tech_id", "Technician not found")
		}
		return nil, err
	}

	updated, err := s.requestRepo.Transition(ctx, nil, id, repositories.TransitionParams{
		Action:        entities.ActionSchedule,
		TechID:        d.TechID,
		ScheduledDate: date,
		ScheduledTime: clock,
		Priority:      priority,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job scheduled",
		zap.Uint64("request_id", id),
		zap.Uint64("tech_id", d.TechID),
		zap.String("date", d.ScheduledDate),
		zap.String("time", clock),
	)
	s.publish(ctx, events.JobScheduledEvent{Request: *updated})
	return jobStatusToDTO(updated), nil
}

func (s *DispatchService) Start(ctx context.Context, id uint64) (*dto.JobStatusDTO, error) {
	updated, err := s.requestRepo.Transition(ctx, nil, id, repositories.TransitionParams{Action: entities.ActionStart})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job started", zap.Uint64("request_id", id))
	s.publish(ctx, events.JobStartedEvent{Request: *updated})
	return jobStatusToDTO(updated), nil
}

func textOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	if v := strings.TrimSpace(*p); v != "" {
		return v
	}
	return fallback
}

// Complete flips the request to completed and writes its service record in one
// transaction; if the record insert fails the request stays in_progress.
func (s *DispatchService) Complete(ctx context.Context, id uint64, d dto.CompleteJobDTO) (*dto.JobStatusDTO, error) {
	serviceDate := s.today()

	var updated *entities.ServiceRequest
	var record *entities.ServiceRecord
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err := s.requestRepo.Transition(ctx, tx, id, repositories.TransitionParams{Action: entities.ActionComplete})
		if err != nil {
			return err
		}
		rec, err := s.recordRepo.Create(ctx, tx, entities.ServiceRecord{
			RequestID:     req.ID,
			CustomerID:    req.CustomerID,
			TechID:        req.AssignedTechID,
			ServiceDate:   &serviceDate,
			WorkPerformed: textOr(d.WorkPerformed, entities.DefaultWorkPerformed),
			PartsUsed:     textOr(d.PartsUsed, ""),
			TechNotes:     textOr(d.TechNotes, ""),
		})
		if err != nil {
			return err
		}
		updated, record = req, rec
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidTransition) {
			s.logger.Error("job completion rolled back", zap.Uint64("request_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("job completed", zap.Uint64("request_id", id), zap.Uint64("record_id", record.ID))
	s.publish(ctx, events.JobCompletedEvent{Request: *updated, Record: *record})

	out := jobStatusToDTO(updated)
	out.RecordID = &record.ID
	return out, nil
}

func (s *DispatchService) Cancel(ctx context.Context, id uint64, reason string) (*dto.JobStatusDTO, error) {
	reason = strings.TrimSpace(reason)
	note := "Cancelled"
	if reason != "" {
		note += ": " + reason
	}

	updated, err := s.requestRepo.Transition(ctx, nil, id, repositories.TransitionParams{
		Action:     entities.ActionCancel,
		Note:       note,
		NoteMarker: utils.NoteMarker(s.now(), s.loc),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job cancelled", zap.Uint64("request_id", id), zap.String("reason", reason))
	s.publish(ctx, events.JobCancelledEvent{Request: *updated, Reason: reason})
	return jobStatusToDTO(updated), nil
}

// AppendNotes adds to the request's note log in a single statement. Concurrent
// appends all land; there is no read-modify-write window.
func (s *DispatchService) AppendNotes(ctx context.Context, id uint64, notes string) (*dto.JobStatusDTO, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.NewValidationError("notes", "Notes are required")
	}
	updated, err := s.requestRepo.AppendNotes(ctx, id, notes, utils.NoteMarker(s.now(), s.loc))
	if err != nil {
		return nil, err
	}
	return jobStatusToDTO(updated), nil
}

func parseStatuses(raw string) ([]entities.RequestStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]entities.RequestStatus(nil), defaultJobStatuses...), nil
	}
	var out []entities.RequestStatus
	for _, part := range strings.Split(raw, ",") {
		st := entities.RequestStatus(strings.TrimSpace(part))
		if st == "" {
			continue
		}
		if !st.Valid() {
			return nil, apperrors.NewValidationError("status", "Unknown status %q", st)
		}
		out = append(out, st)
	}
	if len(out) == 0 {
		return append([]entities.RequestStatus(nil), defaultJobStatuses...), nil
	}
	return out, nil
}

// ListJobs returns a technician's jobs for one day, today and active statuses by default.
func (s *DispatchService) ListJobs(ctx context.Context, techID uint64, f dto.JobFilterDTO) ([]dto.JobDTO, error) {
	date := s.today()
	if f.Date != "" {
		parsed, err := utils.ParseDate(f.Date, time.UTC)
		if err != nil {
			return nil, apperrors.NewValidationError("date", "Date must be YYYY-MM-DD")
		}
		date = parsed
	}
	statuses, err := parseStatuses(f.Status)
	if err != nil {
		return nil, err
	}

	jobs, err := s.requestRepo.ListJobs(ctx, repositories.JobFilter{TechID: techID, Date: date, Statuses: statuses})
	if err != nil {
		return nil, err
	}
	out := make([]dto.JobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobViewToDTO(j))
	}
	return out, nil
}

// ListSchedule covers today through the next seven days.
func (s *DispatchService) ListSchedule(ctx context.Context, techID uint64) ([]dto.ScheduleItemDTO, error) {
	from := s.today()
	to := from.AddDate(0, 0, scheduleWindowDays)

	entries, err := s.requestRepo.ListSchedule(ctx, techID, from, to, defaultJobStatuses)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ScheduleItemDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, scheduleEntryToDTO(e))
	}
	return out, nil
}
