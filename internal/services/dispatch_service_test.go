package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/internal/events"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestSchedule(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusNew})

	got, err := env.dispatch.Schedule(ctx, id, dto.ScheduleJobDTO{
		TechID: 1, ScheduledDate: "2024-05-01", ScheduledTime: "9:05", Priority: intPtr(5),
	})

	require.NoError(t, err)
	assert.Equal(t, "scheduled", got.Status)
	require.NotNil(t, got.AssignedTechID)
	assert.Equal(t, uint64(1), *got.AssignedTechID)
	assert.Equal(t, "2024-05-01", *got.ScheduledDate)
	assert.Equal(t, "09:05", *got.ScheduledTime)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, []string{events.JobScheduled}, env.publisher.names())
}

func TestSchedule_RescheduleKeepsPriority(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusScheduled, Priority: 4})

	got, err := env.dispatch.Schedule(context.Background(), id, dto.ScheduleJobDTO{
		TechID: 1, ScheduledDate: "2024-05-03", ScheduledTime: "16:30",
	})

	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", *got.ScheduledDate)
	assert.Equal(t, 4, got.Priority)
}

func TestSchedule_Rejects(t *testing.T) {
	cases := map[string]struct {
		in    dto.ScheduleJobDTO
		field string
	}{
		"unknown technician": {dto.ScheduleJobDTO{TechID: 99, ScheduledDate: "2024-05-01", ScheduledTime: "14:00"}, "tech_id"},
		"bad date":           {dto.ScheduleJobDTO{TechID: 1, ScheduledDate: "05/01/2024", ScheduledTime: "14:00"}, "scheduled_date"},
		"bad time":           {dto.ScheduleJobDTO{TechID: 1, ScheduledDate: "2024-05-01", ScheduledTime: "25:00"}, "scheduled_time"},
		"bad priority":       {dto.ScheduleJobDTO{TechID: 1, ScheduledDate: "2024-05-01", ScheduledTime: "14:00", Priority: intPtr(9)}, "priority"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv()
			id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusNew})

			_, err := env.dispatch.Schedule(context.Background(), id, tc.in)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, entities.StatusNew, env.store.requests[id].Status)
			assert.Empty(t, env.publisher.events)
		})
	}
}

func TestSchedule_InProgressIsRejected(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})

	_, err := env.dispatch.Schedule(context.Background(), id, dto.ScheduleJobDTO{TechID: 1, ScheduledDate: "2024-05-01", ScheduledTime: "14:00"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestStart(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fresh := env.seedRequest(entities.ServiceRequest{Status: entities.StatusNew})
	scheduled := env.seedRequest(entities.ServiceRequest{Status: entities.StatusScheduled, AssignedTechID: null.Uint64From(1)})

	_, err := env.dispatch.Start(ctx, fresh)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "a job must be scheduled before it starts")

	got, err := env.dispatch.Start(ctx, scheduled)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
	require.NotNil(t, got.ActualStartTime)

	_, err = env.dispatch.Start(ctx, scheduled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.dispatch.Start(ctx, 12345)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, []string{events.JobStarted}, env.publisher.names())
}

func TestComplete_Defaults(t *testing.T) {
	env := newTestEnv()
	start := env.store.clock
	id := env.seedRequest(entities.ServiceRequest{
		Status: entities.StatusInProgress, AssignedTechID: null.Uint64From(1), ActualStartTime: &start,
	})

	got, err := env.dispatch.Complete(context.Background(), id, dto.CompleteJobDTO{WorkPerformed: strPtr("   ")})

	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.ActualEndTime)
	assert.False(t, got.ActualEndTime.Before(start))
	require.NotNil(t, got.RecordID)

	rec := env.store.records[id]
	assert.Equal(t, *got.RecordID, rec.ID)
	assert.Equal(t, entities.DefaultWorkPerformed, rec.WorkPerformed)
	assert.Equal(t, "", rec.PartsUsed)
	assert.Equal(t, null.Uint64From(1), rec.TechID)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *rec.ServiceDate)

	require.Len(t, env.publisher.events, 1)
	completed, ok := env.publisher.events[0].(events.JobCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, rec.ID, completed.Record.ID)
}

func TestComplete_ServiceDateIsBusinessLocal(t *testing.T) {
	env := newTestEnv()
	// 15:00 UTC is already May 2nd in Tokyo.
	env.dispatch.loc = time.FixedZone("JST", 9*3600)
	env.dispatch.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})

	_, err := env.dispatch.Complete(context.Background(), id, dto.CompleteJobDTO{})

	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", env.store.records[id].ServiceDate.Format(utils.DateLayout))
}

func TestComplete_RecordFailureLeavesJobInProgress(t *testing.T) {
	env := newTestEnv()
	env.records.err = errors.New("disk full")
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})

	_, err := env.dispatch.Complete(context.Background(), id, dto.CompleteJobDTO{WorkPerformed: strPtr("Replaced capacitor")})

	require.Error(t, err)
	assert.Equal(t, entities.StatusInProgress, env.store.requests[id].Status)
	assert.Nil(t, env.store.requests[id].ActualEndTime)
	assert.Empty(t, env.store.records)
	assert.Equal(t, 1, env.tx.rollbacks)
	assert.Empty(t, env.publisher.events)
}

func TestComplete_OnlyFromInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	scheduled := env.seedRequest(entities.ServiceRequest{Status: entities.StatusScheduled})
	running := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})

	_, err := env.dispatch.Complete(ctx, scheduled, dto.CompleteJobDTO{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.dispatch.Complete(ctx, running, dto.CompleteJobDTO{})
	require.NoError(t, err)
	_, err = env.dispatch.Complete(ctx, running, dto.CompleteJobDTO{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	assert.Len(t, env.store.records, 1, "one service record per request")
}

func TestCancel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fresh := env.seedRequest(entities.ServiceRequest{Status: entities.StatusNew})
	scheduled := env.seedRequest(entities.ServiceRequest{Status: entities.StatusScheduled, Notes: null.StringFrom("Gate code 1234")})
	running := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})

	got, err := env.dispatch.Cancel(ctx, fresh, "  Customer fixed it  ")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)
	assert.Equal(t, "Cancelled: Customer fixed it", *got.Notes)

	got, err = env.dispatch.Cancel(ctx, scheduled, "")
	require.NoError(t, err)
	assert.Equal(t, "Gate code 1234"+utils.NoteMarker(fixedNow, time.UTC)+"Cancelled", *got.Notes)

	_, err = env.dispatch.Cancel(ctx, running, "too late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, entities.StatusInProgress, env.store.requests[running].Status)

	_, err = env.dispatch.Cancel(ctx, fresh, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "cancelled is terminal")

	require.Len(t, env.publisher.events, 2)
	assert.Equal(t, "Customer fixed it", env.publisher.events[0].(events.JobCancelledEvent).Reason)
}

func TestAppendNotes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	id := env.seedRequest(entities.ServiceRequest{Status: entities.StatusInProgress})
	marker := utils.NoteMarker(fixedNow, time.UTC)

	_, err := env.dispatch.AppendNotes(ctx, id, "  ")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "notes", verr.Field)

	got, err := env.dispatch.AppendNotes(ctx, id, "Unit is on the roof")
	require.NoError(t, err)
	assert.Equal(t, "Unit is on the roof", *got.Notes)

	got, err = env.dispatch.AppendNotes(ctx, id, "Ladder needed")
	require.NoError(t, err)
	assert.Equal(t, "Unit is on the roof"+marker+"Ladder needed", *got.Notes)
	assert.Equal(t, entities.StatusInProgress, env.store.requests[id].Status, "notes never change status")

	_, err = env.dispatch.AppendNotes(ctx, 12345, "hello")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func seedJobs(env *testEnv) (early, urgent, normal, done, tomorrow, other uint64) {
	on := func(day int, clock string, priority int, status entities.RequestStatus, tech uint64) entities.ServiceRequest {
		return entities.ServiceRequest{
			Status:         status,
			Priority:       priority,
			AssignedTechID: null.Uint64From(tech),
			ScheduledDate:  datePtr2024(day),
			ScheduledTime:  null.StringFrom(clock),
		}
	}
	normal = env.seedRequest(on(1, "14:00", 3, entities.StatusScheduled, 1))
	early = env.seedRequest(on(1, "09:00", 3, entities.StatusInProgress, 1))
	urgent = env.seedRequest(on(1, "14:00", 5, entities.StatusScheduled, 1))
	done = env.seedRequest(on(1, "08:00", 3, entities.StatusCompleted, 1))
	tomorrow = env.seedRequest(on(2, "10:00", 3, entities.StatusScheduled, 1))
	other = env.seedRequest(on(1, "10:00", 3, entities.StatusScheduled, 2))
	return
}

func jobIDs(jobs []dto.JobDTO) []uint64 {
	out := make([]uint64, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestListJobs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	early, urgent, normal, done, tomorrow, _ := seedJobs(env)
	env.store.equipment = append(env.store.equipment, entities.Equipment{
		ID: 1, CustomerID: env.store.requests[early].CustomerID, EquipmentType: "Condenser", Brand: null.StringFrom("Carrier"),
	})

	jobs, err := env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{early, urgent, normal}, jobIDs(jobs), "time ascending, then priority descending")
	require.Len(t, jobs[0].Equipment, 1)
	assert.Equal(t, "Carrier", *jobs[0].Equipment[0].Brand)
	assert.Equal(t, "Jane Doe", jobs[0].Customer.Name)

	jobs, err = env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{done}, jobIDs(jobs))

	jobs, err = env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{Date: "2024-05-02", Status: "scheduled, in_progress"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{tomorrow}, jobIDs(jobs))

	jobs, err = env.dispatch.ListJobs(ctx, 3, dto.JobFilterDTO{})
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestListJobs_RejectsBadFilters(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{Status: "scheduled,bogus"})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{Date: "tomorrow"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestParseStatusesDoesNotShareDefaults(t *testing.T) {
	got, err := parseStatuses("")
	require.NoError(t, err)
	got[0] = entities.StatusCancelled

	assert.Equal(t, entities.StatusScheduled, defaultJobStatuses[0])
}

func TestListSchedule(t *testing.T) {
	env := newTestEnv()
	on := func(day int, clock string, status entities.RequestStatus) uint64 {
		return env.seedRequest(entities.ServiceRequest{
			Status: status, AssignedTechID: null.Uint64From(1), ScheduledDate: datePtr2024(day), ScheduledTime: null.StringFrom(clock),
		})
	}
	later := on(3, "08:00", entities.StatusScheduled)
	today := on(1, "16:00", entities.StatusInProgress)
	on(1, "10:00", entities.StatusCompleted)
	on(9, "08:00", entities.StatusScheduled)
	env.seedRequest(entities.ServiceRequest{
		Status: entities.StatusScheduled, AssignedTechID: null.Uint64From(1), ScheduledDate: &time.Time{}, ScheduledTime: null.StringFrom("08:00"),
	})

	items, err := env.dispatch.ListSchedule(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, today, items[0].RequestID)
	assert.Equal(t, later, items[1].RequestID)
	assert.Equal(t, "2024-05-03", *items[1].ScheduledDate)
}

// A customer books, the office schedules, the technician works the job.
func TestBookingToCompletion(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	booking, err := env.intake.SubmitRequest(ctx, dto.CreateBookingDTO{Name: "Jane Doe", Phone: "555-1234", Service: "AC repair"})
	require.NoError(t, err)
	id := *booking.RequestID

	_, err = env.dispatch.Schedule(ctx, id, dto.ScheduleJobDTO{TechID: 1, ScheduledDate: "2024-05-01", ScheduledTime: "14:00"})
	require.NoError(t, err)

	jobs, err := env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, jobIDs(jobs))

	_, err = env.dispatch.Start(ctx, id)
	require.NoError(t, err)
	_, err = env.dispatch.AppendNotes(ctx, id, "Capacitor bulging")
	require.NoError(t, err)
	done, err := env.dispatch.Complete(ctx, id, dto.CompleteJobDTO{WorkPerformed: strPtr("Replaced capacitor"), PartsUsed: strPtr("45/5 MFD capacitor")})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	detail, err := env.intake.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", detail.Status)
	require.NotNil(t, detail.Technician)
	assert.Equal(t, "Mike Smith", detail.Technician.Name)
	require.NotNil(t, detail.ServiceRecord)
	assert.Equal(t, "Replaced capacitor", detail.ServiceRecord.WorkPerformed)
	assert.Equal(t, "45/5 MFD capacitor", detail.ServiceRecord.PartsUsed)
	assert.Equal(t, "Capacitor bulging", *detail.Notes)

	jobs, err = env.dispatch.ListJobs(ctx, 1, dto.JobFilterDTO{})
	require.NoError(t, err)
	assert.Empty(t, jobs, "completed jobs drop off the default list")

	assert.Equal(t, []string{events.JobScheduled, events.JobStarted, events.JobCompleted}, env.publisher.names())
}

var completedRequestCols = []string{
	"request_id", "customer_id", "service_type_id", "service_name", "assigned_tech_id", "status",
	"priority", "source", "preferred_datetime", "scheduled_date", "scheduled_time",
	"actual_start_time", "actual_end_time", "notes", "issue_description", "created_at", "updated_at",
}

func newSQLDispatch(t *testing.T) (pgxmock.PgxPoolIface, DispatchServiceInterface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := zap.NewNop()
	svc := NewDispatchService(
		repositories.NewTxManager(mock),
		repositories.NewServiceRequestRepository(mock, logger),
		repositories.NewServiceRecordRepository(mock),
		repositories.NewTechnicianRepository(mock),
		nil,
		time.UTC,
		logger,
	)
	return mock, svc
}

func expectCompleteUpdate(mock pgxmock.PgxPoolIface, now *time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE service_requests SET status = $1, updated_at = NOW(), actual_end_time = NOW() WHERE request_id = $2 AND status = ANY($3)")).
		WithArgs("completed", uint64(7), []string{"in_progress"}).
		WillReturnRows(pgxmock.NewRows(completedRequestCols).AddRow(
			uint64(7), uint64(10), uint64(2), "AC Repair", uint64(1), "completed",
			3, "contact_form", nil, now, "14:00",
			now, now, nil, nil, now, now,
		))
}

func TestComplete_SQLCommitsRequestAndRecordTogether(t *testing.T) {
	mock, svc := newSQLDispatch(t)
	now := time.Now()

	mock.ExpectBegin()
	expectCompleteUpdate(mock, &now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO service_records")).
		WithArgs(uint64(7), uint64(10), pgxmock.AnyArg(), pgxmock.AnyArg(), "Replaced capacitor", "", "").
		WillReturnRows(pgxmock.NewRows([]string{
			"record_id", "request_id", "customer_id", "tech_id", "service_date", "work_performed", "parts_used", "tech_notes", "created_at",
		}).AddRow(uint64(50), uint64(7), uint64(10), uint64(1), &now, "Replaced capacitor", "", "", &now))
	mock.ExpectCommit()

	got, err := svc.Complete(context.Background(), 7, dto.CompleteJobDTO{WorkPerformed: strPtr("Replaced capacitor")})

	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.RecordID)
	assert.Equal(t, uint64(50), *got.RecordID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_SQLRollsBackWhenRecordInsertFails(t *testing.T) {
	mock, svc := newSQLDispatch(t)
	now := time.Now()

	mock.ExpectBegin()
	expectCompleteUpdate(mock, &now)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO service_records")).
		WithArgs(uint64(7), uint64(10), pgxmock.AnyArg(), pgxmock.AnyArg(), "Service completed", "", "").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), 7, dto.CompleteJobDTO{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
