package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"service-dispatch/internal/entities"
	apperrors "service-dispatch/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const serviceRequestTable = "service_requests"

// requestColumns lists service_requests columns in scanRequest order.
func requestColumns(alias string) []string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return []string{
		p + "request_id", p + "customer_id", p + "service_type_id", p + "service_name",
		p + "assigned_tech_id", p + "status", p + "priority", p + "source",
		p + "preferred_datetime", p + "scheduled_date",
		"to_char(" + p + "scheduled_time, 'HH24:MI')",
		p + "actual_start_time", p + "actual_end_time", p + "notes", p + "issue_description",
		p + "created_at", p + "updated_at",
	}
}

func requestScanDest(req *entities.ServiceRequest, status, source *string) []interface{} {
	return []interface{}{
		&req.ID, &req.CustomerID, &req.ServiceTypeID, &req.ServiceName,
		&req.AssignedTechID, status, &req.Priority, source,
		&req.PreferredDateTime, &req.ScheduledDate,
		&req.ScheduledTime,
		&req.ActualStartTime, &req.ActualEndTime, &req.Notes, &req.IssueDescription,
		&req.CreatedAt, &req.UpdatedAt,
	}
}

func scanRequest(row pgx.Row) (*entities.ServiceRequest, error) {
	var req entities.ServiceRequest
	var status, source string
	err := row.Scan(requestScanDest(&req, &status, &source)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan service request: %w", err)
	}
	req.Status = entities.RequestStatus(status)
	req.Source = entities.RequestSource(source)
	return &req, nil
}

// TransitionParams carries the columns an action writes besides status.
type TransitionParams struct {
	Action entities.Action

	// schedule
	TechID        uint64
	ScheduledDate time.Time
	ScheduledTime string
	Priority      null.Int

	// Note is appended to the notes log in the same statement (cancel reason).
	Note       string
	NoteMarker string
}

type JobFilter struct {
	TechID   uint64
	Date     time.Time
	Statuses []entities.RequestStatus
}

type ServiceRequestRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, req entities.ServiceRequest) (*entities.ServiceRequest, error)
	FindByID(ctx context.Context, id uint64) (*entities.ServiceRequest, error)
	FindDetail(ctx context.Context, id uint64) (*entities.RequestDetail, error)
	// Transition applies p.Action atomically; the row changes only if its current
	// status is an allowed source. Returns ErrNotFound or *entities.TransitionError otherwise,
	// and ErrConflict when the row changed between the update and the status read.
	Transition(ctx context.Context, tx pgx.Tx, id uint64, p TransitionParams) (*entities.ServiceRequest, error)
	AppendNotes(ctx context.Context, id uint64, note, marker string) (*entities.ServiceRequest, error)
	ListJobs(ctx context.Context, f JobFilter) ([]entities.JobView, error)
	ListSchedule(ctx context.Context, techID uint64, from, to time.Time, statuses []entities.RequestStatus) ([]entities.ScheduleEntry, error)
}

type ServiceRequestRepository struct {
	storage DBPool
	logger  *zap.Logger
}

func NewServiceRequestRepository(storage DBPool, logger *zap.Logger) ServiceRequestRepositoryInterface {
	return &ServiceRequestRepository{storage: storage, logger: logger}
}

func (r *ServiceRequestRepository) Create(ctx context.Context, tx pgx.Tx, req entities.ServiceRequest) (*entities.ServiceRequest, error) {
	if req.Status == "" {
		req.Status = entities.StatusNew
	}
	if req.Priority == 0 {
		req.Priority = entities.PriorityDefault
	}
	if req.Source == "" {
		req.Source = entities.SourceContactForm
	}

	query, args, err := psql.Insert(serviceRequestTable).
		Columns("customer_id", "service_type_id", "service_name", "status", "priority", "source",
			"preferred_datetime", "notes", "issue_description").
		Values(req.CustomerID, req.ServiceTypeID, req.ServiceName, string(req.Status), req.Priority, string(req.Source),
			req.PreferredDateTime, req.Notes, req.IssueDescription).
		Suffix("RETURNING " + strings.Join(requestColumns(""), ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanRequest(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("insert service request: %w", err)
	}
	return created, nil
}

func (r *ServiceRequestRepository) FindByID(ctx context.Context, id uint64) (*entities.ServiceRequest, error) {
	query, args, err := psql.Select(requestColumns("")...).From(serviceRequestTable).
		Where(sq.Eq{"request_id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanRequest(r.storage.QueryRow(ctx, query, args...))
}

func (r *ServiceRequestRepository) FindDetail(ctx context.Context, id uint64) (*entities.RequestDetail, error) {
	cols := append(requestColumns("sr"),
		"c.customer_id", "c.name", "c.first_name", "c.last_name", "c.phone", "c.email",
		"c.address", "c.city", "c.state", "c.zip", "c.special_instructions", "c.created_at",
		"st.service_type_id", "st.service_name", "st.base_price::float8", "st.estimated_duration_minutes",
		"t.tech_id", "t.name", "t.phone", "t.email", "t.specialization", "t.status",
	)
	query, args, err := psql.Select(cols...).
		From(serviceRequestTable + " sr").
		Join("customers c ON sr.customer_id = c.customer_id").
		LeftJoin("service_types st ON sr.service_type_id = st.service_type_id").
		LeftJoin("technicians t ON sr.assigned_tech_id = t.tech_id").
		Where(sq.Eq{"sr.request_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var d entities.RequestDetail
	var status, source string
	var st serviceTypeRef
	var tech techRef
	dest := requestScanDest(&d.Request, &status, &source)
	dest = append(dest,
		&d.Customer.ID, &d.Customer.Name, &d.Customer.FirstName, &d.Customer.LastName, &d.Customer.Phone, &d.Customer.Email,
		&d.Customer.Address, &d.Customer.City, &d.Customer.State, &d.Customer.Zip, &d.Customer.SpecialInstructions, &d.Customer.CreatedAt,
	)
	dest = append(dest, st.dest()...)
	dest = append(dest, tech.dest()...)

	err = r.storage.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request detail: %w", err)
	}
	d.Request.Status = entities.RequestStatus(status)
	d.Request.Source = entities.RequestSource(source)
	d.ServiceType = st.entity()
	d.Technician = tech.entity()
	return &d, nil
}

func (r *ServiceRequestRepository) Transition(ctx context.Context, tx pgx.Tx, id uint64, p TransitionParams) (*entities.ServiceRequest, error) {
	to, ok := entities.TargetStatus(p.Action)
	if !ok {
		return nil, &entities.TransitionError{RequestID: id, Action: p.Action}
	}
	sources := entities.StatusStrings(entities.SourcesFor(p.Action))

	update := psql.Update(serviceRequestTable).
		Set("status", string(to)).
		Set("updated_at", sq.Expr("NOW()"))

	switch p.Action {
	case entities.ActionSchedule:
		update = update.
			Set("assigned_tech_id", p.TechID).
			Set("scheduled_date", p.ScheduledDate).
			Set("scheduled_time", sq.Expr("CAST(?::text AS time)", p.ScheduledTime))
		if p.Priority.Valid {
			update = update.Set("priority", p.Priority.Int)
		}
	case entities.ActionStart:
		update = update.Set("actual_start_time", sq.Expr("NOW()"))
	case entities.ActionComplete:
		update = update.Set("actual_end_time", sq.Expr("NOW()"))
	}
	if p.Note != "" {
		update = update.Set("notes", appendNoteExpr(p.Note, p.NoteMarker))
	}

	query, args, err := update.
		Where(sq.Eq{"request_id": id}).
		Where("status = ANY(?)", sources).
		Suffix("RETURNING " + strings.Join(requestColumns(""), ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	q := getQuerier(r.storage, tx)
	updated, err := scanRequest(q.QueryRow(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%s request %d: %w", p.Action, id, err)
	}
	return nil, r.explainMiss(ctx, q, id, p.Action)
}

// explainMiss tells a missing row apart from a row in the wrong state.
func (r *ServiceRequestRepository) explainMiss(ctx context.Context, q Querier, id uint64, action entities.Action) error {
	var current string
	err := q.QueryRow(ctx, "SELECT status FROM service_requests WHERE request_id = $1", id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Info("transition on missing request", zap.Uint64("request_id", id), zap.String("action", string(action)))
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read status of request %d: %w", id, err)
	}

	from := entities.RequestStatus(current)
	if _, err := entities.Transition(from, action); err == nil {
		// the row left the allowed states and came back between the two statements
		r.logger.Warn("transition lost a race",
			zap.Uint64("request_id", id),
			zap.String("action", string(action)),
			zap.String("status", current),
		)
		return fmt.Errorf("request %d changed during %s: %w", id, action, apperrors.ErrConflict)
	}
	r.logger.Info("transition rejected",
		zap.Uint64("request_id", id),
		zap.String("action", string(action)),
		zap.String("status", current),
	)
	return &entities.TransitionError{RequestID: id, From: from, Action: action}
}

// appendNoteExpr stores the first note bare and prefixes later ones with marker.
func appendNoteExpr(note, marker string) sq.Sqlizer {
	return sq.Expr("CASE WHEN notes IS NULL OR notes = '' THEN ?::text ELSE notes || ?::text || ?::text END", note, marker, note)
}

func (r *ServiceRequestRepository) AppendNotes(ctx context.Context, id uint64, note, marker string) (*entities.ServiceRequest, error) {
	query, args, err := psql.Update(serviceRequestTable).
		Set("notes", appendNoteExpr(note, marker)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"request_id": id}).
		Suffix("RETURNING " + strings.Join(requestColumns(""), ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanRequest(r.storage.QueryRow(ctx, query, args...))
}

// buildJobsQuery selects a technician's jobs for one day, earliest slot first and
// the higher priority first within a slot.
func buildJobsQuery(f JobFilter) (string, []interface{}, error) {
	cols := append(requestColumns("sr"),
		"c.customer_id", "c.name", "c.first_name", "c.last_name", "c.phone", "c.email",
		"c.address", "c.city", "c.state", "c.zip", "c.special_instructions", "c.created_at",
		"st.service_type_id", "st.service_name", "st.base_price::float8", "st.estimated_duration_minutes",
	)
	return psql.Select(cols...).
		From(serviceRequestTable + " sr").
		Join("customers c ON sr.customer_id = c.customer_id").
		LeftJoin("service_types st ON sr.service_type_id = st.service_type_id").
		Where(sq.Eq{"sr.assigned_tech_id": f.TechID}).
		Where(sq.Eq{"sr.scheduled_date": f.Date}).
		Where("sr.status = ANY(?)", entities.StatusStrings(f.Statuses)).
		OrderBy("sr.scheduled_time ASC", "sr.priority DESC", "sr.request_id ASC").
		ToSql()
}

func (r *ServiceRequestRepository) ListJobs(ctx context.Context, f JobFilter) ([]entities.JobView, error) {
	query, args, err := buildJobsQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]entities.JobView, 0)
	for rows.Next() {
		var j entities.JobView
		var status, source string
		var st serviceTypeRef
		dest := requestScanDest(&j.Request, &status, &source)
		dest = append(dest,
			&j.Customer.ID, &j.Customer.Name, &j.Customer.FirstName, &j.Customer.LastName, &j.Customer.Phone, &j.Customer.Email,
			&j.Customer.Address, &j.Customer.City, &j.Customer.State, &j.Customer.Zip, &j.Customer.SpecialInstructions, &j.Customer.CreatedAt,
		)
		dest = append(dest, st.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Request.Status = entities.RequestStatus(status)
		j.Request.Source = entities.RequestSource(source)
		j.ServiceType = st.entity()
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	equipment, err := r.equipmentFor(ctx, jobs)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i].Equipment = equipment[jobs[i].Customer.ID]
	}
	return jobs, nil
}

// equipmentFor loads equipment for all customers in one query instead of a
// join that would repeat job rows per appliance.
func (r *ServiceRequestRepository) equipmentFor(ctx context.Context, jobs []entities.JobView) (map[uint64][]entities.Equipment, error) {
	seen := make(map[uint64]bool, len(jobs))
	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		if !seen[j.Customer.ID] {
			seen[j.Customer.ID] = true
			ids = append(ids, int64(j.Customer.ID))
		}
	}

	query, args, err := psql.Select("equipment_id", "customer_id", "equipment_type", "brand", "model_number", "age_years", "last_service_date").
		From("equipment").
		Where("customer_id = ANY(?)", ids).
		OrderBy("customer_id", "equipment_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64][]entities.Equipment)
	for rows.Next() {
		var e entities.Equipment
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.EquipmentType, &e.Brand, &e.ModelNumber, &e.AgeYears, &e.LastServiceDate); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		out[e.CustomerID] = append(out[e.CustomerID], e)
	}
	return out, rows.Err()
}

func (r *ServiceRequestRepository) ListSchedule(ctx context.Context, techID uint64, from, to time.Time, statuses []entities.RequestStatus) ([]entities.ScheduleEntry, error) {
	query, args, err := psql.Select(
		"sr.request_id", "sr.status", "sr.priority", "sr.scheduled_date", "to_char(sr.scheduled_time, 'HH24:MI')",
		"c.name", "c.address", "c.city",
		"COALESCE(st.service_name, sr.service_name)", "st.estimated_duration_minutes",
	).
		From(serviceRequestTable+" sr").
		Join("customers c ON sr.customer_id = c.customer_id").
		LeftJoin("service_types st ON sr.service_type_id = st.service_type_id").
		Where(sq.Eq{"sr.assigned_tech_id": techID}).
		Where("sr.scheduled_date BETWEEN ? AND ?", from, to).
		Where("sr.status = ANY(?)", entities.StatusStrings(statuses)).
		OrderBy("sr.scheduled_date ASC", "sr.scheduled_time ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	entries := make([]entities.ScheduleEntry, 0)
	for rows.Next() {
		var e entities.ScheduleEntry
		var status string
		if err := rows.Scan(&e.RequestID, &status, &e.Priority, &e.ScheduledDate, &e.ScheduledTime,
			&e.CustomerName, &e.Address, &e.City, &e.ServiceName, &e.EstimatedDurationMinutes); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		e.Status = entities.RequestStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// serviceTypeRef scans the nullable side of a LEFT JOIN on service_types.
type serviceTypeRef struct {
	ID       null.Uint64
	Name     null.String
	Price    null.Float64
	Duration null.Int
}

func (s *serviceTypeRef) dest() []interface{} {
	return []interface{}{&s.ID, &s.Name, &s.Price, &s.Duration}
}

func (s *serviceTypeRef) entity() *entities.ServiceType {
	if !s.ID.Valid {
		return nil
	}
	return &entities.ServiceType{
		ID:                       s.ID.Uint64,
		Name:                     s.Name.String,
		BasePrice:                s.Price.Float64,
		EstimatedDurationMinutes: s.Duration.Int,
	}
}

type techRef struct {
	ID             null.Uint64
	Name           null.String
	Phone          null.String
	Email          null.String
	Specialization null.String
	Status         null.String
}

func (t *techRef) dest() []interface{} {
	return []interface{}{&t.ID, &t.Name, &t.Phone, &t.Email, &t.Specialization, &t.Status}
}

func (t *techRef) entity() *entities.Technician {
	if !t.ID.Valid {
		return nil
	}
	return &entities.Technician{
		ID:             t.ID.Uint64,
		Name:           t.Name.String,
		Phone:          t.Phone.String,
		Email:          t.Email,
		Specialization: t.Specialization,
		Status:         t.Status.String,
	}
}
