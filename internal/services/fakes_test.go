package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"service-dispatch/internal/entities"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/eventbus"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memStore backs the in-memory repositories. memTxManager snapshots it so a
// failed transaction leaves it untouched.
type memStore struct {
	mu        sync.Mutex
	nextID    uint64
	clock     time.Time
	customers map[uint64]entities.Customer
	requests  map[uint64]entities.ServiceRequest
	records   map[uint64]entities.ServiceRecord
	techs     map[uint64]entities.Technician
	types     []entities.ServiceType
	equipment []entities.Equipment
	sessions  map[uuid.UUID]entities.ChatSession
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    100,
		clock:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		customers: map[uint64]entities.Customer{},
		requests:  map[uint64]entities.ServiceRequest{},
		records:   map[uint64]entities.ServiceRecord{},
		techs:     map[uint64]entities.Technician{},
		sessions:  map[uuid.UUID]entities.ChatSession{},
	}
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// tick advances the store clock so successive writes get increasing timestamps.
func (s *memStore) tick() *time.Time {
	s.clock = s.clock.Add(time.Minute)
	t := s.clock
	return &t
}

type memSnapshot struct {
	nextID    uint64
	customers map[uint64]entities.Customer
	requests  map[uint64]entities.ServiceRequest
	records   map[uint64]entities.ServiceRecord
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		nextID:    s.nextID,
		customers: make(map[uint64]entities.Customer, len(s.customers)),
		requests:  make(map[uint64]entities.ServiceRequest, len(s.requests)),
		records:   make(map[uint64]entities.ServiceRecord, len(s.records)),
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	for k, v := range s.records {
		snap.records[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.customers = snap.customers
	s.requests = snap.requests
	s.records = snap.records
}

type memTxManager struct {
	store     *memStore
	rollbacks int
}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		m.rollbacks++
		return err
	}
	return nil
}

// ---- customers

type memCustomerRepo struct {
	store *memStore
	err   error
}

func (r *memCustomerRepo) FindOrCreateByPhone(_ context.Context, _ pgx.Tx, c entities.Customer) (*entities.Customer, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, existing := range r.store.customers {
		if existing.Phone == c.Phone {
			if !existing.Email.Valid && c.Email.Valid {
				existing.Email = c.Email
				r.store.customers[id] = existing
			}
			return &existing, nil
		}
	}
	c.ID = r.store.id()
	c.CreatedAt = r.store.tick()
	r.store.customers[c.ID] = c
	return &c, nil
}

func (r *memCustomerRepo) FindByID(_ context.Context, id uint64) (*entities.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.customers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

// ---- service requests

type memRequestRepo struct {
	store *memStore
}

func (r *memRequestRepo) Create(_ context.Context, _ pgx.Tx, req entities.ServiceRequest) (*entities.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req.ID = r.store.id()
	now := r.store.tick()
	req.CreatedAt, req.UpdatedAt = now, now
	r.store.requests[req.ID] = req
	return &req, nil
}

func (r *memRequestRepo) FindByID(_ context.Context, id uint64) (*entities.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &req, nil
}

func (r *memRequestRepo) FindDetail(_ context.Context, id uint64) (*entities.RequestDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	d := &entities.RequestDetail{Request: req, Customer: r.store.customers[req.CustomerID]}
	if req.ServiceTypeID.Valid {
		for i := range r.store.types {
			if r.store.types[i].ID == req.ServiceTypeID.Uint64 {
				st := r.store.types[i]
				d.ServiceType = &st
			}
		}
	}
	if req.AssignedTechID.Valid {
		if t, ok := r.store.techs[req.AssignedTechID.Uint64]; ok {
			d.Technician = &t
		}
	}
	return d, nil
}

func appendNote(notes null.String, note, marker string) null.String {
	if !notes.Valid || notes.String == "" {
		return null.StringFrom(note)
	}
	return null.StringFrom(notes.String + marker + note)
}

func (r *memRequestRepo) Transition(_ context.Context, _ pgx.Tx, id uint64, p repositories.TransitionParams) (*entities.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	to, err := entities.Transition(req.Status, p.Action)
	if err != nil {
		return nil, &entities.TransitionError{RequestID: id, From: req.Status, Action: p.Action}
	}
	req.Status = to
	req.UpdatedAt = r.store.tick()
	switch p.Action {
	case entities.ActionSchedule:
		date := p.ScheduledDate
		req.AssignedTechID = null.Uint64From(p.TechID)
		req.ScheduledDate = &date
		req.ScheduledTime = null.StringFrom(p.ScheduledTime)
		if p.Priority.Valid {
			req.Priority = p.Priority.Int
		}
	case entities.ActionStart:
		req.ActualStartTime = r.store.tick()
	case entities.ActionComplete:
		req.ActualEndTime = r.store.tick()
	}
	if p.Note != "" {
		req.Notes = appendNote(req.Notes, p.Note, p.NoteMarker)
	}
	r.store.requests[id] = req
	return &req, nil
}

func (r *memRequestRepo) AppendNotes(_ context.Context, id uint64, note, marker string) (*entities.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	req.Notes = appendNote(req.Notes, note, marker)
	r.store.requests[id] = req
	return &req, nil
}

func sameDay(a *time.Time, b time.Time) bool {
	return a != nil && a.Format("2006-01-02") == b.Format("2006-01-02")
}

func statusIn(s entities.RequestStatus, list []entities.RequestStatus) bool {
	for _, l := range list {
		if s == l {
			return true
		}
	}
	return false
}

func (r *memRequestRepo) ListJobs(_ context.Context, f repositories.JobFilter) ([]entities.JobView, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	jobs := make([]entities.JobView, 0)
	for _, req := range r.store.requests {
		if req.AssignedTechID.Uint64 != f.TechID || !sameDay(req.ScheduledDate, f.Date) || !statusIn(req.Status, f.Statuses) {
			continue
		}
		j := entities.JobView{Request: req, Customer: r.store.customers[req.CustomerID]}
		for _, e := range r.store.equipment {
			if e.CustomerID == req.CustomerID {
				j.Equipment = append(j.Equipment, e)
			}
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool {
		ja, jb := jobs[a].Request, jobs[b].Request
		if ja.ScheduledTime.String != jb.ScheduledTime.String {
			return ja.ScheduledTime.String < jb.ScheduledTime.String
		}
		if ja.Priority != jb.Priority {
			return ja.Priority > jb.Priority
		}
		return ja.ID < jb.ID
	})
	return jobs, nil
}

func (r *memRequestRepo) ListSchedule(_ context.Context, techID uint64, from, to time.Time, statuses []entities.RequestStatus) ([]entities.ScheduleEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.ScheduleEntry, 0)
	for _, req := range r.store.requests {
		if req.AssignedTechID.Uint64 != techID || req.ScheduledDate == nil || !statusIn(req.Status, statuses) {
			continue
		}
		if req.ScheduledDate.Before(from) || req.ScheduledDate.After(to) {
			continue
		}
		c := r.store.customers[req.CustomerID]
		out = append(out, entities.ScheduleEntry{
			RequestID:     req.ID,
			Status:        req.Status,
			Priority:      req.Priority,
			ScheduledDate: req.ScheduledDate,
			ScheduledTime: req.ScheduledTime,
			CustomerName:  c.Name,
			Address:       c.Address,
			City:          c.City,
			ServiceName:   req.ServiceName,
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].ScheduledDate.Equal(*out[b].ScheduledDate) {
			return out[a].ScheduledDate.Before(*out[b].ScheduledDate)
		}
		return out[a].ScheduledTime.String < out[b].ScheduledTime.String
	})
	return out, nil
}

// ---- service records

type memRecordRepo struct {
	store *memStore
	err   error
}

func (r *memRecordRepo) Create(_ context.Context, _ pgx.Tx, rec entities.ServiceRecord) (*entities.ServiceRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.records[rec.RequestID]; exists {
		return nil, apperrors.ErrConflict
	}
	rec.ID = r.store.id()
	rec.CreatedAt = r.store.tick()
	r.store.records[rec.RequestID] = rec
	return &rec, nil
}

func (r *memRecordRepo) FindByRequestID(_ context.Context, requestID uint64) (*entities.ServiceRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.records[requestID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rec, nil
}

// ---- technicians

type memTechRepo struct {
	store *memStore
	calls int
}

func (r *memTechRepo) find(match func(entities.Technician) bool) (*entities.Technician, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.calls++
	for _, t := range r.store.techs {
		if match(t) {
			return &t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memTechRepo) FindByID(_ context.Context, id uint64) (*entities.Technician, error) {
	return r.find(func(t entities.Technician) bool { return t.ID == id })
}

func (r *memTechRepo) FindByPhone(_ context.Context, phone string) (*entities.Technician, error) {
	return r.find(func(t entities.Technician) bool { return utils.NormalizePhone(t.Phone) == phone })
}

func (r *memTechRepo) FindByName(_ context.Context, name string) (*entities.Technician, error) {
	return r.find(func(t entities.Technician) bool { return strings.EqualFold(t.Name, name) })
}

// ---- service types

type memServiceTypeRepo struct {
	store *memStore
	calls int
	err   error
}

func (r *memServiceTypeRepo) List(_ context.Context) ([]entities.ServiceType, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]entities.ServiceType(nil), r.store.types...), nil
}

// ---- chat

type memChatRepo struct {
	store *memStore
}

func (r *memChatRepo) CreateSession(_ context.Context, id uuid.UUID, customerID uint64) (*entities.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s := entities.ChatSession{ID: id, CustomerID: customerID, StartedAt: *r.store.tick(), Messages: []entities.ChatMessage{}}
	r.store.sessions[id] = s
	return &s, nil
}

func (r *memChatRepo) FindSession(_ context.Context, id uuid.UUID) (*entities.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *memChatRepo) AppendMessage(_ context.Context, id uuid.UUID, sender entities.ChatSender, message string) (*entities.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	m := entities.ChatMessage{Sender: sender, Message: message, Timestamp: *r.store.tick()}
	s.Messages = append(s.Messages, m)
	r.store.sessions[id] = s
	return &m, nil
}

func (r *memChatRepo) ListMessages(_ context.Context, id uuid.UUID) ([]entities.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]entities.ChatMessage{}, r.store.sessions[id].Messages...), nil
}

// ---- cache

type memCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemCache() *memCache {
	return &memCache{values: map[string]string{}}
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, _ := value.(string)
	c.values[key] = s
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("not supported")
}

func (c *memCache) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("not supported")
}

// ---- notifier and publisher

type sentNotification struct {
	to      []string
	subject string
	body    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to []string, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{to: to, subject: subject, body: body})
	return n.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *fakePublisher) Publish(_ context.Context, e eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name()
	}
	return out
}
