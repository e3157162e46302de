package services

import (
	"time"

	"service-dispatch/internal/entities"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"
)

// fixedNow is 15:00 UTC on 2024-05-01.
var fixedNow = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *memStore
	tx        *memTxManager
	customers *memCustomerRepo
	requests  *memRequestRepo
	records   *memRecordRepo
	techs     *memTechRepo
	types     *memServiceTypeRepo
	chats     *memChatRepo
	cache     *memCache
	notifier  *fakeNotifier
	publisher *fakePublisher

	intake   *IntakeService
	dispatch *DispatchService
	chat     *ChatService
	tech     *TechnicianService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	store.techs[1] = entities.Technician{ID: 1, Name: "Mike Smith", Phone: "(555) 000-1111", Status: "available", Specialization: null.StringFrom("HVAC")}
	store.types = []entities.ServiceType{
		{ID: 1, Name: "AC Repair", BasePrice: 89, EstimatedDurationMinutes: 60},
		{ID: 2, Name: "Furnace Tune-Up", BasePrice: 129, EstimatedDurationMinutes: 90},
	}

	env := &testEnv{
		store:     store,
		tx:        &memTxManager{store: store},
		customers: &memCustomerRepo{store: store},
		requests:  &memRequestRepo{store: store},
		records:   &memRecordRepo{store: store},
		techs:     &memTechRepo{store: store},
		types:     &memServiceTypeRepo{store: store},
		chats:     &memChatRepo{store: store},
		cache:     newMemCache(),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	logger := zap.NewNop()
	now := func() time.Time { return fixedNow }

	env.intake = NewIntakeService(env.tx, env.customers, env.requests, env.records, env.types, env.cache,
		env.notifier, time.Minute, time.UTC, logger).(*IntakeService)
	env.intake.now = now

	env.dispatch = NewDispatchService(env.tx, env.requests, env.records, env.techs, env.publisher, time.UTC, logger).(*DispatchService)
	env.dispatch.now = now

	env.chat = NewChatService(env.customers, env.chats, NewKeywordResponder(), logger).(*ChatService)
	env.tech = NewTechnicianService(env.techs, env.cache, time.Minute, logger).(*TechnicianService)
	return env
}

// seedRequest stores a request directly in the given state.
func (e *testEnv) seedRequest(req entities.ServiceRequest) uint64 {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if req.CustomerID == 0 {
		c := entities.Customer{ID: e.store.id(), Name: "Jane Doe", FirstName: "Jane", LastName: "Doe", Phone: "5551234"}
		e.store.customers[c.ID] = c
		req.CustomerID = c.ID
	}
	if req.Priority == 0 {
		req.Priority = entities.PriorityDefault
	}
	if req.ServiceName == "" {
		req.ServiceName = "AC Repair"
	}
	req.ID = e.store.id()
	e.store.requests[req.ID] = req
	return req.ID
}

func datePtr2024(day int) *time.Time {
	t := time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC)
	return &t
}
