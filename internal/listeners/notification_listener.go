package listeners

import (
	"context"
	"fmt"
	"html"
	"strings"

	"service-dispatch/internal/entities"
	"service-dispatch/internal/events"
	"service-dispatch/internal/repositories"
	"service-dispatch/internal/services"
	"service-dispatch/pkg/eventbus"

	"go.uber.org/zap"
)

// JobNotificationListener tells the office about lifecycle changes. A failed
// notification is logged and never affects the job itself.
type JobNotificationListener struct {
	notifier     services.Notifier
	customerRepo repositories.CustomerRepositoryInterface
	techRepo     repositories.TechnicianRepositoryInterface
	logger       *zap.Logger
}

func NewJobNotificationListener(
	notifier services.Notifier,
	customerRepo repositories.CustomerRepositoryInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	logger *zap.Logger,
) *JobNotificationListener {
	return &JobNotificationListener{
		notifier:     notifier,
		customerRepo: customerRepo,
		techRepo:     techRepo,
		logger:       logger,
	}
}

func (l *JobNotificationListener) Register(bus *eventbus.Bus) {
	for _, name := range []string{events.JobScheduled, events.JobStarted, events.JobCompleted, events.JobCancelled} {
		bus.Subscribe(name, l.Handle)
	}
	l.logger.Info("JobNotificationListener subscribed to job lifecycle events")
}

// Handle is the bus listener; it always returns nil after logging.
func (l *JobNotificationListener) Handle(ctx context.Context, event eventbus.Event) error {
	subject, body, ok := l.render(ctx, event)
	if !ok {
		return nil
	}
	if err := l.notifier.Send(ctx, nil, subject, body); err != nil {
		l.logger.Warn("job notification not delivered", zap.String("event", event.Name()), zap.Error(err))
	}
	return nil
}

func (l *JobNotificationListener) render(ctx context.Context, event eventbus.Event) (string, string, bool) {
	var req entities.ServiceRequest
	var headline string
	var extra []string

	switch e := event.(type) {
	case events.JobScheduledEvent:
		req = e.Request
		headline = "scheduled"
		when := ""
		if req.ScheduledDate != nil {
			when = req.ScheduledDate.Format("2006-01-02")
		}
		if req.ScheduledTime.Valid {
			when += " " + req.ScheduledTime.String
		}
		extra = append(extra, row("When", when), row("Technician", l.techName(ctx, req)))
	case events.JobStartedEvent:
		req = e.Request
		headline = "started"
		extra = append(extra, row("Technician", l.techName(ctx, req)))
	case events.JobCompletedEvent:
		req = e.Request
		headline = "completed"
		extra = append(extra, row("Work performed", e.Record.WorkPerformed))
		if e.Record.PartsUsed != "" {
			extra = append(extra, row("Parts used", e.Record.PartsUsed))
		}
	case events.JobCancelledEvent:
		req = e.Request
		headline = "cancelled"
		if e.Reason != "" {
			extra = append(extra, row("Reason", e.Reason))
		}
	default:
		l.logger.Debug("ignoring event", zap.String("event", event.Name()))
		return "", "", false
	}

	subject := fmt.Sprintf("Job #%d %s - %s", req.ID, headline, req.ServiceName)

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Job #%d %s</h2>\n", req.ID, headline)
	b.WriteString(row("Customer", l.customerName(ctx, req)))
	b.WriteString(row("Service", req.ServiceName))
	for _, r := range extra {
		b.WriteString(r)
	}
	return subject, b.String(), true
}

func row(label, value string) string {
	return fmt.Sprintf("<p><strong>%s:</strong> %s</p>\n", label, html.EscapeString(value))
}

func (l *JobNotificationListener) customerName(ctx context.Context, req entities.ServiceRequest) string {
	c, err := l.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		l.logger.Debug("customer lookup for notification failed", zap.Uint64("customer_id", req.CustomerID), zap.Error(err))
		return fmt.Sprintf("#%d", req.CustomerID)
	}
	return c.Name
}

func (l *JobNotificationListener) techName(ctx context.Context, req entities.ServiceRequest) string {
	if !req.AssignedTechID.Valid {
		return "Unassigned"
	}
	t, err := l.techRepo.FindByID(ctx, req.AssignedTechID.Uint64)
	if err != nil {
		return fmt.Sprintf("#%d", req.AssignedTechID.Uint64)
	}
	return t.Name
}
