package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"service-dispatch/internal/dto"
	"service-dispatch/internal/entities"
	"service-dispatch/internal/repositories"
	apperrors "service-dispatch/pkg/errors"
	"service-dispatch/pkg/utils"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	serviceCatalogCacheKey = "catalog:service_types"
	receivedAtLayout       = "1/2/2006, 3:04:05 PM MST"
)

type IntakeServiceInterface interface {
	SubmitRequest(ctx context.Context, d dto.CreateBookingDTO) (*dto.BookingResultDTO, error)
	GetRequest(ctx context.Context, id uint64) (*dto.BookingDetailDTO, error)
	ListServiceTypes(ctx context.Context) ([]dto.ServiceTypeDTO, error)
}

type IntakeService struct {
	txManager       repositories.TxManagerInterface
	customerRepo    repositories.CustomerRepositoryInterface
	requestRepo     repositories.ServiceRequestRepositoryInterface
	recordRepo      repositories.ServiceRecordRepositoryInterface
	serviceTypeRepo repositories.ServiceTypeRepositoryInterface
	cache           repositories.CacheRepositoryInterface
	notifier        Notifier
	catalogTTL      time.Duration
	loc             *time.Location
	now             func() time.Time
	logger          *zap.Logger
}

// NewIntakeService builds the intake service. cache may be nil.
func NewIntakeService(
	txManager repositories.TxManagerInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	requestRepo repositories.ServiceRequestRepositoryInterface,
	recordRepo repositories.ServiceRecordRepositoryInterface,
	serviceTypeRepo repositories.ServiceTypeRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	notifier Notifier,
	catalogTTL time.Duration,
	loc *time.Location,
	logger *zap.Logger,
) IntakeServiceInterface {
	return &IntakeService{
		txManager:       txManager,
		customerRepo:    customerRepo,
		requestRepo:     requestRepo,
		recordRepo:      recordRepo,
		serviceTypeRepo: serviceTypeRepo,
		cache:           cache,
		notifier:        notifier,
		catalogTTL:      catalogTTL,
		loc:             loc,
		now:             time.Now,
		logger:          logger,
	}
}

type bookingInput struct {
	name, phone, email, service, datetime, message string
	source                                         entities.RequestSource
}

func readBooking(d dto.CreateBookingDTO) (bookingInput, error) {
	in := bookingInput{
		name:     strings.TrimSpace(d.Name),
		phone:    strings.TrimSpace(d.Phone),
		email:    strings.TrimSpace(d.Email),
		service:  strings.TrimSpace(d.Service),
		datetime: strings.TrimSpace(d.DateTime),
		message:  strings.TrimSpace(d.Message),
		source:   entities.SourceContactForm,
	}
	if d.Source == string(entities.SourceChat) {
		in.source = entities.SourceChat
	}

	const msg = "Name, phone, and service are required"
	switch {
	case in.name == "":
		return in, apperrors.NewValidationError("name", msg)
	case in.phone == "":
		return in, apperrors.NewValidationError("phone", msg)
	case in.service == "":
		return in, apperrors.NewValidationError("service", msg)
	}
	if utils.NormalizePhone(in.phone) == "" {
		return in, apperrors.NewValidationError("phone", "Phone number must contain digits")
	}
	return in, nil
}

// SubmitRequest stores the booking and notifies the office. The caller gets a
// success as long as either step worked, so a contact attempt is never dropped.
func (s *IntakeService) SubmitRequest(ctx context.Context, d dto.CreateBookingDTO) (*dto.BookingResultDTO, error) {
	in, err := readBooking(d)
	if err != nil {
		return nil, err
	}
	receivedAt := s.now()

	result := &dto.BookingResultDTO{}
	created, storeErr := s.store(ctx, in)
	if storeErr == nil {
		result.Stored = true
		result.RequestID = &created.ID
		result.CustomerID = &created.CustomerID
	}

	subject := "New Booking Request - " + in.service
	notifyErr := s.notifier.Send(ctx, nil, subject, bookingEmailHTML(in, receivedAt.In(s.loc)))
	result.Notified = notifyErr == nil

	switch {
	case storeErr != nil && notifyErr != nil:
		s.logger.Error("booking lost: storage and notification both failed",
			zap.String("phone", in.phone),
			zap.NamedError("store_error", storeErr),
			zap.NamedError("notify_error", notifyErr),
		)
		return nil, fmt.Errorf("%w: booking could not be stored or forwarded", apperrors.ErrDependency)
	case storeErr != nil:
		s.logger.Error("booking not stored, office was notified",
			zap.String("phone", in.phone),
			zap.String("service", in.service),
			zap.Error(storeErr),
		)
	case notifyErr != nil:
		s.logger.Warn("PartialFailure: booking stored but notification failed",
			zap.Uint64("request_id", created.ID),
			zap.Error(notifyErr),
		)
	default:
		s.logger.Info("booking received",
			zap.Uint64("request_id", created.ID),
			zap.Uint64("customer_id", created.CustomerID),
			zap.String("source", string(in.source)),
		)
	}
	return result, nil
}

func (s *IntakeService) store(ctx context.Context, in bookingInput) (*entities.ServiceRequest, error) {
	serviceType := s.resolveServiceType(ctx, in.service)
	first, last := utils.SplitName(in.name)

	var created *entities.ServiceRequest
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		customer, err := s.customerRepo.FindOrCreateByPhone(ctx, tx, entities.Customer{
			Name:      in.name,
			FirstName: first,
			LastName:  last,
			Phone:     utils.NormalizePhone(in.phone),
			Email:     null.NewString(in.email, in.email != ""),
		})
		if err != nil {
			return err
		}

		req := entities.ServiceRequest{
			CustomerID:        customer.ID,
			ServiceName:       in.service,
			Status:            entities.StatusNew,
			Priority:          entities.PriorityDefault,
			Source:            in.source,
			PreferredDateTime: null.NewString(in.datetime, in.datetime != ""),
			IssueDescription:  null.NewString(in.message, in.message != ""),
		}
		if serviceType != nil {
			req.ServiceTypeID = null.Uint64From(serviceType.ID)
			req.ServiceName = serviceType.Name
		}

		created, err = s.requestRepo.Create(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// resolveServiceType matches the free-text service against the catalog; nil
// means the request keeps the text without a type reference.
func (s *IntakeService) resolveServiceType(ctx context.Context, service string) *entities.ServiceType {
	catalog, err := s.catalog(ctx)
	if err != nil {
		s.logger.Warn("service catalog unavailable, storing service as free text", zap.Error(err))
		return nil
	}
	for i := range catalog {
		if strings.EqualFold(catalog[i].Name, service) {
			return &catalog[i]
		}
	}
	return nil
}

func (s *IntakeService) catalog(ctx context.Context) ([]entities.ServiceType, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, serviceCatalogCacheKey)
		switch {
		case err == nil:
			var types []entities.ServiceType
			if jsonErr := json.Unmarshal([]byte(raw), &types); jsonErr == nil {
				return types, nil
			}
		case !errors.Is(err, repositories.ErrCacheMiss):
			s.logger.Debug("service catalog cache read failed", zap.Error(err))
		}
	}

	types, err := s.serviceTypeRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(types); err == nil {
			if err := s.cache.Set(ctx, serviceCatalogCacheKey, string(raw), s.catalogTTL); err != nil {
				s.logger.Debug("service catalog cache write failed", zap.Error(err))
			}
		}
	}
	return types, nil
}

func (s *IntakeService) ListServiceTypes(ctx context.Context) ([]dto.ServiceTypeDTO, error) {
	types, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ServiceTypeDTO, 0, len(types))
	for i := range types {
		out = append(out, *serviceTypeEntityToDTO(&types[i]))
	}
	return out, nil
}

func (s *IntakeService) GetRequest(ctx context.Context, id uint64) (*dto.BookingDetailDTO, error) {
	detail, err := s.requestRepo.FindDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Request.Status == entities.StatusCompleted {
		rec, err := s.recordRepo.FindByRequestID(ctx, id)
		switch {
		case err == nil:
			detail.Record = rec
		case errors.Is(err, apperrors.ErrNotFound):
			s.logger.Error("completed request has no service record", zap.Uint64("request_id", id))
		default:
			return nil, err
		}
	}
	return requestDetailToDTO(detail), nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return html.EscapeString(v)
}

func bookingEmailHTML(in bookingInput, receivedAt time.Time) string {
	var b strings.Builder
	b.WriteString("<h2>New Booking Request</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Customer:</strong> %s</p>\n", html.EscapeString(in.name))
	fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>\n", html.EscapeString(in.phone))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>\n", orDefault(in.email, "Not provided"))
	fmt.Fprintf(&b, "<p><strong>Service:</strong> %s</p>\n", html.EscapeString(in.service))
	fmt.Fprintf(&b, "<p><strong>Preferred Date/Time:</strong> %s</p>\n", orDefault(in.datetime, "Not specified"))
	b.WriteString("<p><strong>Message:</strong></p>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", orDefault(in.message, "No additional message"))
	b.WriteString("<hr>\n")
	fmt.Fprintf(&b, "<p><em>Received at: %s</em></p>\n", receivedAt.Format(receivedAtLayout))
	return b.String()
}
