package routes

import (
	"context"

	"service-dispatch/internal/controllers"
	"service-dispatch/internal/listeners"
	"service-dispatch/internal/repositories"
	"service-dispatch/internal/services"
	"service-dispatch/pkg/config"
	"service-dispatch/pkg/eventbus"
	"service-dispatch/pkg/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Database is the pool surface the router needs: queries, transactions and a health ping.
type Database interface {
	repositories.DBPool
	Ping(ctx context.Context) error
}

// Deps are the long-lived resources created once in main and shared by every handler.
// Cache and Bus may be nil.
type Deps struct {
	DB       Database
	Cache    repositories.CacheRepositoryInterface
	Notifier services.Notifier
	Bus      *eventbus.Bus
	Config   *config.Config
	Logger   *zap.Logger
}

func InitRouter(e *echo.Echo, deps Deps) {
	logger := deps.Logger
	cfg := deps.Config
	logger.Info("InitRouter: registering routes")

	api := e.Group("/api")
	loc := cfg.Business.Location()

	// --- 1. repositories
	txManager := repositories.NewTxManager(deps.DB)
	customerRepo := repositories.NewCustomerRepository(deps.DB, logger)
	requestRepo := repositories.NewServiceRequestRepository(deps.DB, logger)
	recordRepo := repositories.NewServiceRecordRepository(deps.DB)
	techRepo := repositories.NewTechnicianRepository(deps.DB)
	serviceTypeRepo := repositories.NewServiceTypeRepository(deps.DB)
	chatRepo := repositories.NewChatRepository(deps.DB)

	// --- 2. services
	var publisher services.EventPublisher
	if deps.Bus != nil {
		publisher = deps.Bus
		listeners.NewJobNotificationListener(deps.Notifier, customerRepo, techRepo, logger).Register(deps.Bus)
	}

	intakeService := services.NewIntakeService(txManager, customerRepo, requestRepo, recordRepo, serviceTypeRepo,
		deps.Cache, deps.Notifier, cfg.Business.CatalogCacheTTL, loc, logger)
	dispatchService := services.NewDispatchService(txManager, requestRepo, recordRepo, techRepo, publisher, loc, logger)
	chatService := services.NewChatService(customerRepo, chatRepo, services.NewKeywordResponder(), logger)
	techService := services.NewTechnicianService(techRepo, deps.Cache, cfg.Business.TechCacheTTL, logger)
	exportService := services.NewScheduleExportService(dispatchService, techService, logger)

	// --- 3. controllers
	bookingCtrl := controllers.NewBookingController(intakeService, logger)
	chatCtrl := controllers.NewChatController(chatService, logger)
	techCtrl := controllers.NewTechnicianController(techService, dispatchService, exportService, logger)
	dispatchCtrl := controllers.NewDispatchController(dispatchService, logger)
	healthCtrl := controllers.NewHealthController(deps.DB, logger)

	// --- 4. routers
	limit := func(scope string) echo.MiddlewareFunc {
		var counter middleware.Counter
		if deps.Cache != nil {
			counter = deps.Cache
		}
		return middleware.RateLimit(counter, middleware.RateLimitConfig{
			Scope:  scope,
			Limit:  cfg.Intake.RateLimit,
			Window: cfg.Intake.RateWindow,
		}, logger)
	}

	api.GET("/health", healthCtrl.Health)
	runBookingRouter(api, bookingCtrl, limit("bookings"))
	runChatRouter(api, chatCtrl, limit("chat"))
	runTechnicianRouter(api, techCtrl)
	runDispatchRouter(api, dispatchCtrl)

	logger.Info("InitRouter: routes registered")
}
