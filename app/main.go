package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"service-dispatch/internal/repositories"
	"service-dispatch/internal/routes"
	"service-dispatch/internal/services"
	"service-dispatch/migrations"
	"service-dispatch/pkg/config"
	"service-dispatch/pkg/database/postgresql"
	"service-dispatch/pkg/eventbus"
	apperrors "service-dispatch/pkg/errors"
	applogger "service-dispatch/pkg/logger"
	"service-dispatch/pkg/mailer"
	appmiddleware "service-dispatch/pkg/middleware"
	"service-dispatch/pkg/telegram"
	"service-dispatch/pkg/utils"
	"service-dispatch/pkg/validation"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. storage
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.RunMigrations {
		results, err := postgresql.Migrate(ctx, cfg.Postgres.DSN, migrations.FS)
		if err != nil {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied", zap.Int("count", len(results)))
	}

	var cache repositories.CacheRepositoryInterface
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		// Redis only backs caches and rate limits, so the server starts without it.
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caching degraded", zap.String("address", cfg.Redis.Address), zap.Error(err))
		}
		cache = repositories.NewRedisCacheRepository(redisClient, "dispatch")
	}

	// 2. notifications
	notifier := buildNotifier(cfg, logger)
	bus := eventbus.New(logger)

	// 3. http
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	ipExtractor, err := appmiddleware.IPExtractor(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	e.IPExtractor = ipExtractor

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Internal server error", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestID())
	e.Use(appmiddleware.InjectLogger(logger))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))

	routes.InitRouter(e, routes.Deps{
		DB:       dbConn,
		Cache:    cache,
		Notifier: notifier,
		Bus:      bus,
		Config:   cfg,
		Logger:   logger,
	})

	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	// in-flight notifications finish before the pool closes
	if err := bus.Wait(shutdownCtx); err != nil {
		logger.Warn("event listeners still running at shutdown", zap.Error(err))
	}
}

// buildNotifier wires every configured channel; with none configured, alerts go to the log.
func buildNotifier(cfg *config.Config, logger *zap.Logger) services.Notifier {
	var channels []services.Notifier
	if cfg.Mail.Enabled() {
		channels = append(channels, services.NewEmailNotifier(mailer.NewSMTPMailer(cfg.Mail), cfg.Mail.NotifyTo))
	}
	if cfg.Telegram.Enabled() {
		channels = append(channels, services.NewTelegramNotifier(telegram.NewService(cfg.Telegram.BotToken), cfg.Telegram.ChatID))
	}

	switch len(channels) {
	case 0:
		logger.Warn("no notification channel configured, office alerts are logged only")
		return services.NewLogNotifier(logger)
	case 1:
		return channels[0]
	default:
		return services.NewMultiNotifier(logger, channels...)
	}
}
