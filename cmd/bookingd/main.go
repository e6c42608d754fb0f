package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/config"
	httptransport "github.com/example/resource-booking/internal/http"
	"github.com/example/resource-booking/internal/notification"
	"github.com/example/resource-booking/internal/notification/amqpsender"
	"github.com/example/resource-booking/internal/persistence/sqlite"
	"github.com/example/resource-booking/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	location, err := cfg.BusinessLocation()
	if err != nil {
		logger.Error("failed to resolve business timezone", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	bookingRepo := sqlite.NewBookingRepository(db)
	notificationRepo := sqlite.NewScheduledNotificationRepository(db)
	logRepo := sqlite.NewNotificationLogRepository(db)
	preferenceRepo := sqlite.NewPreferenceRepository(db)

	capacity := scheduler.NewDailyCapacity(cfg.DailyCap, location)
	capacity.KindCaps = cfg.KindCaps

	bookingService, err := application.NewBookingService(application.BookingServiceConfig{
		Bookings:      bookingRepo,
		Notifications: notificationRepo,
		Capacity:      capacity,
		Location:      location,
		IDGenerator:   idGenerator,
		Now:           now,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to build booking service", "error", err)
		os.Exit(1)
	}
	preferenceService := application.NewPreferenceService(preferenceRepo, now, logger)
	notificationService := application.NewNotificationService(logRepo, logger)

	sender, closeSender, err := buildSender(cfg, idGenerator, logger)
	if err != nil {
		logger.Error("failed to connect notification sender", "error", err)
		os.Exit(1)
	}
	defer closeSender()

	dispatcher, err := notification.NewDispatcher(notification.DispatcherConfig{
		Repository:  notificationRepo,
		Logs:        logRepo,
		Preferences: preferenceRepo,
		Sender:      sender,
		IDGenerator: idGenerator,
		Now:         now,
		Location:    location,
		Interval:    cfg.DispatchInterval,
		BatchSize:   cfg.DispatchBatch,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to build dispatcher", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dispatcher stopped", "error", err)
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:      httptransport.NewBookingHandler(bookingService, location, logger),
		Preferences:   httptransport.NewPreferenceHandler(preferenceService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Middleware: []httptransport.Middleware{
			httptransport.RequestLogger(logger),
			httptransport.RequirePrincipal(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildSender connects the RabbitMQ sender when an AMQP URL is configured and
// falls back to logged deliveries otherwise.
func buildSender(cfg config.Config, idGenerator func() string, logger *slog.Logger) (notification.Sender, func(), error) {
	if cfg.AMQPURL == "" {
		logger.Info("no AMQP URL configured, notifications will be logged only")
		return notification.NewLogSender(logger), func() {}, nil
	}

	sender, err := amqpsender.Dial(cfg.AMQPURL, cfg.AMQPQueue, idGenerator)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected notification sender", "queue", cfg.AMQPQueue)
	return sender, func() {
		if cerr := sender.Close(); cerr != nil {
			logger.Error("failed to close notification sender", "error", cerr)
		}
	}, nil
}
