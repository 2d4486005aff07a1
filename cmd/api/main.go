package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-portal/internal/app"
	"github.com/jwalitptl/clinic-portal/internal/config"
	"github.com/jwalitptl/clinic-portal/internal/email"
	appointmentHandler "github.com/jwalitptl/clinic-portal/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-portal/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/clinic-portal/internal/handler/booking"
	directoryHandler "github.com/jwalitptl/clinic-portal/internal/handler/directory"
	"github.com/jwalitptl/clinic-portal/internal/handler/health"
	notificationHandler "github.com/jwalitptl/clinic-portal/internal/handler/notification"
	prescriptionHandler "github.com/jwalitptl/clinic-portal/internal/handler/prescription"
	profileHandler "github.com/jwalitptl/clinic-portal/internal/handler/profile"
	promHandler "github.com/jwalitptl/clinic-portal/internal/handler/prometheus"
	scheduleHandler "github.com/jwalitptl/clinic-portal/internal/handler/schedule"
	userHandler "github.com/jwalitptl/clinic-portal/internal/handler/user"
	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/router"
	appointmentService "github.com/jwalitptl/clinic-portal/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-portal/internal/service/auth"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	bookingService "github.com/jwalitptl/clinic-portal/internal/service/booking"
	directoryService "github.com/jwalitptl/clinic-portal/internal/service/directory"
	"github.com/jwalitptl/clinic-portal/internal/service/identity"
	notificationService "github.com/jwalitptl/clinic-portal/internal/service/notification"
	prescriptionService "github.com/jwalitptl/clinic-portal/internal/service/prescription"
	"github.com/jwalitptl/clinic-portal/internal/service/schedule"
	userService "github.com/jwalitptl/clinic-portal/internal/service/user"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/logger"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

const maxBodyBytes = 1 << 20

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	base := logger.New(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Pretty})
	lg := &base

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, reg)

	ctx := context.Background()
	kv, closeKV, err := app.NewStore(ctx, cfg.Session, cfg.Redis, lg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer func() {
		if err := closeKV(); err != nil {
			log.Error().Err(err).Msg("failed to close session store")
		}
	}()

	backend := app.NewBackend(cfg.Backend, cfg.Directory, m, lg)
	sessions := session.NewStore(kv, cfg.Session.TTL, m, logger.Component(lg, "session"))
	v := validator.New()
	if err := middleware.SetupValidation(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	// Services
	aggregator := availability.NewService(availability.Config{
		Mode:   availability.Mode(cfg.Booking.Aggregation),
		FanOut: cfg.Booking.FanOut,
	}, m, logger.Component(lg, "availability"))

	authSvc := authService.NewService(func(t string) authService.Backend { return backend.For(t) }, sessions, logger.Component(lg, "auth"))
	identitySvc := identity.NewService(func(t string) identity.Backend { return backend.For(t) }, sessions, v, logger.Component(lg, "identity"))
	directorySvc := directoryService.NewService(func(t string) directoryService.Backend { return backend.For(t) }, aggregator, sessions, logger.Component(lg, "directory"))
	appointmentSvc := appointmentService.NewService(func(t string) appointmentService.Backend { return backend.For(t) }, sessions, logger.Component(lg, "appointment"))
	notificationSvc := notificationService.NewService(func(t string) notificationService.Backend { return backend.For(t) }, sessions, logger.Component(lg, "notification"))
	prescriptionSvc := prescriptionService.NewService(func(t string) prescriptionService.Backend { return backend.For(t) }, sessions, logger.Component(lg, "prescription"))
	scheduleSvc := schedule.NewService(func(t string) schedule.Backend { return backend.For(t) }, sessions, logger.Component(lg, "schedule"))
	userSvc := userService.NewService(func(t string) userService.Backend { return backend.For(t) }, sessions, v, logger.Component(lg, "user"))

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger.Component(lg, "email"))

	bookingLog := logger.Component(lg, "booking")
	bookingSvc := bookingService.NewService(bookingService.Deps{
		Store:        bookingService.NewStore(kv, cfg.Booking.WizardTTL),
		APIFor:       func(t string) bookingService.API { return backend.For(t) },
		Aggregator:   aggregator,
		Submitter:    bookingService.NewSubmitter(cfg.Booking.SendPatientID, m, bookingLog),
		Sessions:     sessions,
		Appointments: identitySvc,
		Notifier:     email.NewBookingNotifier(mailer),
		Logger:       bookingLog,
	})

	// Handlers
	var breaker health.BreakerState
	if backend.Breaker != nil {
		breaker = backend.Breaker
	}
	handlers := router.Handlers{
		Health:       health.NewHandler(kv, breaker, promHandler.Handler(reg)),
		Auth:         authHandler.NewHandler(authSvc, authHandler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}),
		User:         userHandler.NewHandler(userSvc),
		Directory:    directoryHandler.NewHandler(directorySvc),
		Booking:      bookingHandler.NewHandler(bookingSvc),
		Profile:      profileHandler.NewHandler(identitySvc),
		Appointment:  appointmentHandler.NewHandler(appointmentSvc),
		Notification: notificationHandler.NewHandler(notificationSvc),
		Prescription: prescriptionHandler.NewHandler(prescriptionSvc),
		Schedule:     scheduleHandler.NewHandler(scheduleSvc),
	}

	routerCfg := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   maxBodyBytes,
		CORSConfig:     middleware.DefaultCORSConfig(),
		Security:       middleware.DefaultSecurityConfig(),
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		routerCfg.CORSConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	routerCfg.Security.HSTS = cfg.Session.CookieSecure
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RPS)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(middleware.NewSessionMiddleware(sessions, cfg.Session.CookieName), handlers, m, routerCfg)
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("backend", cfg.Backend.BaseURL).Msg("portal listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
