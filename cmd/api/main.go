package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"eventspots/config"
	authadapter "eventspots/internal/adapters/auth"
	"eventspots/internal/adapters/email"
	"eventspots/internal/adapters/gateway"
	"eventspots/internal/database"
	httpdelivery "eventspots/internal/delivery/http"
	"eventspots/internal/delivery/http/controllers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/repository/postgres"
	"eventspots/internal/services"
)

// @title EventSpots API
// @version 1.0
// @description Multi-tenant event registration: capacity allocation, waitlist promotion, payments, and check-in.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DBUrl)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	// Repositories
	schoolRepo := postgres.NewSchoolRepository(db.DB)
	adminRepo := postgres.NewAdminRepository(db.DB)
	eventRepo := postgres.NewEventRepository(db.DB)
	regRepo := postgres.NewRegistrationRepository(db.DB)
	allocRepo := postgres.NewAllocationRepository(db.DB)
	paymentRepo := postgres.NewPaymentRepository(db.DB)
	checkInRepo := postgres.NewCheckInRepository(db.DB)

	// Adapters
	tokens := authadapter.NewJWTTokens(cfg.JWTSecret)
	hasher := authadapter.NewBcryptHasher(bcrypt.DefaultCost)
	payGateway := gateway.NewYaadPay(gateway.Config{
		Terminal:  cfg.Gateway.Terminal,
		APISecret: cfg.Gateway.APISecret,
		BaseURL:   cfg.Gateway.BaseURL,
		MockMode:  cfg.Gateway.MockMode,
	})
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SESRegion,
			AccessKeyID:     cfg.Mailer.SESAccessKeyID,
			SecretAccessKey: cfg.Mailer.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	notifier := services.NewEmailNotifier(mailer, email.NewTemplateRenderer(), cfg.Mailer.AlertsAddress)

	// Services
	timeout := cfg.ContextTimeout
	authService := services.NewAuthService(adminRepo, schoolRepo, hasher, tokens, cfg.TokenExpiry, timeout)
	eventService := services.NewEventService(eventRepo, schoolRepo, timeout)
	allocationService := services.NewAllocationService(schoolRepo, eventRepo, regRepo, allocRepo,
		payGateway, notifier, cfg.BaseURL, timeout)
	registrationService := services.NewRegistrationAdminService(eventRepo, regRepo, allocRepo,
		notifier, cfg.BaseURL, timeout)
	promotionService := services.NewPromotionService(eventRepo, regRepo, allocRepo, notifier, timeout)
	paymentService := services.NewPaymentService(paymentRepo, regRepo, eventRepo, notifier, timeout)
	checkInService := services.NewCheckInService(eventRepo, regRepo, checkInRepo, timeout)

	// HTTP
	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth:         controllers.NewAuthController(logger, authService),
		Events:       controllers.NewEventController(logger, eventService, cfg.BaseURL),
		Public:       controllers.NewPublicController(logger, eventService, allocationService),
		Registration: controllers.NewRegistrationController(logger, registrationService, promotionService),
		Payments:     controllers.NewPaymentController(logger, paymentService, payGateway),
		CheckIn:      controllers.NewCheckInController(logger, checkInService),
	}, tokens, logger)

	handler := middleware.CORS(cfg.AllowedOrigins,
		middleware.MetricsMiddleware(
			middleware.LoggingMiddleware(logger, mux)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
