package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/growshare/marketplace/internal/bootstrap"
	"github.com/growshare/marketplace/internal/controller"
	"github.com/growshare/marketplace/internal/providers"
	"github.com/growshare/marketplace/internal/repository/postgres"
	"github.com/growshare/marketplace/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "growshare-api", "growshare")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	transactableRepo := postgres.NewTransactableRepository(app.Pool)
	listingRepo := postgres.NewListingRepository(app.Pool)
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	notificationRepo := postgres.NewNotificationRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Services ---
	providerFactory := providers.NewFactory(providers.NewMockProvider(
		app.Config.Payment.Provider,
		[]byte(app.Config.Payment.WebhookSecret),
	))
	dispatcher := service.NewDispatcher(notificationRepo, outboxRepo, nil, app.Metrics)
	transactableService := service.NewTransactableService(
		transactableRepo, listingRepo, txManager, dispatcher, app.Metrics)
	paymentService := service.NewPaymentService(
		paymentRepo, transactableRepo, outboxRepo, txManager, providerFactory,
		dispatcher, app.Metrics,
		app.Config.Payment.Provider, app.Config.Payment.ProviderTimeout)

	// --- Router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:                app.Pool,
		RedisClient:         app.Redis,
		ListingRepo:         listingRepo,
		NotificationRepo:    notificationRepo,
		TransactableService: transactableService,
		PaymentService:      paymentService,
		ProviderFactory:     providerFactory,
		IdempotencyRepo:     idempotencyRepo,
		Metrics:             app.Metrics,
		ServerConfig:        app.Config.Server,
		AuthConfig:          app.Config.Auth,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
