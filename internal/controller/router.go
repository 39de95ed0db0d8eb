package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/infrastructure/config"
	"github.com/growshare/marketplace/internal/infrastructure/observability"
	customMW "github.com/growshare/marketplace/internal/middleware"
	"github.com/growshare/marketplace/internal/providers"
	"github.com/growshare/marketplace/internal/repository/postgres"
	"github.com/growshare/marketplace/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool                *pgxpool.Pool
	RedisClient         *redis.Client
	ListingRepo         listing.Repository
	NotificationRepo    notification.Repository
	TransactableService *service.TransactableService
	PaymentService      *service.PaymentService
	ProviderFactory     *providers.Factory
	IdempotencyRepo     *postgres.IdempotencyRepository
	Metrics             *observability.Metrics
	ServerConfig        config.ServerConfig
	AuthConfig          config.AuthConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Idempotency-Replayed"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))
	if deps.ServerConfig.RateLimitPerMin > 0 {
		r.Use(customMW.RateLimit(deps.ServerConfig.RateLimitPerMin))
	}

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	listingH := NewListingController(deps.ListingRepo)
	transactableH := NewTransactableController(deps.TransactableService)
	paymentH := NewPaymentController(deps.PaymentService)
	notificationH := NewNotificationController(deps.NotificationRepo)
	webhookH := NewWebhookController(deps.PaymentService, deps.ProviderFactory)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Provider callbacks authenticate by signature, not by bearer token.
	r.Post("/webhooks/payments/{provider}", webhookH.HandlePaymentWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.AuthConfig.JWTSecret))

		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		// Listings
		r.Post("/listings", listingH.Create)
		r.Get("/listings/{id}", listingH.Get)

		// Bookings, rentals, orders
		r.With(idempotencyMW).Post("/bookings", transactableH.CreateBooking)
		r.With(idempotencyMW).Post("/rentals", transactableH.CreateRental)
		r.With(idempotencyMW).Post("/orders", transactableH.CreateOrder)

		// Lifecycle
		r.Get("/transactables", transactableH.List)
		r.Get("/transactables/{id}", transactableH.Get)
		r.Post("/transactables/{id}/transition", transactableH.Transition)

		// Payments
		r.With(idempotencyMW).Post("/transactables/{id}/payment", paymentH.InitiatePayment)
		r.Get("/transactables/{id}/payment", paymentH.GetPayment)
		r.With(idempotencyMW).Post("/transactables/{id}/refund", paymentH.Refund)

		// Notifications
		r.Get("/notifications", notificationH.List)
		r.Post("/notifications/{id}/read", notificationH.MarkRead)
	})

	return r
}
