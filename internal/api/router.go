package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medibook/appointment-booking/internal/appointment"
	"github.com/medibook/appointment-booking/internal/payment"
)

type RouterConfig struct {
	Booking    *appointment.Service
	Reconciler *payment.Reconciler
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Logger     *zap.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Authenticated API
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
		r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))

		r.Post("/payments/razorpay", createPaymentHandler(cfg.Reconciler, payment.GatewayRazorpay))
		r.Post("/payments/razorpay/verify", verifyRazorpayHandler(cfg.Reconciler))
		r.Post("/payments/stripe", createPaymentHandler(cfg.Reconciler, payment.GatewayStripe))
		r.Post("/payments/stripe/verify", verifyStripeHandler(cfg.Reconciler))
	})

	return r
}
