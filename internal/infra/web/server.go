package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/infra/metrics"
	"jobboard-billing/internal/infra/redis"
	"jobboard-billing/internal/usecase"
)

// Server is the HTTP surface of the billing core. Authentication of end
// users happens upstream; this layer is guarded by a service API key, except
// the webhook route which is authenticated by its provider signature.
type Server struct {
	payUC     usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	refundUC  usecase.RefundUseCase
	webhookUC usecase.WebhookUseCase
	limiter   *redis.RateLimiter
	apiKey    string
	rateLimit int
	log       *zerolog.Logger
}

func NewServer(
	payUC usecase.PaymentUseCase,
	subUC usecase.SubscriptionUseCase,
	refundUC usecase.RefundUseCase,
	webhookUC usecase.WebhookUseCase,
	limiter *redis.RateLimiter,
	apiKey string,
	rateLimit int,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		payUC:     payUC,
		subUC:     subUC,
		refundUC:  refundUC,
		webhookUC: webhookUC,
		limiter:   limiter,
		apiKey:    apiKey,
		rateLimit: rateLimit,
		log:       logger,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	auth := BearerAuth(s.apiKey, s.log)
	createLimit := RateLimit(s.limiter, "create_payment", s.rateLimit, s.log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Get("/pricing", s.handlePricing)
			r.With(auth, createLimit).Post("/create-payment-intent", s.handleCreatePaymentIntent)
			r.With(auth).Post("/confirm-payment", s.handleConfirmPayment)
			r.With(auth).Get("/history", s.handlePaymentHistory)
			r.With(auth).Post("/refund", s.handleRefund)
		})
		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(auth)
			r.Post("/", s.handleCreateSubscription)
			r.Get("/{id}", s.handleGetSubscription)
			r.Put("/{id}/plan", s.handleUpdatePlan)
			r.Delete("/{id}", s.handleCancelSubscription)
		})
		// Signature-authenticated; no API key, raw body required.
		r.Post("/webhooks/stripe", s.handleWebhook)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return Chain(r,
		TraceID(),
		UserContext(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(30*time.Second),
	)
}
