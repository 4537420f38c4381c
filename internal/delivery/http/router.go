package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hashora/settlement-service/internal/delivery/http/handlers"
	"github.com/hashora/settlement-service/internal/delivery/http/middleware"
	"github.com/hashora/settlement-service/internal/infrastructure/metrics"
	"github.com/hashora/settlement-service/internal/ratelimit"
)

// NewRouter assembles the public surface. Order verification is on the
// general API quota; the tighter operation classes keep their own routes.
func NewRouter(
	orderHandler *handlers.OrderHandler,
	limiter *ratelimit.Limiter,
	m *metrics.SettlementMetrics) *chi.Mux {

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, ratelimit.OpAPI, m))

		r.Post("/orders", orderHandler.CreateOrder)
		r.Get("/orders", orderHandler.ListOrders)
		r.Get("/orders/{orderID}", orderHandler.GetOrder)
		r.Post("/orders/{orderID}/transaction", orderHandler.SubmitTransaction)
		r.Post("/orders/{orderID}/verify", orderHandler.VerifyOrder)
	})

	return r
}
