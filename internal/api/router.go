// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credit-approval/internal/common/logger"
)

// NewRouter builds the HTTP surface: the five loan operations plus health and
// metrics endpoints.
func NewRouter(h *Handler, log logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", h.handleRegister)
	r.Post("/check-eligibility", h.handleCheckEligibility)
	r.Post("/create-loan", h.handleCreateLoan)
	r.Get("/view-loan/{loanID}", h.handleViewLoan)
	r.Get("/view-loans/{customerID}", h.handleViewLoansByCustomer)

	return r
}
