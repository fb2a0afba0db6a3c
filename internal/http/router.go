package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/apguard/apguard/internal/http/auth"
	"github.com/apguard/apguard/internal/http/evaluation"
	"github.com/apguard/apguard/internal/http/invoice"
	"github.com/apguard/apguard/internal/http/purchaseorder"
	"github.com/apguard/apguard/internal/http/workflow"
)

func New(
	invoicesV1 *invoice.Handler,
	ordersV1 *purchaseorder.Handler,
	evaluationsV1 *evaluation.Handler,
	workflowsV1 *workflow.Handler,
	jwtSecret string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Approver-ID"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/invoices", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			invoicesV1.Routes(r)
		})

		r.Route("/purchase-orders", ordersV1.Routes)

		r.Route("/evaluations", evaluationsV1.Routes)

		r.Route("/workflows", func(r chi.Router) {
			r.Use(auth.Middleware(jwtSecret))
			workflowsV1.Routes(r)
		})
	})

	return router
}
