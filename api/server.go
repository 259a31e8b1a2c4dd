/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for frontend
  4. Telemetry:  Per-route latency histogram

ROUTE GROUPS:
  /api/properties/*   Property directory
  /api/tenants/*      Tenants, rent schedules, payments, statuses
  /api/employees/*    Employees, salary schedules, payouts, statuses
  /api/commission     Global commission rate
  /api/expenses/*     Expense ledger and categories
  /api/reports/*      Derived aggregates
  /api/dashboard      Landing-page payload
  /api/demo/*         Demo dataset loaders
  /healthz            Liveness probe
  /metrics            Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/estateops/rentledger/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(telemetry)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
		})

		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.OnboardTenant)
			r.Get("/statuses", h.ListTenantStatuses)
			r.Get("/{id}", h.GetTenant)
			r.Post("/{id}/deactivate", h.DeactivateTenant)
			r.Get("/{id}/rent", h.GetRentHistory)
			r.Post("/{id}/rent", h.ChangeRent)
			r.Get("/{id}/status", h.GetTenantStatus)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Post("/{id}/payments/preview", h.PreviewPayment)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.HireEmployee)
			r.Get("/statuses", h.ListEmployeeStatuses)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/deactivate", h.DeactivateEmployee)
			r.Get("/{id}/salary", h.GetSalaryHistory)
			r.Post("/{id}/salary", h.ChangeSalary)
			r.Get("/{id}/status", h.GetEmployeeStatus)
			r.Get("/{id}/payouts", h.ListPayouts)
			r.Post("/{id}/payouts", h.PaySalary)
		})

		// Commission routes
		r.Route("/commission", func(r chi.Router) {
			r.Get("/", h.GetCommissionRate)
			r.Post("/", h.SetCommissionRate)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/funds", h.GetFundsPosition)
			r.Get("/month", h.GetMonthSnapshot)
			r.Get("/expenses", h.GetExpenseBreakdown)
			r.Get("/properties", h.GetPropertySummaries)
			r.Get("/series", h.GetMonthlySeries)
		})
		r.Get("/dashboard", h.GetDashboard)

		// Demo routes
		r.Route("/demo", func(r chi.Router) {
			r.Get("/datasets", h.ListDemoDatasets)
			r.Post("/load", h.LoadDemoDataset)
		})
	})

	// Operational endpoints
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// telemetry records per-route request latency once chi has resolved the
// route pattern.
func telemetry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveRequest(route, ww.Status(), time.Since(start))
	})
}
