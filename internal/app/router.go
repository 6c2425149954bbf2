package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"log/slog"

	"github.com/crossbooks/crossbooks/internal/billing"
	"github.com/crossbooks/crossbooks/internal/company"
	"github.com/crossbooks/crossbooks/internal/fulfillment"
	"github.com/crossbooks/crossbooks/internal/intercompany"
	"github.com/crossbooks/crossbooks/internal/ledger"
	"github.com/crossbooks/crossbooks/internal/observability"
	"github.com/crossbooks/crossbooks/internal/orders"
	"github.com/crossbooks/crossbooks/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	CompanyHandler      *company.Handler
	LedgerHandler       *ledger.Handler
	OrdersHandler       *orders.Handler
	BillingHandler      *billing.Handler
	FulfillmentHandler  *fulfillment.Handler
	IntercompanyHandler *intercompany.Handler
	JobsHandler         *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.CompanyHandler != nil {
			params.CompanyHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(r)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(r)
		}
		if params.FulfillmentHandler != nil {
			params.FulfillmentHandler.MountRoutes(r)
		}
		if params.IntercompanyHandler != nil {
			params.IntercompanyHandler.MountRoutes(r)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
