package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/catalog"
	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/payments"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
	"github.com/quotedeck/quotedeck/internal/proposals"
	"github.com/quotedeck/quotedeck/internal/shared"
	"github.com/quotedeck/quotedeck/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Pool            *pgxpool.Pool
	Idempotency     *shared.IdempotencyStore
	ProposalHandler *proposals.Handler
	PaymentHandler  *payments.Handler
	CustomerHandler *customers.Handler
	CatalogHandler  *catalog.Handler
	ActivityHandler *activity.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with QuoteDeck defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Error("health check failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.Idempotency != nil {
			api.Use(params.Idempotency.Middleware("api"))
		}

		params.ProposalHandler.MountRoutes(api)
		params.PaymentHandler.MountRoutes(api)
		params.CustomerHandler.MountRoutes(api)
		params.CatalogHandler.MountRoutes(api)
		params.ActivityHandler.MountRoutes(api)
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(api)
		}
	})

	return r
}
