package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/tally/internal/http/audit"
	"github.com/MrJamesThe3rd/tally/internal/http/category"
	"github.com/MrJamesThe3rd/tally/internal/http/export"
	"github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	tallymw "github.com/MrJamesThe3rd/tally/internal/http/middleware"
	"github.com/MrJamesThe3rd/tally/internal/http/rule"
	"github.com/MrJamesThe3rd/tally/internal/http/session"
	"github.com/MrJamesThe3rd/tally/internal/http/subscription"
	"github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/http/wallet"
	lock "github.com/MrJamesThe3rd/tally/internal/session"
)

type Handlers struct {
	Session       *session.Handler
	Wallets       *wallet.Handler
	Transactions  *transaction.Handler
	Categories    *category.Handler
	Subscriptions *subscription.Handler
	Audit         *audit.Handler
	Import        *importcsv.Handler
	Rules         *rule.Handler
	Export        *export.Handler
}

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	Lock           *lock.Service
	// Cache enables Idempotency-Key handling when set.
	Cache          *redis.Client
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", tallymw.IdempotencyKeyHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", h.Session.Routes)

		r.Group(func(r chi.Router) {
			r.Use(tallymw.RequireSession(opts.Lock))

			if opts.Cache != nil {
				r.Use(tallymw.Idempotency(opts.Cache, opts.IdempotencyTTL, opts.Logger))
			}

			r.Route("/wallets", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Wallets.Routes(r)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Transactions.Routes(r)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Categories.Routes(r)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Subscriptions.Routes(r)
			})

			r.Route("/rules", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Rules.Routes(r)
			})

			r.Route("/audit", h.Audit.Routes)
			r.Route("/import", h.Import.Routes)
			r.Route("/export", h.Export.Routes)
		})
	})

	return router
}
