// Package httptransport composes the module handlers into one router.
// Business logic stays in the services; this layer only decides which
// middleware guards which route group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "policygate/internal/auth/handler"
	enrollhandler "policygate/internal/enrollment/handler"
	"policygate/internal/platform/metrics"
	"policygate/internal/platform/middleware"
	policyhandler "policygate/internal/policy/handler"
	userhandler "policygate/internal/user/handler"
	id "policygate/pkg/domain"
)

// Handlers collects the module handlers the router mounts.
type Handlers struct {
	Auth       *authhandler.Handler
	Policy     *policyhandler.Handler
	Enrollment *enrollhandler.Handler
	User       *userhandler.Handler
}

// Deps carries the cross-cutting pieces every group shares.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator
	Health    http.HandlerFunc
}

// NewRouter wires all endpoints. Three groups, in increasing privilege:
// public (register, login, health, metrics scrape), authenticated (reads
// and self-service), admin (mutations and workflow review).
func NewRouter(h Handlers, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Latency)
	}

	r.Get("/healthz", deps.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		h.Auth.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		h.Policy.Register(r)
		h.Enrollment.Register(r)
		h.User.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(id.RoleAdmin, deps.Logger))
			h.Policy.RegisterAdmin(r)
			h.Enrollment.RegisterAdmin(r)
			h.User.RegisterAdmin(r)
		})
	})

	return r
}
