package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/menu"
	"github.com/helmdesk/helmdesk/internal/observability"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	RolesHandler       *rbac.Handler
	PermissionsHandler *rbac.PermissionsHandler
	UserRolesHandler   *rbac.UserRolesHandler
	UsersHandler       *users.Handler
	MenuHandler        *menu.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Helmdesk defaults.
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

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires a verified access token; authorization is
	// re-resolved per request from current role assignments.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", func(r chi.Router) {
				params.UsersHandler.MountRoutes(r)
				if params.UserRolesHandler != nil {
					params.UserRolesHandler.MountRoutes(r)
				}
			})
		}
		if params.MenuHandler != nil {
			r.Route("/menus", params.MenuHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
