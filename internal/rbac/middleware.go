package rbac

import (
	"log/slog"
	"net/http"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. Authority
// checks always re-resolve from current assignments; the role claims inside
// the access token are never trusted for authorization.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny ensures the current user holds at least one of the authorities.
func (m Middleware) RequireAny(authorities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(authorities) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, ok := m.grantedAuthorities(w, r)
			if !ok {
				return
			}
			for _, required := range authorities {
				if _, has := granted[required]; has {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

// RequireAll ensures the current user holds every listed authority.
func (m Middleware) RequireAll(authorities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted, ok := m.grantedAuthorities(w, r)
			if !ok {
				return
			}
			for _, required := range authorities {
				if _, has := granted[required]; !has {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) grantedAuthorities(w http.ResponseWriter, r *http.Request) (map[string]struct{}, bool) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return nil, false
	}
	authorities, err := m.Service.EffectiveAuthorities(r.Context(), principal.UserID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve authorities", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, false
	}
	granted := make(map[string]struct{}, len(authorities))
	for _, a := range authorities {
		granted[a] = struct{}{}
	}
	return granted, true
}
