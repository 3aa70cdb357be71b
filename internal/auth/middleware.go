package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/helmdesk/helmdesk/internal/platform/httpx"
	"github.com/helmdesk/helmdesk/internal/shared"
)

// Middleware verifies bearer tokens and installs the principal in context.
type Middleware struct {
	Codec  *TokenCodec
	Logger *slog.Logger
}

// Authenticate rejects requests without a valid access token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := m.Codec.Parse(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("reject access token", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		principal := &shared.Principal{
			UserID: userID,
			Email:  claims.Email,
			Roles:  claims.Roles,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
