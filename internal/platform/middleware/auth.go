package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	id "policygate/pkg/domain"
	"policygate/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the identity it signs.
// The concrete implementation lives in internal/jwttoken.
type TokenValidator interface {
	Identity(tokenString string) (requestcontext.UserIdentity, error)
}

// RequireAuth parses the Authorization header, validates the bearer token,
// and injects the signed identity into the request context. Identity comes
// only from the validated token; client-supplied headers can never override
// the signed claims.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid authorization header")
				return
			}

			ident, err := validator.Identity(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, ident)))
		})
	}
}

// RequireRole gates a route on the authenticated identity's role capability.
// It must be mounted after RequireAuth.
func RequireRole(role id.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ident, ok := requestcontext.Identity(ctx)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if role.Privileged() && !ident.Role.Privileged() {
				logger.WarnContext(ctx, "forbidden - insufficient role",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", ident.UserID.String(),
				)
				writeAuthError(w, http.StatusForbidden, "forbidden", "Admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"status_code":` + strconv.Itoa(status) + `,"message":"` + message + `","data":null,"error":"` + code + `"}`))
}
