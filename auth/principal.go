package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// HeaderUserID carries the caller identity when no Bearer token is used.
// A valid Authorization header takes precedence over it.
const HeaderUserID = "USER_ID_AUTH"

type contextKey string

const principalKey contextKey = "principal"

// PrincipalMiddleware resolves the caller identity and injects it into the
// request context. Requests without a resolvable principal are rejected
// with 401 before reaching any handler.
func PrincipalMiddleware(tokens TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, reason := resolvePrincipal(r, tokens)
			if principal == "" {
				log.Warn("Unauthenticated request", "path", r.URL.Path, "reason", reason)
				writeAuthError(w, http.StatusUnauthorized, reason)
				return
			}
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), principalKey, principal)))
		})
	}
}

// PrincipalFromContext returns the authenticated user id stored by the
// middleware.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(principalKey).(string)
	return principal, ok && principal != ""
}

func resolvePrincipal(r *http.Request, tokens TokenManager) (string, string) {
	if authorization := r.Header.Get("Authorization"); authorization != "" {
		tokenStr := strings.TrimPrefix(authorization, "Bearer ")
		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			return "", "invalid or expired token"
		}
		return claims.UserID, ""
	}
	if userID := r.Header.Get(HeaderUserID); userID != "" {
		return userID, ""
	}
	return "", "missing credentials"
}

func writeAuthError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"reason": reason})
}
