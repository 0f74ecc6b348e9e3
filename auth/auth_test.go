package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"log/slog"
)

const testSecret = "unit-test-secret-please-rotate"

func newTokens(ttl time.Duration) TokenManager {
	return NewTokenManager([]byte(testSecret), "duochat", ttl)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := newTokens(time.Hour)

	signed, err := tokens.Generate("420")
	req.NoError(err)

	claims, err := tokens.Validate(signed)
	req.NoError(err)
	req.Equal("420", claims.UserID)
	req.Equal("duochat", claims.Issuer)
}

func TestTokenExpired(t *testing.T) {
	req := require.New(t)
	tokens := newTokens(-time.Minute)

	signed, err := tokens.Generate("420")
	req.NoError(err)

	_, err = tokens.Validate(signed)
	req.Error(err)
}

func TestTokenWrongSecret(t *testing.T) {
	req := require.New(t)
	signed, err := newTokens(time.Hour).Generate("420")
	req.NoError(err)

	other := NewTokenManager([]byte("another-secret"), "duochat", time.Hour)
	_, err = other.Validate(signed)
	req.Error(err)
}

func protectedEcho(t *testing.T, tokens TokenManager) http.Handler {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return PrincipalMiddleware(tokens, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(principal))
	}))
}

func TestPrincipalFromHeader(t *testing.T) {
	req := require.New(t)
	handler := protectedEcho(t, newTokens(time.Hour))

	r := httptest.NewRequest(http.MethodGet, "/users/420/sent-messages", nil)
	r.Header.Set(HeaderUserID, "420")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Equal("420", w.Body.String())
}

func TestPrincipalFromBearerToken(t *testing.T) {
	req := require.New(t)
	tokens := newTokens(time.Hour)
	handler := protectedEcho(t, tokens)

	signed, err := tokens.Generate("6")
	req.NoError(err)

	r := httptest.NewRequest(http.MethodGet, "/users/6/sent-messages", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	// The identity header loses against a valid token.
	r.Header.Set(HeaderUserID, "420")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Equal("6", w.Body.String())
}

func TestMissingCredentialsRejected(t *testing.T) {
	req := require.New(t)
	handler := protectedEcho(t, newTokens(time.Hour))

	r := httptest.NewRequest(http.MethodGet, "/users/420/sent-messages", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	req.Equal(http.StatusUnauthorized, w.Code)
	req.JSONEq(`{"reason":"missing credentials"}`, w.Body.String())
}

func TestRateLimitExceeded(t *testing.T) {
	req := require.New(t)
	limited := RateLimitMiddleware(LimitConfig{RPS: 1, Burst: 2})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/users/420/sent-messages", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, r)
		statuses = append(statuses, w.Code)
	}

	req.Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}
