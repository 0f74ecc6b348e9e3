// Package api exposes the HTTP boundary: account creation, message
// submission and the per-user history and search views.
package api

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"duochat/auth"
	"duochat/errors"
	"duochat/observability"
	"duochat/services"
)

// Server wires the HTTP routes to the service layer.
type Server struct {
	users    services.IUserService
	messages services.IMessageService
	tokens   auth.TokenManager
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewServer(users services.IUserService, messages services.IMessageService,
	tokens auth.TokenManager, metrics *observability.Metrics, log *slog.Logger) *Server {
	return &Server{users: users, messages: messages, tokens: tokens, metrics: metrics, log: log}
}

// Router builds the route table. Account creation, liveness and metrics are
// public; everything under a user id requires an authenticated principal
// matching that id.
func (s *Server) Router(registry *prometheus.Registry, limits auth.LimitConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(s.instrument)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)

	protected := router.PathPrefix("/users/{id}").Subrouter()
	protected.Use(auth.PrincipalMiddleware(s.tokens, s.log))
	protected.Use(auth.RateLimitMiddleware(limits))
	protected.HandleFunc("/tokens", s.handleIssueToken).Methods(http.MethodPost)
	protected.HandleFunc("/messages", s.handleSendMessage).Methods(http.MethodPost)
	protected.HandleFunc("/sent-messages", s.handleSentMessages).Methods(http.MethodGet)
	protected.HandleFunc("/received-messages", s.handleReceivedMessages).Methods(http.MethodGet)
	protected.HandleFunc("/messages/search", s.handleSearchMessages).Methods(http.MethodGet)
	protected.HandleFunc("/conversations/{other}", s.handleConversationWith).Methods(http.MethodGet)

	return router
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Reason string `json:"reason"`
}

type createUserRequest struct {
	Nickname string `json:"nickname"`
}

type sendMessageRequest struct {
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "malformed request body"})
		return
	}
	user, err := s.users.CreateUser(payload.Nickname)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	if _, err := s.users.GetUser(userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	signed, err := s.tokens.Generate(userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "malformed request body"})
		return
	}
	if _, err := s.users.GetUser(payload.RecipientID); err != nil {
		if goerrors.Is(err, errors.ErrUserNotFound) {
			s.writeError(w, r, errors.ErrInvalidRecipient)
			return
		}
		s.writeError(w, r, err)
		return
	}
	msg, err := s.messages.SendMessage(r.Context(), services.SendMessageCommand{
		Sender:    senderID,
		Recipient: payload.RecipientID,
		Content:   payload.Content,
		Timestamp: payload.Timestamp,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleSentMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	messages, err := s.messages.SentMessages(userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleReceivedMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	var from *string
	if sender := r.URL.Query().Get("from"); sender != "" {
		from = &sender
	}
	messages, err := s.messages.ReceivedMessages(userID, from)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "missing query parameter q"})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Reason: "invalid limit"})
			return
		}
		limit = parsed
	}
	messages, err := s.messages.SearchMessages(r.Context(), userID, query, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleConversationWith(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.principalFor(w, r)
	if !ok {
		return
	}
	conversation, err := s.messages.ConversationWith(userID, mux.Vars(r)["other"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// principalFor enforces that the authenticated principal acts on its own
// resources: the {id} path segment must match the principal.
func (s *Server) principalFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Reason: "missing credentials"})
		return "", false
	}
	if pathID := mux.Vars(r)["id"]; pathID != principal {
		s.log.Warn("Principal mismatch", "principal", principal, "path_id", pathID)
		writeJSON(w, http.StatusForbidden, ErrorResponse{Reason: errors.ErrForbidden.Error()})
		return "", false
	}
	return principal, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	status := http.StatusInternalServerError
	switch {
	case goerrors.Is(err, errors.ErrInvalidRecipient),
		goerrors.Is(err, errors.ErrUserNotFound),
		goerrors.As(err, &validationErrs):
		status = http.StatusBadRequest
	case goerrors.Is(err, errors.ErrForbidden):
		status = http.StatusForbidden
	case goerrors.Is(err, errors.ErrConversationNotFound):
		status = http.StatusNotFound
	case goerrors.Is(err, errors.ErrDuplicateNickname):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Reason: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument records request latency per route template and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		s.metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}
