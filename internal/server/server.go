// Package server exposes the HTTP API. Authorization is explicit: handlers
// call access.Decide and short-circuit on a denial instead of relying on
// middleware side effects.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"learngate/internal/accounts"
	"learngate/internal/catalog"
	"learngate/internal/enrollment"
	"learngate/internal/ordering"
	"learngate/internal/progress"
	"learngate/internal/ratelimit"
	"learngate/internal/util"
	"learngate/pkg/domain"
	"learngate/pkg/events"
	"learngate/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Store       store.Store
	Accounts    *accounts.Service
	Catalog     *catalog.Service
	Enrollments *enrollment.Service
	Ordering    *ordering.Service
	Progress    *progress.Service

	// AuthLimiter and WriteLimiter are optional; nil disables limiting.
	AuthLimiter  *ratelimit.FixedWindowLimiter
	WriteLimiter *ratelimit.FixedWindowLimiter
	Proxies      *util.TrustedProxies

	// Events is optional; nil disables lifecycle notifications.
	Events *events.Stream
}

// Server exposes HTTP endpoints for the learning service.
type Server struct {
	store       store.Store
	accounts    *accounts.Service
	catalog     *catalog.Service
	enrollments *enrollment.Service
	ordering    *ordering.Service
	progress    *progress.Service

	authLimiter  *ratelimit.FixedWindowLimiter
	writeLimiter *ratelimit.FixedWindowLimiter
	proxies      *util.TrustedProxies
	events       *events.Stream

	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		store:        cfg.Store,
		accounts:     cfg.Accounts,
		catalog:      cfg.Catalog,
		enrollments:  cfg.Enrollments,
		ordering:     cfg.Ordering,
		progress:     cfg.Progress,
		authLimiter:  cfg.AuthLimiter,
		writeLimiter: cfg.WriteLimiter,
		proxies:      cfg.Proxies,
		events:       cfg.Events,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.Handle("POST /auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("GET /auth/me", s.authenticated(s.handleMe))

	// catalog
	s.mux.Handle("GET /courses", s.authenticated(s.handleListCourses))
	s.mux.Handle("POST /courses", s.authenticated(s.limited(s.handleCreateCourse)))
	s.mux.Handle("GET /courses/{id}", s.authenticated(s.handleGetCourse))
	s.mux.Handle("PUT /courses/{id}", s.authenticated(s.limited(s.handleUpdateCourse)))
	s.mux.Handle("POST /courses/{id}/publish", s.authenticated(s.limited(s.handlePublishCourse)))

	// enrollment lifecycle
	s.mux.Handle("POST /courses/{id}/enroll", s.authenticated(s.limited(s.handleEnroll)))
	s.mux.Handle("GET /enrollments", s.authenticated(s.handleListEnrollments))
	s.mux.Handle("POST /enrollments/{id}/payment", s.authenticated(s.limited(s.handleRecordPayment)))
	s.mux.Handle("POST /enrollments/{id}/status", s.authenticated(s.limited(s.handleSetStatus)))
	s.mux.Handle("POST /enrollments/{id}/progress", s.authenticated(s.limited(s.handleSetProgress)))

	// curriculum
	s.mux.Handle("GET /courses/{id}/outline", s.authenticated(s.handleCourseOutline))
	s.mux.Handle("GET /courses/{id}/content", s.authenticated(s.handleCourseContent))
	s.mux.Handle("POST /courses/{id}/sections", s.authenticated(s.limited(s.handleInsertSection)))
	s.mux.Handle("POST /sections/{id}/reorder", s.authenticated(s.limited(s.handleReorderSection)))
	s.mux.Handle("DELETE /sections/{id}", s.authenticated(s.limited(s.handleDeleteSection)))
	s.mux.Handle("POST /sections/{id}/content", s.authenticated(s.limited(s.handleInsertContent)))
	s.mux.Handle("POST /content/{id}/reorder", s.authenticated(s.limited(s.handleReorderContent)))
	s.mux.Handle("DELETE /content/{id}", s.authenticated(s.limited(s.handleDeleteContent)))

	// progress
	s.mux.Handle("POST /content/{id}/complete", s.authenticated(s.limited(s.handleComplete)))
	s.mux.Handle("GET /courses/{id}/progress", s.authenticated(s.handleProgressReport))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.accounts.FromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// limited applies the per-user write quota.
func (s *Server) limited(next authHandler) authHandler {
	return func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if s.writeLimiter != nil && !s.writeLimiter.Allow(user.ID) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r, user)
	}
}

// allowAuthRequest applies the per-IP quota on unauthenticated auth routes.
func (s *Server) allowAuthRequest(w http.ResponseWriter, r *http.Request) bool {
	if s.authLimiter == nil {
		return true
	}
	if s.authLimiter.Allow(util.ClientIP(r, s.proxies)) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps the error taxonomy onto status codes. Unclassified
// errors are logged and hidden behind a generic 500 body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", util.RequestIDFromRequest(r),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
