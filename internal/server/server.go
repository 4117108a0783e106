// Package server exposes the companion over HTTP: chat, greetings,
// session lifecycle, facts, and memory inspection.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jwhitt/kindred/internal/auth"
	"github.com/jwhitt/kindred/internal/session"
	"github.com/jwhitt/kindred/internal/store"
)

// Server is the kindred HTTP API server.
type Server struct {
	db       *store.DB
	registry *session.Registry
	verifier auth.Verifier
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server wired to the session registry and token
// verifier.
func New(db *store.DB, registry *session.Registry, verifier auth.Verifier, version string) *Server {
	s := &Server{
		db:       db,
		registry: registry,
		verifier: verifier,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/chat", s.handleChat)
		r.Post("/greeting", s.handleGreeting)
		r.Post("/session/end", s.handleSessionEnd)

		r.Get("/facts", s.handleListFacts)
		r.Put("/facts/{category}/{key}", s.handlePutFact)
		r.Delete("/facts/{category}/{key}", s.handleDeleteFact)

		r.Get("/memories", s.handleMemories)
		r.Get("/memories/super", s.handleSuperMemories)
		r.Get("/context", s.handleContext)
		r.Get("/stats", s.handleStats)
		r.Get("/sessions", s.handleSessions)
	})

	s.router = r
}

type contextKey string

const userKey contextKey = "user"

// authenticate resolves the bearer token to a user ID. With no tokens
// configured the verifier maps everything to the local user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		userID, ok := s.verifier.UserID(token)
		if !ok {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func userFrom(r *http.Request) string {
	userID, _ := r.Context().Value(userKey).(string)
	return userID
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"version":         s.version,
		"uptime":          time.Since(s.started).Seconds(),
		"db":              dbOK,
		"db_path":         s.db.Path,
		"active_sessions": s.registry.Size(),
	})
}
