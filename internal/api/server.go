// Package api provides HTTP REST API handlers for the diagnosis
// service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
	"github.com/cura-ai/cura/internal/service"
)

// Server provides HTTP REST API endpoints for diagnosis runs and
// follow-up chat.
type Server struct {
	router         chi.Router
	engine         *service.DiagnosisEngine
	chat           *service.ChatService
	registry       *core.Registry
	store          core.Store
	logger         *logging.Logger
	requestTimeout time.Duration
	allowedOrigins []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestTimeout bounds each request, diagnosis runs included.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithAllowedOrigins sets the CORS origin allowlist.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a new API server.
func NewServer(
	engine *service.DiagnosisEngine,
	chat *service.ChatService,
	registry *core.Registry,
	store core.Store,
	opts ...ServerOption,
) *Server {
	s := &Server{
		engine:         engine,
		chat:           chat,
		registry:       registry,
		store:          store,
		logger:         logging.NewNop(),
		requestTimeout: 5 * time.Minute,
		allowedOrigins: []string{"*"},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.loggingMiddleware)

	// CORS for frontend access
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/specialists", s.handleListSpecialists)

		r.Route("/diagnosis", func(r chi.Router) {
			r.Get("/", s.handleListDiagnoses)
			r.Post("/", s.handleCreateDiagnosis)

			r.Route("/{diagnosisID}", func(r chi.Router) {
				r.Get("/", s.handleGetDiagnosis)
				r.Delete("/", s.handleDeleteDiagnosis)
				r.Post("/chat", s.handleChat)
				r.Get("/chat", s.handleChatHistory)
			})
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	payload := errorResponse{Error: err.Error()}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		payload.Code = domErr.Code
	}
	respondJSON(w, status, payload)
}
