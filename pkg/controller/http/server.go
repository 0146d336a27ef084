package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/riskscale/pkg/usecase"
	"github.com/secmon-lab/riskscale/pkg/utils/logging"
)

type Server struct {
	router     *chi.Mux
	riskConfig *usecase.RiskConfigurationUseCase
	authorizer Authorizer
}

type Options func(*Server)

// WithAuthorizer gates every mutating route. Without it all requests are allowed.
func WithAuthorizer(authorizer Authorizer) Options {
	return func(s *Server) {
		s.authorizer = authorizer
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:     r,
		riskConfig: uc.RiskConfiguration,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/organizations/{orgID}", func(r chi.Router) {
		r.Get("/risk-configurations", s.listConfigurations)
		r.Get("/risk-configurations/{configID}", s.getConfiguration)

		r.Group(func(r chi.Router) {
			r.Use(authorizeMiddleware(s.authorizer))
			r.Post("/risk-configurations", s.createConfiguration)
			r.Put("/risk-configurations/{configID}", s.updateConfiguration)
			r.Delete("/risk-configurations/{configID}", s.deleteConfiguration)
			r.Post("/risk-configurations/{configID}/activate", s.activateConfiguration)
		})

		r.Post("/risk-configurations/validate", s.validateConfiguration)
		r.Post("/calculate-risk-score", s.calculateRiskScore)
		r.Post("/calculate-risk-score-with-criteria", s.calculateRiskScoreWithCriteria)
		r.Get("/classify", s.classify)
		r.Get("/risk-matrix-data", s.riskMatrixData)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger embeds a logger carrying the request ID into the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
	})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
