package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shared"
)

// MealAnalyzer estimates nutrients from a meal photo.
type MealAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*analysis.Result, error)
}

// MetricsRecorder stores execution metadata.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Options configures a Server. Everything except Planner is optional.
type Options struct {
	Planner   *planner.Planner
	Analyzer  MealAnalyzer
	Metrics   MetricsRecorder
	Slots     *config.SlotTemplates
	JWTSecret []byte
	Webhook   http.Handler
	DataPaths []string
	Logger    *zap.SugaredLogger
}

// Server exposes the planner and the meal analyzer over HTTP.
type Server struct {
	opts   Options
	logger *zap.SugaredLogger
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Slots == nil {
		opts.Slots = config.DefaultSlots()
	}
	return &Server{opts: opts, logger: logger}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthCheckHandler)

		r.Group(func(r chi.Router) {
			if len(s.opts.JWTSecret) > 0 {
				r.Use(s.requireJWT(s.opts.JWTSecret))
			}
			r.Post("/suggest-meals", s.suggestMealsHandler)
			r.Post("/analyze-meal", s.analyzeMealHandler)
		})
	})

	if s.opts.Webhook != nil {
		r.Method(http.MethodPost, "/webhook", s.opts.Webhook)
	}

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"latency", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
