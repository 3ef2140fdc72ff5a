// Package api serves the school index and talking-point generation over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/intel"
	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
)

// Schools is the read side of the school index.
type Schools interface {
	Schools() []*model.School
	Names() []string
	ByURN(urn string) (*model.School, bool)
	ByName(name string) (*model.School, bool)
	Filter(f loader.Filter) []*model.School
	TopSpenders(limit int, metric loader.SpendMetric) []*model.School
	HighPriority(limit int) []*model.School
	Authorities() []string
	Stats() loader.Stats
}

// Intel generates and caches talking points.
type Intel interface {
	TalkingPointsForURN(ctx context.Context, urn string, force bool, count int, withInspection bool) (*intel.Result, error)
	ClearCache(ctx context.Context, name string) int
	Refresh(ctx context.Context) (int, error)
}

// Server holds the routes and their dependencies.
type Server struct {
	schools Schools
	intel   Intel
	origins []string
	points  func(ctx context.Context, urn string) []model.TalkingPoint
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allowed origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithExport enables GET /api/export, filling the talking-points sheet
// from points. A nil points func exports schools only.
func WithExport(points func(ctx context.Context, urn string) []model.TalkingPoint) Option {
	return func(s *Server) {
		if points == nil {
			points = func(context.Context, string) []model.TalkingPoint { return nil }
		}
		s.points = points
	}
}

// NewServer creates a Server.
func NewServer(schools Schools, svc Intel, opts ...Option) *Server {
	s := &Server{schools: schools, intel: svc, origins: []string{"*"}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/schools", s.listSchools)
		r.Get("/schools/names", s.listNames)
		r.Get("/schools/by-name", s.schoolByName)
		r.Get("/schools/{urn}", s.schoolByURN)
		r.Post("/schools/{urn}/talking-points", s.talkingPoints)
		r.Get("/stats", s.stats)
		r.Get("/top", s.topSpenders)
		r.Get("/priority", s.highPriority)
		r.Get("/authorities", s.authorities)
		r.Delete("/cache", s.clearCache)
		r.Post("/refresh", s.refresh)
		if s.points != nil {
			r.Get("/export", s.export)
		}
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
