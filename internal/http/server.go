package http

import (
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"labyrinth/app/internal/labyrinth"
	"labyrinth/app/internal/metrics"
	"labyrinth/app/internal/tarpit"
	"labyrinth/app/internal/visitor"
)

// Options configures the HTTP server wiring.
type Options struct {
	Generator   *labyrinth.Generator
	Visits      visitor.Repository
	Tarpit      *tarpit.Tarpit
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	Metrics     *metrics.Metrics
	PageParams  labyrinth.RawParams
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour. Zero values
// fall back to defaults.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultRateLimitPerSecond = 5.0
	defaultRateLimitBurst     = 20
	defaultRateLimitTTL       = 10 * time.Minute
)

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	generator   *labyrinth.Generator
	visits      visitor.Repository
	tarpit      *tarpit.Tarpit
	db          *gorm.DB
	logger      *logrus.Logger
	sentry      *sentry.Hub
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter
	pageParams  labyrinth.RawParams
	basePath    string
	robotsBody  []byte
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, eris.New("page generator is required")
	}
	if opts.Visits == nil {
		return nil, eris.New("visit repository is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	basePath := labyrinth.NormalizeBasePath(opts.PageParams[labyrinth.ParamBasePath])
	if !strings.HasPrefix(basePath, "/") {
		return nil, eris.Errorf("base path must start with /, got %q", basePath)
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Labyrinth", "1.0.0")

	api := humago.New(mux, config)

	settings := opts.RateLimiter
	if settings.RequestsPerSecond <= 0 {
		settings.RequestsPerSecond = defaultRateLimitPerSecond
	}
	if settings.Burst <= 0 {
		settings.Burst = defaultRateLimitBurst
	}
	if settings.ClientTTL <= 0 {
		settings.ClientTTL = defaultRateLimitTTL
	}

	srv := &Server{
		api:         api,
		mux:         mux,
		generator:   opts.Generator,
		visits:      opts.Visits,
		tarpit:      opts.Tarpit,
		db:          opts.Database,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		metrics:     opts.Metrics,
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
		pageParams:  opts.PageParams,
		basePath:    basePath,
		robotsBody:  []byte("User-agent: *\nDisallow: " + basePath + "\n"),
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.visitLogMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("HEAD /favicon.ico", faviconHandler)
	s.mux.HandleFunc("GET /styles.css", stylesHandler)
	s.mux.HandleFunc("GET /robots.txt", s.robotsHandler)

	if s.tarpit != nil {
		s.mux.Handle("GET "+s.basePath+"archive/{name}", s.withVisitRecording(s.tarpit))
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.registerHomeRoute()
	s.registerLabyrinthRoute()
	s.registerStatsRoute()
	s.registerHealthRoute()
}

// withVisitRecording records hits for handlers mounted directly on the mux,
// which never pass through the Huma middleware chain. Recording failures are
// logged and never affect the response.
func (s *Server) withVisitRecording(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if s.visits != nil {
			visit := &visitor.Visit{
				ClientIP:  clientIPFromRequest(r),
				UserAgent: r.UserAgent(),
				Path:      r.URL.Path,
			}
			if err := s.visits.Record(r.Context(), visit); err != nil && s.logger != nil {
				s.logger.WithError(err).WithField("path", r.URL.Path).Warn("recording visit failed")
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
