package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/capture"
	"github.com/bonellirj/EchoDo/internal/config"
	"github.com/bonellirj/EchoDo/internal/metrics"
	"github.com/bonellirj/EchoDo/internal/pipeline"
	"github.com/bonellirj/EchoDo/internal/prefs"
	"github.com/bonellirj/EchoDo/internal/task"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps are the wired application components the HTTP surface exposes.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Tasks        *task.Store
	Preferences  *prefs.Store
	Bus          *pipeline.Bus
	Recorder     capture.Recorder
	Version      string
	StartTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware. Logger comes first so the panic handler logs
	// with the request id attached.
	r.Use(Logger(log))
	r.Use(Recoverer)
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoint — no auth
		health := NewHealthHandler(deps.Recorder, cfg.DataDir, deps.Version, deps.StartTime)
		r.Get("/health", health.ServeHTTP)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.AuthToken))

			NewTasksHandler(deps.Tasks, deps.Bus).Routes(r)
			NewPreferencesHandler(deps.Preferences).Routes(r)
			NewRecordingHandler(deps.Orchestrator).Routes(r)
			NewEventsHandler(deps.Bus).Routes(r)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
