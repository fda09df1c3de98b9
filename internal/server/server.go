// Package server serves the built schedule as an iCalendar feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/virtualdate/internal/config"
	"github.com/watzon/virtualdate/internal/ical"
	"github.com/watzon/virtualdate/internal/metrics"
	"github.com/watzon/virtualdate/internal/schedule"
	"github.com/watzon/virtualdate/internal/taskfile"
)

// Server rebuilds the schedule from the tasks file and serves the current
// window as /calendar.ics. Rebuilds happen when the file changes and on a
// fixed refresh interval.
type Server struct {
	cfg        *config.Config
	store      *schedule.Store
	httpServer *http.Server

	mu      sync.RWMutex
	feed    string
	builtAt time.Time
	lastErr error
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithStore persists every successful build.
func WithStore(store *schedule.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

func New(cfg *config.Config, opts ...Option) *Server {
	srv := &Server{cfg: cfg}

	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendar.ics", srv.handleCalendar)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	srv.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      Recovery(Logging(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return srv
}

// Start builds the initial feed, begins watching the tasks file, and
// serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial build failed, serving empty feed")
	}

	watcher, err := NewTasksWatcher(s.cfg.Schedule.TasksFile, func(path string) {
		log.Info().Str("path", path).Msg("Tasks file changed, rebuilding")
		if err := s.Rebuild(ctx); err != nil {
			log.Error().Err(err).Msg("Rebuild failed")
		}
	})
	if err != nil {
		return fmt.Errorf("watching tasks file: %w", err)
	}
	watcher.Start(ctx)
	defer func() { _ = watcher.Stop() }()

	go s.refreshLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("Calendar feed listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Schedule.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Rebuild(ctx); err != nil {
				log.Error().Err(err).Msg("Scheduled rebuild failed")
			}
		}
	}
}

// Rebuild loads the tasks file, builds the configured window, and swaps
// the cached feed. A failed rebuild keeps the previous feed.
func (s *Server) Rebuild(ctx context.Context) error {
	started := time.Now()

	tasks, err := taskfile.LoadFile(s.cfg.Schedule.TasksFile)
	if err != nil {
		var verrs taskfile.ValidationErrors
		if errors.As(err, &verrs) {
			metrics.RecordValidationErrors(len(verrs))
		}
		s.recordFailure(err)
		return err
	}

	from := time.Now().Truncate(time.Minute)
	to := from.Add(s.cfg.Schedule.Window)

	instances, err := schedule.New(tasks...).Build(from, to)
	if err != nil {
		s.recordFailure(err)
		return err
	}

	feed := ical.Export(s.cfg.Schedule.CalendarName, instances, time.Now())
	metrics.RecordBuild("success", time.Since(started), len(instances))

	s.mu.Lock()
	s.feed = feed
	s.builtAt = time.Now()
	s.lastErr = nil
	s.mu.Unlock()

	if s.store != nil {
		id, err := s.store.SaveBuild(ctx, from, to, instances)
		if err != nil {
			log.Error().Err(err).Msg("Persisting build failed")
		} else {
			log.Debug().Str("build", id).Int("instances", len(instances)).Msg("Build persisted")
		}
	}

	log.Info().
		Int("tasks", len(tasks)).
		Int("instances", len(instances)).
		Dur("took", time.Since(started)).
		Msg("Schedule rebuilt")

	return nil
}

func (s *Server) recordFailure(err error) {
	metrics.RecordBuild("error", 0, 0)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
