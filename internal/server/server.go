package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/substitutions/internal/bootstrap"
	"github.com/yigit/substitutions/internal/config"
)

// Server holds the state for the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	deps   *bootstrap.Dependencies
	logger zerolog.Logger
	http   *http.Server

	background context.Context
	stop       context.CancelFunc
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	router, err := bootstrap.SetupRouter(cfg, deps, lgr)
	if err != nil {
		deps.SubstitutionService.Close()
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	return New(cfg, router, deps, lgr), nil
}

// New assembles a Server from already built parts.
func New(cfg *config.Config, router *gin.Engine, deps *bootstrap.Dependencies, lgr zerolog.Logger) *Server {
	background, stop := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		router:     router,
		deps:       deps,
		logger:     lgr,
		background: background,
		stop:       stop,
	}
}

// startBackground performs the initial fetch and starts the watcher and the
// periodic refresh when configured.
func (s *Server) startBackground() {
	svc := s.deps.SubstitutionService

	go func() {
		if _, err := svc.Refresh(s.background); err != nil {
			s.logger.Warn().Err(err).Msg("Initial substitution load failed; serving empty list")
		}
	}()

	if s.deps.Watcher != nil {
		go func() {
			if err := svc.Watch(s.background, s.deps.Watcher); err != nil {
				s.logger.Error().Err(err).Msg("Substitution file watcher stopped")
			}
		}()
	}

	if s.deps.RefreshInterval > 0 {
		s.logger.Info().Dur("interval", s.deps.RefreshInterval).Msg("Periodic substitution refresh enabled")
		go svc.AutoRefresh(s.background, s.deps.RefreshInterval)
	}
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.startBackground()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignals)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops the server and releases the substitution service.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	shutdownError := false

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownError = true
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	s.stop()
	s.deps.SubstitutionService.Close()
	s.logger.Info().Msg("Substitution service closed.")

	s.logger.Info().Msg("Server shutdown process complete.")
	if shutdownError {
		return errors.New("server shutdown completed with errors")
	}
	return nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
