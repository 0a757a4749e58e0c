package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-book-indexer/api"
	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/internal/engine"
	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/internal/source"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Indexes listed in the config file are created at
startup and loaded from their sources in background jobs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			srv := newServer(a.cfg, a.httpOptions())
			defer srv.engine.Shutdown()

			if _, err := srv.preload(); err != nil {
				return err
			}

			ln, err := net.Listen("tcp", ":"+strconv.Itoa(a.cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %d: %w", a.cfg.Server.Port, err)
			}
			return srv.run(cmd.Context(), ln)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")
	return cmd
}

// server wires the engine, metrics and gin router for the serve command.
type server struct {
	cfg        *config.Config
	sourceOpts source.HTTPOptions
	engine     *engine.Engine
	metrics    *metrics.Metrics
	http       *http.Server
	log        *slog.Logger
}

func newServer(cfg *config.Config, sourceOpts source.HTTPOptions) *server {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	eng := engine.NewEngine(engine.Options{
		MaxWorkers:   cfg.Jobs.MaxWorkers,
		JobRetention: cfg.Jobs.Retention,
		CacheSize:    cfg.Search.CacheSize,
		Metrics:      m,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, eng, api.Options{
		Metrics:         m,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		SourceOptions:   sourceOpts,
		AllowLocalFiles: cfg.Source.AllowLocalFiles,
	})

	return &server{
		cfg:        cfg,
		sourceOpts: sourceOpts,
		engine:     eng,
		metrics:    m,
		http: &http.Server{
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		log: logger.WithComponent("server"),
	}
}

// preload creates the configured indexes and starts a load job for each one
// that lists sources. It returns the started job IDs by index name.
func (s *server) preload() (map[string]string, error) {
	jobIDs := make(map[string]string)
	for _, idx := range s.cfg.Indexes {
		if err := s.engine.CreateIndex(idx.IndexSettings); err != nil {
			return nil, fmt.Errorf("failed to create index %q: %w", idx.Name, err)
		}
		if len(idx.Sources) == 0 {
			continue
		}
		src, err := source.FromLocations(idx.Sources, s.sourceOpts)
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", idx.Name, err)
		}
		jobID, err := s.engine.LoadIndexAsync(idx.Name, src)
		if err != nil {
			return nil, fmt.Errorf("failed to start loading index %q: %w", idx.Name, err)
		}
		jobIDs[idx.Name] = jobID
		s.log.Info("loading index", "index", idx.Name, "source", src.Name(), "job_id", jobID)
	}
	return jobIDs, nil
}

// run serves on ln until ctx is done, then shuts down gracefully.
func (s *server) run(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
