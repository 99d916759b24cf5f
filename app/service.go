package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/modai/app/plugins"
	"github.com/kilianp07/modai/config"
	"github.com/kilianp07/modai/core/factory"
	"github.com/kilianp07/modai/core/loader"
	coremetrics "github.com/kilianp07/modai/core/metrics"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/infra/metrics"
)

// Service loads the configured modules and serves their routes.
type Service struct {
	loader   *loader.Loader
	router   chi.Router
	log      logger.Logger
	addr     string
	shutdown time.Duration

	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration. Module failures do not fail
// New; they are logged and visible through Loader().Outcomes().
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sinks := cfg.Metrics.Sinks
	if cfg.Metrics.PrometheusEnabled && !hasSink(sinks, "prometheus") {
		sinks = append(sinks, factory.ModuleConfig{Type: "prometheus"})
	}
	sink, err := coremetrics.NewMetricsSink(sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	ld := loader.New(cfg.ModuleDescriptors(), plugins.Modules,
		loader.WithLogger(logger.New("loader")),
		loader.WithMetrics(sink),
	)
	if err := ld.Load(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.New("http")))
	for _, wm := range ld.WebModules() {
		wm.RegisterRoutes(r)
	}

	return &Service{
		loader:      ld,
		router:      r,
		log:         logg,
		addr:        cfg.Server.Address,
		shutdown:    time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
	}, nil
}

// Handler returns the router with every web module mounted.
func (s *Service) Handler() http.Handler { return s.router }

// Loader exposes the module registry.
func (s *Service) Loader() *loader.Loader { return s.loader }

// Run serves HTTP and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases modules holding resources, in reverse registry order.
func (s *Service) Close() error {
	entries := s.loader.Modules()
	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		c, ok := entries[i].Module.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", entries[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

func hasSink(cfgs []factory.ModuleConfig, typ string) bool {
	for _, c := range cfgs {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("request", map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}
