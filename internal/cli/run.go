package cli

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/okian/camctl/internal/adapters/http/api"
	"github.com/okian/camctl/internal/adapters/http/swagger"
	service "github.com/okian/camctl/internal/app"
	"github.com/okian/camctl/internal/config"
	"github.com/okian/camctl/pkg/logger"
	"github.com/okian/camctl/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run camera control until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}
}

// Serve runs the service, the admin API and the metrics exporter until ctx is done.
func Serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	if cfg.Source != "" {
		log.Info(ctx, "configuration loaded", logger.String("file", cfg.Source))
	}

	mm := metrics.NewManager()
	if err := mm.RegisterProcessCollectors(); err != nil {
		log.Warn(ctx, "process collectors not registered", logger.Error(err))
	}

	svc, err := service.New(cfg, service.WithLogger(log.Named("service")), service.WithSink(mm))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service shutdown failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx, mm)

	var servers []*http.Server
	errs := make(chan error, 2)

	if cfg.Server.Enabled {
		apiServer := api.NewServer(svc, svc,
			api.WithBasicAuth(cfg.BasicAuth.Username, cfg.BasicAuth.Password),
			api.WithRecorder(mm),
			api.WithMetricsHandler(mm.Handler()),
			api.WithLogger(log.Named("api")),
		)
		mux := http.NewServeMux()
		apiServer.Register(ctx, mux)
		swagger.Register(ctx, mux, swagger.WithMiddleware(apiServer.Protect))

		srv := newHTTPServer(cfg.Server.Addr, mux)
		servers = append(servers, srv)
		go func() {
			log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Server.Addr))
			errs <- listen(srv, "", "")
		}()
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", mm.Handler())
		srv := newHTTPServer(cfg.Metrics.Addr, mux)
		servers = append(servers, srv)
		go func() {
			log.Info(ctx, "starting metrics exporter",
				logger.String("addr", cfg.Metrics.Addr),
				logger.Bool("tls", cfg.Metrics.CertFile != ""),
			)
			errs <- listen(srv, cfg.Metrics.CertFile, cfg.Metrics.KeyFile)
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down...")
	case serveErr = <-errs:
		log.Error(ctx, "HTTP server failed", logger.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "server shutdown failed", logger.String("addr", srv.Addr), logger.Error(err))
		}
	}
	log.Info(ctx, "server stopped")
	return serveErr
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func listen(srv *http.Server, certFile, keyFile string) error {
	var err error
	if certFile != "" {
		err = srv.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// startSystemMetricsUpdater samples runtime statistics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, mm *metrics.Manager) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics(mm)
		}
	}
}

func updateSystemMetrics(mm *metrics.Manager) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.UpdateSystemMemoryUsage(m.Alloc)
	mm.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		mm.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}
