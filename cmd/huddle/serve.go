package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/huddle/pkg/api"
	"github.com/platinummonkey/huddle/pkg/config"
	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/maintenance"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/storage"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			if v.ConfigFileUsed() == "" {
				v = nil
			}
			return serve(cmd.Context(), cfg, v, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

// serve runs the API until ctx is done or a signal arrives. When watched is
// non-nil its config file is watched and log level changes apply live.
func serve(ctx context.Context, cfg *config.Config, watched *viper.Viper, migrate bool) error {
	logger := cfg.Observability.NewLogger()
	observability.SetDefault(logger)

	if watched != nil {
		config.Watch(watched, func(next *config.Config) {
			logger.SetLevel(next.Observability.LogLevel)
			logger.WithField("log_level", next.Observability.LogLevel.String()).Info("configuration reloaded")
		}, func(err error) {
			logger.WithError(err).Warn("ignoring invalid configuration change")
		})
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		observability.ShutdownOTel(shutdownCtx, providers, logger)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			return err
		}
		logger.WithField("applied", n).Info("migrations complete")
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	blobs = storage.WithMetrics(blobs, metrics.BlobOperationsTotal)

	redisClient, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	application, err := newApp(db, blobs, metrics, logger)
	if err != nil {
		return err
	}
	authenticator, err := newAuthenticator(ctx, cfg.Auth, application.roles)
	if err != nil {
		return fmt.Errorf("failed to initialize authentication: %w", err)
	}

	server, err := api.NewServer(api.ServerDeps{
		Users:          application.users,
		Schools:        application.schools,
		Relations:      application.relations,
		Authenticator:  authenticator,
		RateLimit:      newRateLimit(cfg.RateLimit, redisClient, metrics),
		Metrics:        metrics,
		Logger:         logger,
		Loader:         loaderOptions(cfg.Loader, metrics),
		GraphQL:        cfg.GraphQL,
		WebURL:         cfg.Web.URL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return err
	}
	if cfg.Storage.Type == storage.TypeFilesystem {
		// development only: S3 deployments serve blobs from the bucket
		server.Router().PathPrefix("/files/").Handler(
			http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.Storage.FilesystemRoot))))
	}

	janitor := maintenance.NewUploadJanitor(application.assets, db, blobs, metrics.UploadsPurgedTotal,
		maintenance.JanitorConfig{MaxAge: cfg.Maintenance.UploadMaxAge}, logger)
	scheduler := cron.New()
	if _, err := janitor.Schedule(scheduler, cfg.Maintenance.UploadJanitorSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	servers := []*http.Server{
		{
			Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:      server,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		{
			Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
			Handler:     healthMux,
			ReadTimeout: cfg.Server.ReadTimeout,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s failed: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shut down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
