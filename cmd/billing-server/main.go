package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AmiraaaF/Projet-Rust/pkg/api"
	"github.com/AmiraaaF/Projet-Rust/pkg/archive"
	"github.com/AmiraaaF/Projet-Rust/pkg/auth"
	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/AmiraaaF/Projet-Rust/pkg/config"
	"github.com/AmiraaaF/Projet-Rust/pkg/middleware"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/AmiraaaF/Projet-Rust/pkg/storage"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "billing-server",
		Short:         "Subscription and invoice billing API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./billing.yaml or ./configs/billing.yaml)")

	root.AddCommand(newMigrateCommand(&configPath))
	return root
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLoggerWithFormat(cfg.Observability.Level(), observability.LogFormat(cfg.Observability.LogFormat), os.Stdout)
}

// serve runs the API until ctx is cancelled. Every resource is registered
// with the shutdown manager as soon as it is acquired, so a failed startup
// releases what was already opened.
func serve(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	ctx = observability.WithLogger(ctx, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	started := false
	defer func() {
		if started {
			return
		}
		logger.Warn("Startup aborted, releasing resources")
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = observability.DefaultShutdownTimeout
		}
		releaseCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = shutdown.Shutdown(releaseCtx)
	}()

	otelCfg := cfg.Observability.OTel()
	if otelCfg.ServiceVersion == "dev" {
		otelCfg.ServiceVersion = version
	}
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		shutdown.Register("otel", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return err
	}
	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	shutdown.Register("database", func(context.Context) error { return db.Close() })
	logger.WithField("driver", cfg.Storage.Driver).Info("Database connected")

	if cfg.Storage.AutoMigrate {
		if err := storage.Migrate(ctx, db, dialect); err != nil {
			return err
		}
		logger.Info("Database schema is up to date")
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
		logger.Info("Redis connected")
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	var serviceOpts []billing.Option
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
		if providers != nil {
			otelMetrics, err := observability.NewOTelMetrics()
			if err != nil {
				logger.WithError(err).Warn("OpenTelemetry billing metrics unavailable")
			} else {
				metrics = metrics.WithOTel(otelMetrics)
			}
		}
		serviceOpts = append(serviceOpts, billing.WithRecorder(metrics))
	}

	if cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		serviceOpts = append(serviceOpts, billing.WithArchiver(archiver))
		logger.WithField("bucket", cfg.Archive.Bucket).Info("Invoice archiving enabled")
	}

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	limiter, err := newLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		return err
	}

	server.Handler = api.NewServer(api.ServerOptions{
		Service:       billing.NewSQLService(db, dialect, serviceOpts...),
		Logger:        logger,
		Authenticator: middleware.NewAuthenticator(verifier, cfg.Auth.CacheSize, cfg.Auth.CacheTTL),
		Limiter:       limiter,
		Metrics:       metrics,
		Registry:      registry,
		Health:        observability.NewHealthChecker(db, redisClient, version),
		DB:            db,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})

	started = true
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", server.Addr).WithField("version", version).Info("Starting billing server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func newVerifier(ctx context.Context, cfg config.AuthConfig) (auth.TokenVerifier, error) {
	if cfg.Mode == config.AuthModeOIDC {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := auth.NewHMACVerifier(cfg.HMACSecret, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func newLimiter(cfg config.RateLimitConfig, redisClient *redis.Client) (middleware.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	rl := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}
	switch cfg.Backend {
	case config.RateLimitRedis:
		if redisClient == nil {
			return nil, errors.New("redis rate limiting needs storage.redis_url")
		}
		return middleware.NewDistributedRateLimiter(redisClient, rl, "billing:ratelimit"), nil
	default:
		return middleware.NewRateLimiter(rl), nil
	}
}

