package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/upb/wedding-platform/app"
	"github.com/upb/wedding-platform/auth"
	"github.com/upb/wedding-platform/config"
	"github.com/upb/wedding-platform/internal/observability"
	"github.com/upb/wedding-platform/repositories/postgres"
	"github.com/upb/wedding-platform/routes"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "wedding-platform",
		Short:        "Destination wedding platform API",
		Version:      app.Version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()

			factory, err := postgres.NewRepositoryFactory(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer factory.Close()

			if err := factory.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Info("database migrations completed")
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.IsProduction() {
				return errors.New("token issuing is disabled in production")
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}

			validator := auth.NewJWTValidator(auth.Config{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.JWTIssuer,
				Audience: cfg.Auth.JWTAudience,
			})
			token, err := validator.Issue(id, email, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to put in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func bootstrap(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func serve(ctx context.Context, migrateFirst bool) error {
	cfg, logger, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting wedding platform API",
		zap.String("environment", cfg.Environment),
		zap.String("version", app.Version))

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Error("error closing dependencies", zap.Error(err))
		}
	}()

	if migrateFirst {
		if err := deps.RepoFactory.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.Metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		var err error
		if cfg.Server.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
}
