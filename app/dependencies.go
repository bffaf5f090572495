package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/wedding-platform/auth"
	"github.com/upb/wedding-platform/config"
	"github.com/upb/wedding-platform/handlers"
	"github.com/upb/wedding-platform/internal/observability"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/repositories/postgres"
	"github.com/upb/wedding-platform/services/accesscontrol"
	"github.com/upb/wedding-platform/services/audit"
	"github.com/upb/wedding-platform/services/groups"
	"github.com/upb/wedding-platform/services/ratelimit"
	"github.com/upb/wedding-platform/services/users"
	"go.uber.org/zap"
)

const defaultAuditShutdownTimeout = 5 * time.Second

// Version is stamped at build time with -ldflags "-X .../app.Version=..."
var Version = "dev"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Services
	Audit       *audit.AuditService
	Access      *accesscontrol.Service
	Users       *users.Service
	Groups      *groups.Service
	RateLimiter *ratelimit.RateLimitService // nil when rate limiting is disabled

	// Auth and guards
	TokenValidator      *auth.JWTValidator
	AuthMiddleware      *middleware.AuthMiddleware
	AccessMiddleware    *middleware.AccessMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// HTTP handlers
	HealthHandler *handlers.HealthHandler
	AccessHandler *handlers.AccessHandler
	GroupHandler  *handlers.GroupHandler
	UserHandler   *handlers.UserHandler
	AuditHandler  *handlers.AuditHandler
}

// NewDependencies opens the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.GetDB().PingContext(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: database ping failed: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	deps, err := build(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromDB wires the application over an already-open pool
func NewDependenciesFromDB(cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Dependencies, error) {
	factory := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), logger)
	return build(cfg, factory, logger)
}

func build(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)
	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Metrics.ObserveDB(d.DB.Stats)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	auditCfg := audit.DefaultConfig()
	if cfg.Audit.BufferSize > 0 {
		auditCfg.BufferSize = cfg.Audit.BufferSize
	}
	if cfg.Audit.WorkerCount > 0 {
		auditCfg.WorkerCount = cfg.Audit.WorkerCount
	}
	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, auditCfg)
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	d.Metrics.ObserveAuditQueue(
		func() int { return d.Audit.GetStats().PendingEvents },
		func() uint64 { return d.Audit.GetStats().Dropped },
	)

	d.Access = accesscontrol.NewService(
		d.Repos.Users,
		d.Repos.GroupMembers,
		d.Repos.Groups,
		d.Logger,
		accesscontrol.WithAuditor(d.Audit),
		accesscontrol.WithMetrics(d.Metrics),
	)
	d.Users = users.NewService(d.TxManager, d.Repos.Users, d.Audit, d.Logger)
	d.Groups = groups.NewService(d.TxManager, d.Repos, d.Access, d.Audit, d.Logger)

	if cfg.RateLimit.Enabled {
		d.RateLimiter = ratelimit.NewRateLimitService(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           cfg.RateLimit.IdleTTL,
		}, d.Logger)
		d.RateLimiter.Start()
	} else {
		d.Logger.Warn("rate limiting disabled")
	}

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.TokenValidator = auth.NewJWTValidator(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenValidator, cfg.Auth.CookieName, d.Logger)
	d.AccessMiddleware = middleware.NewAccessMiddleware(d.Access, handlers.ServiceErrorHandler(d.Logger), d.Logger)
	if d.RateLimiter != nil {
		d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(d.RateLimiter, d.Metrics, d.Logger)
	}
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Audit, Version, cfg.Environment, d.Logger)
	d.AccessHandler = handlers.NewAccessHandler(d.Access, d.Logger)
	d.GroupHandler = handlers.NewGroupHandler(d.Groups, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Users, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.Audit, d.Logger)
}

// Close gracefully shuts down all dependencies. Pending audit events are
// flushed before the database is closed.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RateLimiter != nil {
		d.RateLimiter.Stop()
	}

	if d.Audit != nil && d.Audit.GetStats().Started {
		timeout := d.Config.Audit.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultAuditShutdownTimeout
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	return nil
}
