package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	grantlifecycle "rolewarden/contexts/access-control/grant-lifecycle"
	postgresadapter "rolewarden/contexts/access-control/grant-lifecycle/adapters/postgres"
	"rolewarden/contexts/access-control/grant-lifecycle/adapters/unbound"
	"rolewarden/contexts/access-control/grant-lifecycle/application/workers"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
	"rolewarden/internal/platform/config"
	"rolewarden/internal/platform/db"
	"rolewarden/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres   *db.Postgres
	scheduler  *workers.Scheduler
	reconciler *workers.Reconciler
	logger     *slog.Logger
}

// BuildAPI wires the admin HTTP process. A database that cannot be reached
// after bounded retries degrades the store instead of aborting startup:
// every grant call then fails fast with the storage-unavailable error.
func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	store, pg := buildStore(ctx, cfg, logger)
	module := newModule(cfg, store, logger)
	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

// BuildWorker wires the reconciliation process. Unlike the API, the worker
// is useless without storage, so connection failure is fatal here.
func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := newModule(cfg, repo, logger)
	return &WorkerApp{
		postgres:   pg,
		scheduler:  workers.NewScheduler(module.Reconciler, cfg.ReconcileInterval, logger),
		reconciler: module.Reconciler,
		logger:     logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start(ctx)
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Catch-up pass so a restart does not wait a full period before
		// sweeping grants that expired while the process was down.
		if _, err := w.reconciler.RunOnce(gctx); err != nil {
			w.logger.Error("startup reconciliation pass failed",
				"event", "bootstrap_catchup_pass_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		return nil
	})
	g.Go(func() error {
		return w.scheduler.Run(gctx)
	})
	return g.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// buildStore returns the Postgres-backed grant store, falling back to the
// fail-fast degraded store when the connection cannot be established or
// the schema cannot be prepared.
func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.GrantStore, *db.Postgres) {
	pg, err := db.Connect(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		logger.Error("running without persistent storage",
			"event", "bootstrap_storage_degraded",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
		return postgresadapter.Unavailable{}, nil
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed, running without persistent storage",
			"event", "bootstrap_schema_degraded",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
		_ = pg.Close()
		return postgresadapter.Unavailable{}, nil
	}
	return repo, pg
}

// newModule assembles the grant-lifecycle module. Until a chat-platform
// binding is attached, the unbound authority fails every call so expired
// rows stay stored instead of being resolved against nothing; the
// reconciler receives the binding by injection, never by runtime discovery.
func newModule(cfg config.Config, store ports.GrantStore, logger *slog.Logger) grantlifecycle.Module {
	logger.Warn("role authority binding not configured, expired grants will be retained",
		"event", "bootstrap_authority_unbound",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return grantlifecycle.NewModule(grantlifecycle.Dependencies{
		Grants:               store,
		Authority:            unbound.Authority{},
		Clock:                postgresadapter.SystemClock{},
		IDGenerator:          postgresadapter.UUIDGenerator{},
		DefaultGrantDuration: cfg.DefaultGrantDuration,
		RevokeAuditReason:    cfg.RevokeAuditReason,
		Logger:               logger,
	})
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
