package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	connectAttempts   = 3
	connectRetryDelay = 5 * time.Second
	pingTimeout       = 5 * time.Second
	maxOpenConns      = 5
	maxIdleConns      = 1
)

// Postgres wraps DB connectivity. The pool is bounded and shared between
// the reconciliation worker and request-driven calls; connections are
// acquired and released per statement by the driver.
type Postgres struct {
	DB *gorm.DB
}

// Connect establishes a pooled connection with bounded retries and a
// liveness probe. On exhaustion it returns the last error instead of
// crashing, so the caller can choose degraded operation.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		logger.Info("attempting database connection",
			"event", "db_connect_attempt",
			"module", "internal/platform/db",
			"layer", "platform",
			"attempt", attempt,
			"max_attempts", connectAttempts,
		)

		pg, err := open(ctx, dsn)
		if err == nil {
			logger.Info("database connection pool created",
				"event", "db_connect_succeeded",
				"module", "internal/platform/db",
				"layer", "platform",
				"attempt", attempt,
			)
			return pg, nil
		}

		lastErr = err
		logger.Error("database connection attempt failed",
			"event", "db_connect_attempt_failed",
			"module", "internal/platform/db",
			"layer", "platform",
			"attempt", attempt,
			"error", err.Error(),
		)
		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}

	logger.Error("all database connection attempts failed",
		"event", "db_connect_exhausted",
		"module", "internal/platform/db",
		"layer", "platform",
		"attempts", connectAttempts,
	)
	return nil, lastErr
}

func open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	// Trivial round trip before declaring the pool usable.
	if err := db.WithContext(pingCtx).Exec("SELECT 1").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("probe postgres: %w", err)
	}
	return &Postgres{DB: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
