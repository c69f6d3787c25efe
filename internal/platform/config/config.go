package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName          string
	HTTPPort             string
	PostgresDSN          string
	ReconcileInterval    time.Duration
	DefaultGrantDuration time.Duration
	RevokeAuditReason    string
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "rolewarden"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	reconcileInterval, err := envDuration("RECONCILE_INTERVAL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	defaultGrantDuration, err := envDuration("DEFAULT_GRANT_DURATION", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	auditReason := strings.TrimSpace(os.Getenv("REVOKE_AUDIT_REASON"))
	if auditReason == "" {
		auditReason = "Temporary role expired"
	}

	return Config{
		ServiceName:          service,
		HTTPPort:             port,
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		ReconcileInterval:    reconcileInterval,
		DefaultGrantDuration: defaultGrantDuration,
		RevokeAuditReason:    auditReason,
	}, nil
}

// envDuration parses a Go duration from the environment. An invalid or
// non-positive value is a startup error, not a fallback.
func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, raw)
	}
	return value, nil
}
