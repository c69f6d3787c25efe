package commands

import (
	"context"
	"log/slog"
	"time"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// GrantCommand contains transport-agnostic input for issuing a temporary
// grant. When ExpiresAt is zero the expiry is computed from Duration, or
// from the configured default duration when Duration is zero too.
type GrantCommand struct {
	PrincipalID int64
	RealmID     int64
	RoleID      int64
	ExpiresAt   time.Time
	Duration    time.Duration
}

// GrantResult returns the stored grant row after the insert-or-replace.
type GrantResult struct {
	Grant entities.Grant `json:"grant"`
}

// GrantUseCase persists a new expiring grant, replacing any earlier grant
// for the same (principal, realm, role) triple.
type GrantUseCase struct {
	Grants          ports.GrantStore
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	DefaultDuration time.Duration
	Logger          *slog.Logger
}

// Execute validates identifiers and expiry, then delegates to the store's
// atomic upsert. Storage failures propagate to the caller so the command
// layer can report that temporary access was NOT scheduled.
func (u GrantUseCase) Execute(ctx context.Context, cmd GrantCommand) (GrantResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if cmd.PrincipalID <= 0 {
		return GrantResult{}, domainerrors.ErrInvalidPrincipalID
	}
	if cmd.RealmID <= 0 {
		return GrantResult{}, domainerrors.ErrInvalidRealmID
	}
	if cmd.RoleID <= 0 {
		return GrantResult{}, domainerrors.ErrInvalidRoleID
	}

	now := u.now()
	expiresAt := cmd.ExpiresAt.UTC()
	if cmd.ExpiresAt.IsZero() {
		duration := cmd.Duration
		if duration <= 0 {
			duration = u.defaultDuration()
		}
		expiresAt = now.Add(duration)
	}
	if !expiresAt.After(now) {
		return GrantResult{}, domainerrors.ErrInvalidExpiry
	}

	grantID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return GrantResult{}, err
	}

	grant, err := u.Grants.Upsert(ctx, ports.UpsertGrantInput{
		GrantID:     grantID,
		PrincipalID: cmd.PrincipalID,
		RealmID:     cmd.RealmID,
		RoleID:      cmd.RoleID,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	})
	if err != nil {
		logger.Error("grant write failed",
			"event", "grant_write_failed",
			"module", "access-control/grant-lifecycle",
			"layer", "application",
			"principal_id", cmd.PrincipalID,
			"realm_id", cmd.RealmID,
			"role_id", cmd.RoleID,
			"error", err.Error(),
		)
		return GrantResult{}, err
	}

	logger.Info("grant scheduled",
		"event", "grant_scheduled",
		"module", "access-control/grant-lifecycle",
		"layer", "application",
		"grant_id", grant.GrantID,
		"principal_id", grant.PrincipalID,
		"realm_id", grant.RealmID,
		"role_id", grant.RoleID,
		"expires_at", grant.ExpiresAt,
	)
	return GrantResult{Grant: grant}, nil
}

func (u GrantUseCase) defaultDuration() time.Duration {
	if u.DefaultDuration <= 0 {
		return 24 * time.Hour
	}
	return u.DefaultDuration
}

func (u GrantUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
