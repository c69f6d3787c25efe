package queries

import (
	"context"
	"log/slog"
	"time"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// ListActiveUseCase reads the not-yet-expired grants for one principal in
// one realm, ordered by expiry ascending.
type ListActiveUseCase struct {
	Grants ports.GrantStore
	Clock  ports.Clock
	Logger *slog.Logger
}

func (u ListActiveUseCase) Execute(ctx context.Context, principalID int64, realmID int64) ([]entities.Grant, error) {
	logger := application.ResolveLogger(u.Logger)

	if principalID <= 0 {
		return nil, domainerrors.ErrInvalidPrincipalID
	}
	if realmID <= 0 {
		return nil, domainerrors.ErrInvalidRealmID
	}

	grants, err := u.Grants.ListActive(ctx, principalID, realmID, u.now())
	if err != nil {
		logger.Error("active grant lookup failed",
			"event", "grant_list_active_failed",
			"module", "access-control/grant-lifecycle",
			"layer", "application",
			"principal_id", principalID,
			"realm_id", realmID,
			"error", err.Error(),
		)
		return nil, err
	}
	return grants, nil
}

func (u ListActiveUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
