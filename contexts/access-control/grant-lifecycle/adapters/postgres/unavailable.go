package postgresadapter

import (
	"context"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// Unavailable is the degraded-mode GrantStore wired when no database
// connection could be established at startup. Every call fails fast with
// ErrStorageUnavailable so callers can report that persistence is down
// instead of silently dropping grants.
type Unavailable struct{}

func (Unavailable) EnsureSchema(context.Context) error {
	return domainerrors.ErrStorageUnavailable
}

func (Unavailable) Upsert(context.Context, ports.UpsertGrantInput) (entities.Grant, error) {
	return entities.Grant{}, domainerrors.ErrStorageUnavailable
}

func (Unavailable) ListExpired(context.Context, time.Time) ([]entities.Grant, error) {
	return nil, domainerrors.ErrStorageUnavailable
}

func (Unavailable) ListActive(context.Context, int64, int64, time.Time) ([]entities.Grant, error) {
	return nil, domainerrors.ErrStorageUnavailable
}

func (Unavailable) DeleteMany(context.Context, []string) (int64, error) {
	return 0, domainerrors.ErrStorageUnavailable
}

func (Unavailable) Count(context.Context) (int64, error) {
	return 0, domainerrors.ErrStorageUnavailable
}

var _ ports.GrantStore = Unavailable{}
