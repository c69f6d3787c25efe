package queries

import (
	"context"
	"log/slog"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// CountUseCase reports the total stored grant rows, active and
// not-yet-reconciled expired alike.
type CountUseCase struct {
	Grants ports.GrantStore
	Logger *slog.Logger
}

func (u CountUseCase) Execute(ctx context.Context) (int64, error) {
	logger := application.ResolveLogger(u.Logger)

	count, err := u.Grants.Count(ctx)
	if err != nil {
		logger.Error("grant count failed",
			"event", "grant_count_failed",
			"module", "access-control/grant-lifecycle",
			"layer", "application",
			"error", err.Error(),
		)
		return 0, err
	}
	return count, nil
}
