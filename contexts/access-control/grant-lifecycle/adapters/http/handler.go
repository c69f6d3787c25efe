package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	"rolewarden/contexts/access-control/grant-lifecycle/application/commands"
	"rolewarden/contexts/access-control/grant-lifecycle/application/queries"
	"rolewarden/contexts/access-control/grant-lifecycle/application/workers"
	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	httptransport "rolewarden/contexts/access-control/grant-lifecycle/transport/http"
)

// Handler maps HTTP DTOs to application commands/queries. Request parsing
// and error-to-status mapping live in the platform http server.
type Handler struct {
	Grant      commands.GrantUseCase
	ListActive queries.ListActiveUseCase
	Count      queries.CountUseCase
	Reconciler *workers.Reconciler
	Logger     *slog.Logger
}

func (h Handler) CreateGrantHandler(ctx context.Context, request httptransport.CreateGrantRequest) (httptransport.CreateGrantResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Debug("http create grant received",
		"event", "grant_http_create_received",
		"module", "access-control/grant-lifecycle",
		"layer", "transport",
		"principal_id", request.PrincipalID,
		"realm_id", request.RealmID,
		"role_id", request.RoleID,
	)

	cmd := commands.GrantCommand{
		PrincipalID: request.PrincipalID,
		RealmID:     request.RealmID,
		RoleID:      request.RoleID,
		Duration:    time.Duration(request.DurationSeconds) * time.Second,
	}
	if request.ExpiresAt != nil {
		cmd.ExpiresAt = *request.ExpiresAt
	}

	result, err := h.Grant.Execute(ctx, cmd)
	if err != nil {
		return httptransport.CreateGrantResponse{}, err
	}
	return httptransport.CreateGrantResponse{
		Grant: toGrantDTO(result.Grant),
	}, nil
}

func (h Handler) ListActiveGrantsHandler(ctx context.Context, principalID int64, realmID int64) (httptransport.ListActiveGrantsResponse, error) {
	grants, err := h.ListActive.Execute(ctx, principalID, realmID)
	if err != nil {
		return httptransport.ListActiveGrantsResponse{}, err
	}

	items := make([]httptransport.GrantDTO, 0, len(grants))
	for _, grant := range grants {
		items = append(items, toGrantDTO(grant))
	}
	return httptransport.ListActiveGrantsResponse{
		PrincipalID: principalID,
		RealmID:     realmID,
		Grants:      items,
	}, nil
}

func (h Handler) CountGrantsHandler(ctx context.Context) (httptransport.CountGrantsResponse, error) {
	count, err := h.Count.Execute(ctx)
	if err != nil {
		return httptransport.CountGrantsResponse{}, err
	}
	return httptransport.CountGrantsResponse{Count: count}, nil
}

// ReconcileHandler forces one reconciliation pass and reports the number of
// confirmed role removals.
func (h Handler) ReconcileHandler(ctx context.Context) (httptransport.ReconcileResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http manual reconciliation received",
		"event", "grant_http_reconcile_received",
		"module", "access-control/grant-lifecycle",
		"layer", "transport",
	)

	revoked, err := h.Reconciler.RunOnce(ctx)
	if err != nil {
		return httptransport.ReconcileResponse{}, err
	}
	return httptransport.ReconcileResponse{RevokedCount: revoked}, nil
}

func toGrantDTO(grant entities.Grant) httptransport.GrantDTO {
	return httptransport.GrantDTO{
		GrantID:     grant.GrantID,
		PrincipalID: grant.PrincipalID,
		RealmID:     grant.RealmID,
		RoleID:      grant.RoleID,
		ExpiresAt:   grant.ExpiresAt,
		CreatedAt:   grant.CreatedAt,
	}
}
