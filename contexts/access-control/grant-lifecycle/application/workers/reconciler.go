package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	application "rolewarden/contexts/access-control/grant-lifecycle/application"
	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

const defaultAuditReason = "Temporary role expired"

// Reconciler sweeps grants whose expiry has passed, revokes the matching
// platform role through the RoleAuthority binding, and deletes every grant
// row it managed to resolve. Rows are deleted only after a revocation
// attempt resolved them, so an abandoned pass leaves unresolved rows in
// place for the next one.
type Reconciler struct {
	Grants      ports.GrantStore
	Authority   ports.RoleAuthority
	Clock       ports.Clock
	AuditReason string
	Logger      *slog.Logger

	mu sync.Mutex
}

// RunOnce executes a single reconciliation pass and returns the number of
// grants whose role removal was confirmed. At most one pass runs at a time;
// a caller that finds one already in flight gets ErrPassInFlight instead of
// waiting out the in-flight pass's store and authority calls. Per-grant
// transient failures never abort the pass; the affected rows stay stored
// for the next one.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	if !r.mu.TryLock() {
		return 0, domainerrors.ErrPassInFlight
	}
	defer r.mu.Unlock()

	logger := application.ResolveLogger(r.Logger)
	now := r.now()

	expired, err := r.Grants.ListExpired(ctx, now)
	if err != nil {
		logger.Error("expired grant lookup failed",
			"event", "grant_reconcile_list_failed",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(expired) == 0 {
		logger.Debug("reconciliation pass found no expired grants",
			"event", "grant_reconcile_noop",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
		)
		return 0, nil
	}

	resolved := make([]string, 0, len(expired))
	revoked := 0
	for _, grant := range expired {
		select {
		case <-ctx.Done():
			// Shutdown mid-pass: delete what is already resolved and
			// leave the rest for the next pass.
			return r.finishPass(ctx, logger, resolved, revoked, len(expired))
		default:
		}

		done, removed := r.resolveGrant(ctx, logger, grant)
		if done {
			resolved = append(resolved, grant.GrantID)
		}
		if removed {
			revoked++
		}
	}
	return r.finishPass(ctx, logger, resolved, revoked, len(expired))
}

func (r *Reconciler) finishPass(ctx context.Context, logger *slog.Logger, resolved []string, revoked int, expiredCount int) (int, error) {
	if len(resolved) > 0 {
		deleted, err := r.Grants.DeleteMany(ctx, resolved)
		if err != nil {
			logger.Error("resolved grant cleanup failed",
				"event", "grant_reconcile_delete_failed",
				"module", "access-control/grant-lifecycle",
				"layer", "worker",
				"resolved_count", len(resolved),
				"error", err.Error(),
			)
			return revoked, err
		}
		logger.Info("reconciliation pass completed",
			"event", "grant_reconcile_completed",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"expired_count", expiredCount,
			"resolved_count", len(resolved),
			"deleted_count", deleted,
			"revoked_count", revoked,
		)
	}
	return revoked, nil
}

// resolveGrant attempts one revocation. The first return value reports
// whether the grant row may be deleted (revoked, target already absent, or
// permission denied); the second reports a confirmed role removal.
func (r *Reconciler) resolveGrant(ctx context.Context, logger *slog.Logger, grant entities.Grant) (bool, bool) {
	realm, err := r.Authority.FindRealm(ctx, grant.RealmID)
	if errors.Is(err, domainerrors.ErrRealmNotFound) {
		logger.Warn("realm gone, resolving grant without revocation",
			"event", "grant_reconcile_realm_missing",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"grant_id", grant.GrantID,
			"realm_id", grant.RealmID,
		)
		return true, false
	}
	if err != nil {
		r.logTransient(logger, "grant_reconcile_realm_lookup_failed", grant, err)
		return false, false
	}

	member, err := r.Authority.FindMember(ctx, realm, grant.PrincipalID)
	if errors.Is(err, domainerrors.ErrMemberNotFound) {
		logger.Warn("member gone, resolving grant without revocation",
			"event", "grant_reconcile_member_missing",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"grant_id", grant.GrantID,
			"principal_id", grant.PrincipalID,
			"realm_id", grant.RealmID,
		)
		return true, false
	}
	if err != nil {
		r.logTransient(logger, "grant_reconcile_member_lookup_failed", grant, err)
		return false, false
	}

	role, err := r.Authority.FindRole(ctx, realm, grant.RoleID)
	if errors.Is(err, domainerrors.ErrRoleNotFound) {
		logger.Warn("role gone, resolving grant without revocation",
			"event", "grant_reconcile_role_missing",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"grant_id", grant.GrantID,
			"role_id", grant.RoleID,
			"realm_id", grant.RealmID,
		)
		return true, false
	}
	if err != nil {
		r.logTransient(logger, "grant_reconcile_role_lookup_failed", grant, err)
		return false, false
	}

	held, err := r.Authority.MemberHasRole(ctx, member, role)
	if err != nil {
		r.logTransient(logger, "grant_reconcile_membership_check_failed", grant, err)
		return false, false
	}
	if !held {
		return true, false
	}

	err = r.Authority.RevokeRole(ctx, member, role, r.auditReason())
	if errors.Is(err, domainerrors.ErrForbidden) {
		// Deleting the row anyway keeps the store from leaking forever;
		// the still-assigned platform role stays visible to operators.
		logger.Warn("revoke forbidden, resolving grant anyway",
			"event", "grant_reconcile_revoke_forbidden",
			"module", "access-control/grant-lifecycle",
			"layer", "worker",
			"grant_id", grant.GrantID,
			"principal_id", grant.PrincipalID,
			"realm_id", grant.RealmID,
			"role_id", grant.RoleID,
		)
		return true, false
	}
	if err != nil {
		r.logTransient(logger, "grant_reconcile_revoke_failed", grant, err)
		return false, false
	}

	logger.Info("expired role revoked",
		"event", "grant_reconcile_revoked",
		"module", "access-control/grant-lifecycle",
		"layer", "worker",
		"grant_id", grant.GrantID,
		"principal_id", grant.PrincipalID,
		"realm_id", grant.RealmID,
		"role_id", grant.RoleID,
		"member", member.DisplayName,
		"role", role.Name,
	)
	return true, true
}

func (r *Reconciler) logTransient(logger *slog.Logger, event string, grant entities.Grant, err error) {
	logger.Warn("transient failure, grant left for next pass",
		"event", event,
		"module", "access-control/grant-lifecycle",
		"layer", "worker",
		"grant_id", grant.GrantID,
		"principal_id", grant.PrincipalID,
		"realm_id", grant.RealmID,
		"role_id", grant.RoleID,
		"error", err.Error(),
	)
}

func (r *Reconciler) auditReason() string {
	if r.AuditReason == "" {
		return defaultAuditReason
	}
	return r.AuditReason
}

func (r *Reconciler) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
