package ports

import (
	"context"
	"time"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts surrogate grant id generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UpsertGrantInput carries the full row written by an insert-or-replace.
// GrantID is used only when no row exists yet for the triple; a replace
// keeps the original surrogate id.
type UpsertGrantInput struct {
	GrantID     string
	PrincipalID int64
	RealmID     int64
	RoleID      int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// GrantStore is the durable table of active temporary grants.
//
// Implementations must enforce the (principal, realm, role) uniqueness
// invariant in a single atomic statement and resolve concurrent
// upsert/delete races for the same triple to a steady state without
// surfacing an error. Connectivity loss maps to ErrStorageUnavailable.
type GrantStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, input UpsertGrantInput) (entities.Grant, error)
	ListExpired(ctx context.Context, now time.Time) ([]entities.Grant, error)
	ListActive(ctx context.Context, principalID int64, realmID int64, now time.Time) ([]entities.Grant, error)
	DeleteMany(ctx context.Context, grantIDs []string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// RoleAuthority is the chat-platform binding reconciliation talks to.
// Lookups return the domain not-found sentinels when the realm, member,
// or role no longer exists; RevokeRole returns ErrForbidden when the
// service account lacks permission to remove the role.
type RoleAuthority interface {
	FindRealm(ctx context.Context, realmID int64) (entities.Realm, error)
	FindMember(ctx context.Context, realm entities.Realm, principalID int64) (entities.Member, error)
	FindRole(ctx context.Context, realm entities.Realm, roleID int64) (entities.Role, error)
	MemberHasRole(ctx context.Context, member entities.Member, role entities.Role) (bool, error)
	RevokeRole(ctx context.Context, member entities.Member, role entities.Role, auditReason string) error
}
