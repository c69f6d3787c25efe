// Package unbound holds the placeholder RoleAuthority wired when no
// chat-platform binding has been configured.
package unbound

import (
	"context"
	"errors"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

// ErrNotConfigured is returned by every Authority call. The reconciler
// treats it as a transient failure, so expired rows stay stored until a
// real binding is attached.
var ErrNotConfigured = errors.New("role authority binding not configured")

// Authority is the stand-in RoleAuthority for processes started without a
// chat-platform binding. Unlike a not-found answer, which would resolve
// and delete grant rows, every call here fails so no row is ever lost to
// a missing binding.
type Authority struct{}

func (Authority) FindRealm(context.Context, int64) (entities.Realm, error) {
	return entities.Realm{}, ErrNotConfigured
}

func (Authority) FindMember(context.Context, entities.Realm, int64) (entities.Member, error) {
	return entities.Member{}, ErrNotConfigured
}

func (Authority) FindRole(context.Context, entities.Realm, int64) (entities.Role, error) {
	return entities.Role{}, ErrNotConfigured
}

func (Authority) MemberHasRole(context.Context, entities.Member, entities.Role) (bool, error) {
	return false, ErrNotConfigured
}

func (Authority) RevokeRole(context.Context, entities.Member, entities.Role, string) error {
	return ErrNotConfigured
}

var _ ports.RoleAuthority = Authority{}
