package memory

import (
	"context"
	"sync"

	"rolewarden/contexts/access-control/grant-lifecycle/domain/entities"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	"rolewarden/contexts/access-control/grant-lifecycle/ports"
)

type memberKey struct {
	RealmID     int64
	PrincipalID int64
}

type roleKey struct {
	RealmID int64
	RoleID  int64
}

type membershipKey struct {
	RealmID     int64
	PrincipalID int64
	RoleID      int64
}

// Revocation records one RevokeRole call observed by the fake authority.
type Revocation struct {
	PrincipalID int64
	RealmID     int64
	RoleID      int64
	AuditReason string
}

// Authority is an in-memory RoleAuthority used by tests and local wiring
// until a concrete chat-platform binding is attached. Realms, members,
// roles, and memberships are scripted through the Add/Assign helpers;
// SetForbidden and SetFailure inject the revoke failure modes the
// reconciler must tolerate.
type Authority struct {
	mu          sync.RWMutex
	realms      map[int64]entities.Realm
	members     map[memberKey]entities.Member
	roles       map[roleKey]entities.Role
	memberships map[membershipKey]bool
	forbidden   map[int64]bool
	failure     error
	revocations []Revocation
}

func NewAuthority() *Authority {
	return &Authority{
		realms:      make(map[int64]entities.Realm),
		members:     make(map[memberKey]entities.Member),
		roles:       make(map[roleKey]entities.Role),
		memberships: make(map[membershipKey]bool),
		forbidden:   make(map[int64]bool),
	}
}

func (a *Authority) AddRealm(realmID int64, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.realms[realmID] = entities.Realm{RealmID: realmID, Name: name}
}

func (a *Authority) AddMember(realmID int64, principalID int64, displayName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.members[memberKey{RealmID: realmID, PrincipalID: principalID}] = entities.Member{
		PrincipalID: principalID,
		RealmID:     realmID,
		DisplayName: displayName,
	}
}

func (a *Authority) AddRole(realmID int64, roleID int64, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[roleKey{RealmID: realmID, RoleID: roleID}] = entities.Role{
		RoleID:  roleID,
		RealmID: realmID,
		Name:    name,
	}
}

func (a *Authority) AssignRole(realmID int64, principalID int64, roleID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memberships[membershipKey{RealmID: realmID, PrincipalID: principalID, RoleID: roleID}] = true
}

// SetForbidden makes RevokeRole fail with ErrForbidden for the given role.
func (a *Authority) SetForbidden(roleID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forbidden[roleID] = true
}

// SetFailure makes every authority call fail with err until reset to nil.
func (a *Authority) SetFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failure = err
}

// Revocations returns the RevokeRole calls observed so far.
func (a *Authority) Revocations() []Revocation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Revocation(nil), a.revocations...)
}

func (a *Authority) FindRealm(_ context.Context, realmID int64) (entities.Realm, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.failure != nil {
		return entities.Realm{}, a.failure
	}
	realm, ok := a.realms[realmID]
	if !ok {
		return entities.Realm{}, domainerrors.ErrRealmNotFound
	}
	return realm, nil
}

func (a *Authority) FindMember(_ context.Context, realm entities.Realm, principalID int64) (entities.Member, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.failure != nil {
		return entities.Member{}, a.failure
	}
	member, ok := a.members[memberKey{RealmID: realm.RealmID, PrincipalID: principalID}]
	if !ok {
		return entities.Member{}, domainerrors.ErrMemberNotFound
	}
	return member, nil
}

func (a *Authority) FindRole(_ context.Context, realm entities.Realm, roleID int64) (entities.Role, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.failure != nil {
		return entities.Role{}, a.failure
	}
	role, ok := a.roles[roleKey{RealmID: realm.RealmID, RoleID: roleID}]
	if !ok {
		return entities.Role{}, domainerrors.ErrRoleNotFound
	}
	return role, nil
}

func (a *Authority) MemberHasRole(_ context.Context, member entities.Member, role entities.Role) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.failure != nil {
		return false, a.failure
	}
	return a.memberships[membershipKey{
		RealmID:     member.RealmID,
		PrincipalID: member.PrincipalID,
		RoleID:      role.RoleID,
	}], nil
}

func (a *Authority) RevokeRole(_ context.Context, member entities.Member, role entities.Role, auditReason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failure != nil {
		return a.failure
	}
	if a.forbidden[role.RoleID] {
		return domainerrors.ErrForbidden
	}
	delete(a.memberships, membershipKey{
		RealmID:     member.RealmID,
		PrincipalID: member.PrincipalID,
		RoleID:      role.RoleID,
	})
	a.revocations = append(a.revocations, Revocation{
		PrincipalID: member.PrincipalID,
		RealmID:     member.RealmID,
		RoleID:      role.RoleID,
		AuditReason: auditReason,
	})
	return nil
}

var _ ports.RoleAuthority = (*Authority)(nil)
