package entities

import "time"

// Grant records that a principal holds a role in a realm until ExpiresAt.
// At most one grant exists per (principal, realm, role) triple; a later
// grant for the same triple refreshes ExpiresAt and CreatedAt instead of
// adding a second row.
type Grant struct {
	GrantID     string
	PrincipalID int64
	RealmID     int64
	RoleID      int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the grant is eligible for revocation at now.
func (g Grant) Expired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}
