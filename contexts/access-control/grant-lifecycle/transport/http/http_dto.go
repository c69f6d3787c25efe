package httptransport

import "time"

// CreateGrantRequest is the request body for issuing a temporary grant.
// Exactly one of expires_at or duration_seconds may be set; when both are
// absent the configured default grant duration applies.
type CreateGrantRequest struct {
	PrincipalID     int64      `json:"principal_id"`
	RealmID         int64      `json:"realm_id"`
	RoleID          int64      `json:"role_id"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds,omitempty"`
}

type GrantDTO struct {
	GrantID     string    `json:"grant_id"`
	PrincipalID int64     `json:"principal_id"`
	RealmID     int64     `json:"realm_id"`
	RoleID      int64     `json:"role_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateGrantResponse struct {
	Grant GrantDTO `json:"grant"`
}

type ListActiveGrantsResponse struct {
	PrincipalID int64      `json:"principal_id"`
	RealmID     int64      `json:"realm_id"`
	Grants      []GrantDTO `json:"grants"`
}

type CountGrantsResponse struct {
	Count int64 `json:"count"`
}

type ReconcileResponse struct {
	RevokedCount int `json:"revoked_count"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
