package errors

import "errors"

var (
	ErrStorageUnavailable = errors.New("grant storage is unavailable")
	ErrRealmNotFound      = errors.New("realm not found")
	ErrMemberNotFound     = errors.New("member not found in realm")
	ErrRoleNotFound       = errors.New("role not found in realm")
	ErrForbidden          = errors.New("missing permission to manage role")
	ErrInvalidPrincipalID = errors.New("invalid principal id")
	ErrInvalidRealmID     = errors.New("invalid realm id")
	ErrInvalidRoleID      = errors.New("invalid role id")
	ErrInvalidExpiry      = errors.New("grant expiry must be in the future")
	ErrPassInFlight       = errors.New("reconciliation pass already in flight")
)
