// Package grantlifecycle implements the temporary role-grant lifecycle
// manager inside the access-control context.
//
// The module durably records grants with an absolute expiry, reconciles
// them against the live role membership of the external chat platform on a
// fixed period, and revokes grants whose expiry has passed while tolerating
// missing realms/members/roles, permission denial, and transient storage or
// platform failures. Business rules live in application/domain layers;
// infrastructure stays behind ports and adapters.
package grantlifecycle
