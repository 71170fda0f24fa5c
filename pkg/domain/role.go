package domain

import dErrors "policygate/pkg/domain-errors"

// Role is the closed set of authorization roles. Authorization decisions go
// through Privileged(), never through string comparison in handlers.
type Role string

const (
	// RoleUser is a standard subject: may register, log in, request
	// enrollment, and read their own records.
	RoleUser Role = "user"
	// RoleAdmin is a privileged actor: everything RoleUser can do, plus
	// policy management, user administration, and enrollment disposition.
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string from untrusted input (request bodies,
// token claims).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "role must be %q or %q", RoleUser, RoleAdmin)
	}
}

// Privileged reports whether the role may perform admin operations.
func (r Role) Privileged() bool { return r == RoleAdmin }

func (r Role) String() string { return string(r) }
