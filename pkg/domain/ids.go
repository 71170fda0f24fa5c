// Package domain defines the typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so a UserID can never be passed
// where a PolicyID is expected. Parsing happens once at the trust boundary;
// everything past the handlers works with typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "policygate/pkg/domain-errors"
)

type (
	// UserID identifies a registered user.
	UserID uuid.UUID

	// PolicyID identifies an enrollable policy.
	PolicyID uuid.UUID

	// EnrollmentID identifies a single enrollment request.
	EnrollmentID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id PolicyID) String() string     { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the id in canonical UUID form so the types serialize
// as strings in JSON.
func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id PolicyID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id EnrollmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID form.
func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = UserID(u)
	return err
}

func (id *PolicyID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = PolicyID(u)
	return err
}

func (id *EnrollmentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = EnrollmentID(u)
	return err
}

// IsZero reports whether the id is the nil UUID.
func (id UserID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPolicyID returns a fresh random PolicyID.
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

// NewEnrollmentID returns a fresh random EnrollmentID.
func NewEnrollmentID() EnrollmentID { return EnrollmentID(uuid.New()) }

// ParseUserID parses a UserID from its string form. Empty strings, malformed
// UUIDs, and the nil UUID are rejected.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user id")
	return UserID(u), err
}

// ParsePolicyID parses a PolicyID from its string form.
func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parse(s, "policy id")
	return PolicyID(u), err
}

// ParseEnrollmentID parses an EnrollmentID from its string form.
func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := parse(s, "enrollment id")
	return EnrollmentID(u), err
}

func parse(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must not be the nil uuid")
	}
	return u, nil
}
