package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
)

// User is the aggregate root for a registered subject.
//
// Invariants:
//   - Email is unique case-insensitively across all users
//   - (CountryCode, PhoneNumber) is unique together when both are present,
//     and is all-or-none: a user has either the full pair or neither
//   - Users are never hard-deleted; deactivation flips Active to false
//   - PasswordHash never leaves the auth module (Summary strips it)
//
// Uniqueness is pre-checked by the service for a friendly error and enforced
// by the store's constraints, which are the authoritative guard under
// concurrency.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string
	Role         id.Role
	CountryCode  string
	PhoneNumber  string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPhone reports whether the user registered a phone pair.
func (u *User) HasPhone() bool {
	return u.CountryCode != "" && u.PhoneNumber != ""
}

// Deactivate flips the active flag. Inactive users cannot log in.
func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.UpdatedAt = now
}

// UpdateProfile replaces the mutable profile fields after validating them.
// Role and credentials are not touched here. Uniqueness of the new email or
// phone pair is the store's concern.
func (u *User) UpdateProfile(name, email, countryCode, phoneNumber string, now time.Time) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	countryCode = strings.TrimSpace(countryCode)
	phoneNumber = strings.TrimSpace(phoneNumber)

	var violations []dErrors.FieldViolation
	if l := utf8.RuneCountInString(name); l < 3 || l > 100 {
		violations = append(violations, dErrors.FieldViolation{Field: "name", Message: "must be between 3 and 100 characters"})
	}
	if l := utf8.RuneCountInString(email); l < 5 || l > 100 {
		violations = append(violations, dErrors.FieldViolation{Field: "email", Message: "must be between 5 and 100 characters"})
	} else if _, err := mail.ParseAddress(email); err != nil {
		violations = append(violations, dErrors.FieldViolation{Field: "email", Message: "must be a valid email address"})
	}
	if (countryCode == "") != (phoneNumber == "") {
		violations = append(violations, dErrors.FieldViolation{Field: "phone_number", Message: "country code and phone number must be provided together"})
	}
	if len(violations) > 0 {
		return dErrors.NewValidation(violations...)
	}

	u.Name = name
	u.Email = email
	u.CountryCode = countryCode
	u.PhoneNumber = phoneNumber
	u.UpdatedAt = now
	return nil
}

// Summary is the externally visible projection of a user. It exists so the
// credential hash cannot leak into a response by accident.
type Summary struct {
	ID          id.UserID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        id.Role   `json:"role"`
	CountryCode string    `json:"country_code,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary projects the user without the credential hash.
func (u *User) Summary() Summary {
	return Summary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		CountryCode: u.CountryCode,
		PhoneNumber: u.PhoneNumber,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewUser validates and constructs a user. passwordHash must already be
// hashed; raw passwords never reach the model.
func NewUser(userID id.UserID, name, email, passwordHash string, role id.Role, countryCode, phoneNumber string, active bool, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	countryCode = strings.TrimSpace(countryCode)
	phoneNumber = strings.TrimSpace(phoneNumber)

	var violations []dErrors.FieldViolation
	if l := utf8.RuneCountInString(name); l < 3 || l > 100 {
		violations = append(violations, dErrors.FieldViolation{Field: "name", Message: "must be between 3 and 100 characters"})
	}
	if l := utf8.RuneCountInString(email); l < 5 || l > 100 {
		violations = append(violations, dErrors.FieldViolation{Field: "email", Message: "must be between 5 and 100 characters"})
	} else if _, err := mail.ParseAddress(email); err != nil {
		violations = append(violations, dErrors.FieldViolation{Field: "email", Message: "must be a valid email address"})
	}
	if passwordHash == "" {
		violations = append(violations, dErrors.FieldViolation{Field: "password", Message: "is required"})
	}
	if _, err := id.ParseRole(role.String()); err != nil {
		violations = append(violations, dErrors.FieldViolation{Field: "role", Message: "must be user or admin"})
	}
	if (countryCode == "") != (phoneNumber == "") {
		violations = append(violations, dErrors.FieldViolation{Field: "phone_number", Message: "country code and phone number must be provided together"})
	}
	if len(violations) > 0 {
		return nil, dErrors.NewValidation(violations...)
	}

	return &User{
		ID:           userID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CountryCode:  countryCode,
		PhoneNumber:  phoneNumber,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
