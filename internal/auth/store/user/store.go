// Package user persists subject records. Both implementations enforce the
// same uniqueness facts: email unique case-insensitively, phone pair unique
// among users that have one.
package user

import (
	"fmt"

	"policygate/pkg/platform/sentinel"
)

// Field-specific conflict errors. Both wrap sentinel.ErrConflict so callers
// that only care about "a constraint fired" can match the sentinel, while
// the auth service maps each to the matching user-facing message.
var (
	ErrEmailTaken = fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	ErrPhoneTaken = fmt.Errorf("phone number already registered: %w", sentinel.ErrConflict)
)
