// Package policy persists policy offerings. Both implementations enforce
// code uniqueness among non-deleted rows and exclude soft-deleted rows from
// every read.
package policy

import (
	"fmt"

	"policygate/pkg/platform/sentinel"
)

// ErrCodeTaken signals that another non-deleted policy already holds the
// requested code. Wraps sentinel.ErrConflict for uniform classification.
var ErrCodeTaken = fmt.Errorf("policy code already in use: %w", sentinel.ErrConflict)
