// Package enrollment persists enrollment requests and their workflow state.
//
// Both implementations give the same two atomicity guarantees:
//
//   - CreateIfAbsent admits at most one new enrollment when racing requests
//     arrive for the same (user, policy); in PostgreSQL the partial unique
//     index on Pending rows is the authoritative guard.
//   - Resolve transitions a Pending row exactly once; of two racing admins
//     one wins and the other observes ErrNotPending.
package enrollment

import (
	"fmt"

	"policygate/pkg/platform/sentinel"
)

// ErrAlreadyEnrolled signals that a blocking enrollment already exists for
// the (user, policy) pair. Wraps sentinel.ErrConflict.
var ErrAlreadyEnrolled = fmt.Errorf("enrollment already exists for this policy: %w", sentinel.ErrConflict)

// ErrNotPending signals that a resolution found no Pending row to
// transition. The caller re-reads to tell a missing enrollment from an
// already-resolved one. Wraps sentinel.ErrInvalidState.
var ErrNotPending = fmt.Errorf("enrollment is not pending: %w", sentinel.ErrInvalidState)
