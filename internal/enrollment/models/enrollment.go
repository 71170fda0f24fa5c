package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
)

const remarksMaxLen = 500

// Status is the closed set of enrollment workflow states.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown enrollment status %q", s)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// Enrollment is one user's request to enroll in one policy.
//
// Invariants:
//   - New enrollments always start Pending
//   - Approved and Rejected are terminal; a resolved enrollment never
//     changes again
//   - A user has at most one Pending enrollment per policy
type Enrollment struct {
	ID           id.EnrollmentID
	UserID       id.UserID
	PolicyID     id.PolicyID
	Status       Status
	RequestedAt  time.Time
	ApprovedAt   *time.Time
	RejectedAt   *time.Time
	AdminRemarks string
}

// NewEnrollment builds a Pending enrollment for the given user and policy.
func NewEnrollment(userID id.UserID, policyID id.PolicyID, now time.Time) (Enrollment, error) {
	if userID.IsZero() {
		return Enrollment{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if policyID.IsZero() {
		return Enrollment{}, dErrors.New(dErrors.CodeValidation, "policy id is required")
	}
	return Enrollment{
		ID:          id.NewEnrollmentID(),
		UserID:      userID,
		PolicyID:    policyID,
		Status:      StatusPending,
		RequestedAt: now,
	}, nil
}

// CanResolve reports whether the enrollment may still be approved or
// rejected.
func (e *Enrollment) CanResolve() bool {
	return e.Status == StatusPending
}

// ApplyApproval transitions Pending to Approved, stamping the resolution
// time and remarks.
func (e *Enrollment) ApplyApproval(now time.Time, remarks string) error {
	if err := e.checkResolvable(remarks); err != nil {
		return err
	}
	t := now
	e.Status = StatusApproved
	e.ApprovedAt = &t
	e.AdminRemarks = remarks
	return nil
}

// ApplyRejection transitions Pending to Rejected, stamping the resolution
// time and remarks.
func (e *Enrollment) ApplyRejection(now time.Time, remarks string) error {
	if err := e.checkResolvable(remarks); err != nil {
		return err
	}
	t := now
	e.Status = StatusRejected
	e.RejectedAt = &t
	e.AdminRemarks = remarks
	return nil
}

func (e *Enrollment) checkResolvable(remarks string) error {
	if !e.CanResolve() {
		return dErrors.Newf(dErrors.CodeInvalidState, "enrollment is already %s", strings.ToLower(e.Status.String()))
	}
	if utf8.RuneCountInString(remarks) > remarksMaxLen {
		return dErrors.New(dErrors.CodeValidation, "remarks must be at most 500 characters")
	}
	return nil
}

// View is an enrollment joined with the subject and policy it references.
// Stores produce Views so listings avoid N+1 lookups.
type View struct {
	ID           id.EnrollmentID `json:"id"`
	UserID       id.UserID       `json:"user_id"`
	UserName     string          `json:"user_name"`
	UserEmail    string          `json:"user_email"`
	PolicyID     id.PolicyID     `json:"policy_id"`
	PolicyCode   string          `json:"policy_code"`
	PolicyName   string          `json:"policy_name"`
	PolicyAmount float64         `json:"policy_amount"`
	Status       Status          `json:"status"`
	RequestedAt  time.Time       `json:"requested_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	RejectedAt   *time.Time      `json:"rejected_at,omitempty"`
	AdminRemarks string          `json:"admin_remarks,omitempty"`
}
