package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
)

const (
	codeMinLen        = 2
	codeMaxLen        = 20
	nameMinLen        = 3
	nameMaxLen        = 100
	descriptionMaxLen = 500
	amountMax         = 100000
)

// Policy is an enrollable offering.
//
// Invariants:
//   - Code is unique among non-deleted policies
//   - Amount is strictly positive and capped
//   - Policies are never hard-deleted; Delete stamps DeletedAt and reads
//     exclude deleted rows
type Policy struct {
	ID          id.PolicyID
	Code        string
	Name        string
	Description string
	Amount      float64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// NewPolicy validates the inputs and builds a new active Policy.
func NewPolicy(code, name, description string, amount float64, active bool, now time.Time) (Policy, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if violations := validateFields(code, name, description, amount); len(violations) > 0 {
		return Policy{}, dErrors.NewValidation(violations...)
	}

	return Policy{
		ID:          id.NewPolicyID(),
		Code:        code,
		Name:        name,
		Description: description,
		Amount:      amount,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update replaces the mutable fields after validating them. Code is fixed
// for the life of the policy.
func (p *Policy) Update(name, description string, amount float64, active bool, now time.Time) error {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if violations := validateFields(p.Code, name, description, amount); len(violations) > 0 {
		return dErrors.NewValidation(violations...)
	}

	p.Name = name
	p.Description = description
	p.Amount = amount
	p.Active = active
	p.UpdatedAt = now
	return nil
}

// SetActive flips the availability flag.
func (p *Policy) SetActive(active bool, now time.Time) {
	p.Active = active
	p.UpdatedAt = now
}

// MarkDeleted stamps the soft-delete marker. Deleted policies stay in
// storage but disappear from reads.
func (p *Policy) MarkDeleted(now time.Time) {
	t := now
	p.DeletedAt = &t
	p.UpdatedAt = now
}

// Deleted reports whether the policy has been soft-deleted.
func (p *Policy) Deleted() bool {
	return p.DeletedAt != nil
}

func validateFields(code, name, description string, amount float64) []dErrors.FieldViolation {
	var violations []dErrors.FieldViolation

	if l := utf8.RuneCountInString(code); l < codeMinLen || l > codeMaxLen {
		violations = append(violations, dErrors.FieldViolation{
			Field:   "code",
			Message: "must be between 2 and 20 characters",
		})
	}
	if l := utf8.RuneCountInString(name); l < nameMinLen || l > nameMaxLen {
		violations = append(violations, dErrors.FieldViolation{
			Field:   "name",
			Message: "must be between 3 and 100 characters",
		})
	}
	if utf8.RuneCountInString(description) > descriptionMaxLen {
		violations = append(violations, dErrors.FieldViolation{
			Field:   "description",
			Message: "must be at most 500 characters",
		})
	}
	if amount <= 0 || amount > amountMax {
		violations = append(violations, dErrors.FieldViolation{
			Field:   "amount",
			Message: "must be greater than 0 and at most 100000",
		})
	}
	return violations
}
