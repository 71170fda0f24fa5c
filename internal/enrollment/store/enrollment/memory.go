package enrollment

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	authmodels "policygate/internal/auth/models"
	"policygate/internal/enrollment/models"
	policymodels "policygate/internal/policy/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

// UserDirectory resolves user ids for denormalized views.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

// PolicyDirectory resolves policy ids for denormalized views.
type PolicyDirectory interface {
	FindByID(ctx context.Context, policyID id.PolicyID) (*policymodels.Policy, error)
}

// InMemory is a map-backed enrollment store guarded by a RWMutex. Views are
// denormalized through the injected directories; a directory miss (a policy
// soft-deleted after enrollment) leaves those view fields blank rather than
// failing the listing.
type InMemory struct {
	mu          sync.RWMutex
	enrollments map[id.EnrollmentID]models.Enrollment

	users    UserDirectory
	policies PolicyDirectory
}

// NewInMemory creates an empty in-memory enrollment store.
func NewInMemory(users UserDirectory, policies PolicyDirectory) *InMemory {
	return &InMemory{
		enrollments: make(map[id.EnrollmentID]models.Enrollment),
		users:       users,
		policies:    policies,
	}
}

// CreateIfAbsent inserts the enrollment unless the user already has a row
// for the policy whose status is in the blocking set. The whole
// check-then-insert runs under the write lock, so racing requests serialize.
func (s *InMemory) CreateIfAbsent(_ context.Context, e models.Enrollment, blocking []models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.PolicyID == e.PolicyID &&
			slices.Contains(blocking, existing.Status) {
			return ErrAlreadyEnrolled
		}
	}
	s.enrollments[e.ID] = e
	return nil
}

// FindByID returns the raw enrollment record.
func (s *InMemory) FindByID(_ context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := e
	return &out, nil
}

// FindViewByID returns the denormalized view of one enrollment.
func (s *InMemory) FindViewByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.View, error) {
	s.mu.RLock()
	e, ok := s.enrollments[enrollmentID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	v := s.view(ctx, e)
	return &v, nil
}

// Resolve transitions the enrollment to the target status if and only if it
// is currently Pending. Returns ErrNotPending when no Pending row matched.
func (s *InMemory) Resolve(_ context.Context, enrollmentID id.EnrollmentID, to models.Status, now time.Time, remarks string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Status != models.StatusPending {
		return ErrNotPending
	}

	var err error
	switch to {
	case models.StatusApproved:
		err = e.ApplyApproval(now, remarks)
	case models.StatusRejected:
		err = e.ApplyRejection(now, remarks)
	default:
		return ErrNotPending
	}
	if err != nil {
		return err
	}
	s.enrollments[enrollmentID] = e
	return nil
}

// ListByUser returns all of a user's enrollments, newest-first.
func (s *InMemory) ListByUser(ctx context.Context, userID id.UserID) ([]models.View, error) {
	return s.collect(ctx, func(e models.Enrollment) bool { return e.UserID == userID }), nil
}

// ListByStatus returns all enrollments in the given status, newest-first.
func (s *InMemory) ListByStatus(ctx context.Context, status models.Status) ([]models.View, error) {
	return s.collect(ctx, func(e models.Enrollment) bool { return e.Status == status }), nil
}

// ListAll returns every enrollment, newest-first.
func (s *InMemory) ListAll(ctx context.Context) ([]models.View, error) {
	return s.collect(ctx, func(models.Enrollment) bool { return true }), nil
}

func (s *InMemory) collect(ctx context.Context, keep func(models.Enrollment) bool) []models.View {
	s.mu.RLock()
	kept := make([]models.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].RequestedAt.After(kept[j].RequestedAt)
	})

	out := make([]models.View, 0, len(kept))
	for _, e := range kept {
		out = append(out, s.view(ctx, e))
	}
	return out
}

func (s *InMemory) view(ctx context.Context, e models.Enrollment) models.View {
	v := models.View{
		ID:           e.ID,
		UserID:       e.UserID,
		PolicyID:     e.PolicyID,
		Status:       e.Status,
		RequestedAt:  e.RequestedAt,
		ApprovedAt:   e.ApprovedAt,
		RejectedAt:   e.RejectedAt,
		AdminRemarks: e.AdminRemarks,
	}
	if u, err := s.users.FindByID(ctx, e.UserID); err == nil {
		v.UserName = u.Name
		v.UserEmail = u.Email
	}
	if p, err := s.policies.FindByID(ctx, e.PolicyID); err == nil {
		v.PolicyCode = p.Code
		v.PolicyName = p.Name
		v.PolicyAmount = p.Amount
	}
	return v
}
