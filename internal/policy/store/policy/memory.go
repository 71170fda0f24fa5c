package policy

import (
	"context"
	"sort"
	"strings"
	"sync"

	"policygate/internal/policy/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

// InMemory is a map-backed policy store guarded by a RWMutex. Used by unit
// tests and by deployments without a database.
type InMemory struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]models.Policy
}

// NewInMemory creates an empty in-memory policy store.
func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[id.PolicyID]models.Policy)}
}

// CreateIfCodeAvailable inserts the policy unless a non-deleted policy with
// the same code (case-insensitive) already exists.
func (s *InMemory) CreateIfCodeAvailable(_ context.Context, p models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.policies {
		if !existing.Deleted() && strings.EqualFold(existing.Code, p.Code) {
			return ErrCodeTaken
		}
	}
	s.policies[p.ID] = p
	return nil
}

// FindByID looks up a non-deleted policy.
func (s *InMemory) FindByID(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[policyID]
	if !ok || p.Deleted() {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

// FindByCode looks up a non-deleted policy by code, case-insensitively.
func (s *InMemory) FindByCode(_ context.Context, code string) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if !p.Deleted() && strings.EqualFold(p.Code, code) {
			out := p
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all non-deleted policies, newest-first.
func (s *InMemory) List(_ context.Context) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(models.Policy) bool { return true }), nil
}

// ListByStatus returns non-deleted policies filtered by the active flag,
// newest-first.
func (s *InMemory) ListByStatus(_ context.Context, active bool) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(p models.Policy) bool { return p.Active == active }), nil
}

// SearchByAmount returns non-deleted policies whose amount falls inside the
// given bounds. A nil bound is open on that side.
func (s *InMemory) SearchByAmount(_ context.Context, min, max *float64) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(p models.Policy) bool {
		if min != nil && p.Amount < *min {
			return false
		}
		if max != nil && p.Amount > *max {
			return false
		}
		return true
	}), nil
}

// Update replaces a stored policy. The caller is expected to have loaded,
// validated, and mutated the model first.
func (s *InMemory) Update(_ context.Context, p models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.policies[p.ID]
	if !ok || existing.Deleted() {
		return sentinel.ErrNotFound
	}
	s.policies[p.ID] = p
	return nil
}

func (s *InMemory) collect(keep func(models.Policy) bool) []models.Policy {
	out := make([]models.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.Deleted() || !keep(p) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
