package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"policygate/internal/auth/models"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
)

// InMemory is the development and unit-test store. The mutex makes every
// check-then-insert atomic, mirroring what the unique indexes guarantee in
// PostgreSQL.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]models.User)}
}

// CreateIfAvailable inserts the user unless the email or phone pair is
// already registered.
func (s *InMemory) CreateIfAvailable(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
		if u.HasPhone() && existing.CountryCode == u.CountryCode && existing.PhoneNumber == u.PhoneNumber {
			return ErrPhoneTaken
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := u
	return &copied, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := u
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByPhone(_ context.Context, countryCode, phoneNumber string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.HasPhone() && u.CountryCode == countryCode && u.PhoneNumber == phoneNumber {
			copied := u
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all users newest-first, matching the database ordering.
func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		copied := u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update persists changed fields, re-checking uniqueness against other users.
func (s *InMemory) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for otherID, existing := range s.users {
		if otherID == u.ID {
			continue
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
		if u.HasPhone() && existing.CountryCode == u.CountryCode && existing.PhoneNumber == u.PhoneNumber {
			return ErrPhoneTaken
		}
	}
	s.users[u.ID] = *u
	return nil
}

// Deactivate flips the active flag in place.
func (s *InMemory) Deactivate(_ context.Context, userID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.Active = false
	u.UpdatedAt = now
	s.users[userID] = u
	return nil
}
