// Package service implements user administration on top of the same store
// the auth module writes to. Mutations here never touch credentials and
// never hard-delete.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"policygate/internal/auth/models"
	userstore "policygate/internal/auth/store/user"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/platform/sentinel"
	"policygate/pkg/requestcontext"
)

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, countryCode, phoneNumber string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Deactivate(ctx context.Context, userID id.UserID, now time.Time) error
}

// Service administers user accounts.
type Service struct {
	users  UserStore
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(users UserStore, opts ...Option) *Service {
	s := &Service{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all users, newest-first.
func (s *Service) List(ctx context.Context) ([]models.Summary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	out := make([]models.Summary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, userID id.UserID) (models.Summary, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return models.Summary{}, err
	}
	return u.Summary(), nil
}

// GetByEmail returns the user registered under email, matched
// case-insensitively by the store.
func (s *Service) GetByEmail(ctx context.Context, email string) (models.Summary, error) {
	if strings.TrimSpace(email) == "" {
		return models.Summary{}, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Summary{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u.Summary(), nil
}

// GetByPhone returns the user registered under the country code and phone
// number pair.
func (s *Service) GetByPhone(ctx context.Context, countryCode, phoneNumber string) (models.Summary, error) {
	if strings.TrimSpace(countryCode) == "" || strings.TrimSpace(phoneNumber) == "" {
		return models.Summary{}, dErrors.New(dErrors.CodeValidation, "country code and phone number are required")
	}
	u, err := s.users.FindByPhone(ctx, countryCode, phoneNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Summary{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u.Summary(), nil
}

// UpdateRequest carries the replaceable profile fields.
type UpdateRequest struct {
	Name        string
	Email       string
	CountryCode string
	PhoneNumber string
}

// Update replaces a user's profile fields. The store re-checks email and
// phone uniqueness, so a change that collides with another user yields the
// same Conflict as registration would.
func (s *Service) Update(ctx context.Context, userID id.UserID, req UpdateRequest) (models.Summary, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return models.Summary{}, err
	}

	if err := u.UpdateProfile(req.Name, req.Email, req.CountryCode, req.PhoneNumber, requestcontext.Now(ctx)); err != nil {
		return models.Summary{}, err
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, userstore.ErrEmailTaken):
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
		case errors.Is(err, userstore.ErrPhoneTaken):
			return models.Summary{}, dErrors.New(dErrors.CodeConflict, "a user with this phone number already exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return models.Summary{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		default:
			return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
	}
	return u.Summary(), nil
}

// Deactivate flips the account inactive. Deactivation is idempotent and is
// the only removal the system offers.
func (s *Service) Deactivate(ctx context.Context, userID id.UserID) error {
	if err := s.users.Deactivate(ctx, userID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
	}
	return nil
}

func (s *Service) load(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}
