package service

import (
	"context"
	"errors"
	"log/slog"

	"policygate/internal/policy/cache"
	policymetrics "policygate/internal/policy/metrics"
	"policygate/internal/policy/models"
	policystore "policygate/internal/policy/store/policy"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/platform/sentinel"
	"policygate/pkg/requestcontext"
)

type PolicyStore interface {
	CreateIfCodeAvailable(ctx context.Context, p models.Policy) error
	FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	FindByCode(ctx context.Context, code string) (*models.Policy, error)
	List(ctx context.Context) ([]models.Policy, error)
	ListByStatus(ctx context.Context, active bool) ([]models.Policy, error)
	SearchByAmount(ctx context.Context, min, max *float64) ([]models.Policy, error)
	Update(ctx context.Context, p models.Policy) error
}

// Service orchestrates policy CRUD with an optional read-through cache.
// A nil cache disables caching entirely.
type Service struct {
	policies PolicyStore
	cache    *cache.Cache
	logger   *slog.Logger
	metrics  *policymetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *policymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New constructs a Service.
func New(policies PolicyStore, opts ...Option) *Service {
	s := &Service{policies: policies, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries policy creation input.
type CreateRequest struct {
	Code        string
	Name        string
	Description string
	Amount      float64
	Active      *bool
}

// Create validates and persists a new policy. The code pre-check gives a
// fast, specific error; the store's unique constraint remains the
// authoritative guard, and a constraint violation on insert maps to the
// same Conflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Policy, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	p, err := models.NewPolicy(req.Code, req.Name, req.Description, req.Amount, active, requestcontext.Now(ctx))
	if err != nil {
		return models.Policy{}, err
	}

	if _, err := s.policies.FindByCode(ctx, p.Code); err == nil {
		return models.Policy{}, dErrors.New(dErrors.CodeConflict, "a policy with this code already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check policy code")
	}

	if err := s.policies.CreateIfCodeAvailable(ctx, p); err != nil {
		if errors.Is(err, policystore.ErrCodeTaken) {
			return models.Policy{}, dErrors.New(dErrors.CodeConflict, "a policy with this code already exists")
		}
		return models.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
	}
	s.incrementCreated()

	return p, nil
}

// Get returns one policy, consulting the cache first. Cache failures are
// logged and fall through to the store; they never fail the read.
func (s *Service) Get(ctx context.Context, policyID id.PolicyID) (models.Policy, error) {
	if cached, err := s.cache.Get(ctx, policyID); err != nil {
		s.logger.WarnContext(ctx, "policy cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", policyID.String(),
			"error", err.Error(),
		)
	} else if cached != nil {
		s.incrementCacheHit()
		return *cached, nil
	}
	s.incrementCacheMiss()

	p, err := s.policies.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Policy{}, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return models.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}

	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "policy cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", policyID.String(),
			"error", err.Error(),
		)
	}
	return *p, nil
}

// List returns all non-deleted policies, newest-first.
func (s *Service) List(ctx context.Context) ([]models.Policy, error) {
	out, err := s.policies.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return out, nil
}

// ListByStatus returns non-deleted policies filtered by the active flag.
func (s *Service) ListByStatus(ctx context.Context, active bool) ([]models.Policy, error) {
	out, err := s.policies.ListByStatus(ctx, active)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return out, nil
}

// SearchByAmount returns non-deleted policies within the given amount
// bounds. Either bound may be nil; when both are present min must not
// exceed max.
func (s *Service) SearchByAmount(ctx context.Context, min, max *float64) ([]models.Policy, error) {
	if min != nil && max != nil && *min > *max {
		return nil, dErrors.New(dErrors.CodeValidation, "minimum amount must not exceed maximum amount")
	}
	out, err := s.policies.SearchByAmount(ctx, min, max)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search policies")
	}
	return out, nil
}

// UpdateRequest carries the replaceable policy fields. Code is immutable.
type UpdateRequest struct {
	Name        string
	Description string
	Amount      float64
	Active      bool
}

// Update replaces the mutable fields of a policy and invalidates its cache
// entry.
func (s *Service) Update(ctx context.Context, policyID id.PolicyID, req UpdateRequest) (models.Policy, error) {
	p, err := s.load(ctx, policyID)
	if err != nil {
		return models.Policy{}, err
	}

	if err := p.Update(req.Name, req.Description, req.Amount, req.Active, requestcontext.Now(ctx)); err != nil {
		return models.Policy{}, err
	}
	return s.persist(ctx, p)
}

// UpdateStatus flips the active flag.
func (s *Service) UpdateStatus(ctx context.Context, policyID id.PolicyID, active bool) (models.Policy, error) {
	p, err := s.load(ctx, policyID)
	if err != nil {
		return models.Policy{}, err
	}

	p.SetActive(active, requestcontext.Now(ctx))
	return s.persist(ctx, p)
}

// Delete soft-deletes the policy. Deleted policies disappear from reads but
// keep their enrollments intact.
func (s *Service) Delete(ctx context.Context, policyID id.PolicyID) error {
	p, err := s.load(ctx, policyID)
	if err != nil {
		return err
	}

	p.MarkDeleted(requestcontext.Now(ctx))
	_, err = s.persist(ctx, p)
	return err
}

func (s *Service) load(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	p, err := s.policies.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, p *models.Policy) (models.Policy, error) {
	if err := s.policies.Update(ctx, *p); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Policy{}, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return models.Policy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy")
	}
	if err := s.cache.Invalidate(ctx, p.ID); err != nil {
		s.logger.WarnContext(ctx, "policy cache invalidation failed",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", p.ID.String(),
			"error", err.Error(),
		)
	}
	return *p, nil
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
}

func (s *Service) incrementCacheHit() {
	if s.metrics != nil {
		s.metrics.IncrementCacheHit()
	}
}

func (s *Service) incrementCacheMiss() {
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
}
