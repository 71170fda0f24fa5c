package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	enrollmetrics "policygate/internal/enrollment/metrics"
	"policygate/internal/enrollment/models"
	enrollstore "policygate/internal/enrollment/store/enrollment"
	policymodels "policygate/internal/policy/models"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/platform/sentinel"
	"policygate/pkg/requestcontext"
)

type EnrollmentStore interface {
	CreateIfAbsent(ctx context.Context, e models.Enrollment, blocking []models.Status) error
	FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	FindViewByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.View, error)
	Resolve(ctx context.Context, enrollmentID id.EnrollmentID, to models.Status, now time.Time, remarks string) error
	ListByUser(ctx context.Context, userID id.UserID) ([]models.View, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.View, error)
	ListAll(ctx context.Context) ([]models.View, error)
}

// PolicyReader resolves the policy an enrollment targets.
type PolicyReader interface {
	Get(ctx context.Context, policyID id.PolicyID) (policymodels.Policy, error)
}

// Service orchestrates the enrollment workflow.
//
// AllowReapply controls the blocking set for new requests: when false (the
// default) any existing enrollment for the pair blocks a new one; when true
// only Pending and Approved block, so a user whose request was rejected may
// apply again.
type Service struct {
	enrollments  EnrollmentStore
	policies     PolicyReader
	allowReapply bool
	logger       *slog.Logger
	metrics      *enrollmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *enrollmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithReapply lets users whose previous request was rejected apply again.
func WithReapply(allow bool) Option {
	return func(s *Service) {
		s.allowReapply = allow
	}
}

// New constructs a Service.
func New(enrollments EnrollmentStore, policies PolicyReader, opts ...Option) *Service {
	s := &Service{enrollments: enrollments, policies: policies, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) blockingStatuses() []models.Status {
	if s.allowReapply {
		return []models.Status{models.StatusPending, models.StatusApproved}
	}
	return []models.Status{models.StatusPending, models.StatusApproved, models.StatusRejected}
}

// Request creates a Pending enrollment for the user in the policy. The
// policy must exist and be active; an existing blocking enrollment yields a
// Conflict. The store's atomic insert is the guard under concurrency, so
// racing duplicate requests admit exactly one row.
func (s *Service) Request(ctx context.Context, userID id.UserID, policyID id.PolicyID) (models.View, error) {
	p, err := s.policies.Get(ctx, policyID)
	if err != nil {
		return models.View{}, err
	}
	if !p.Active {
		return models.View{}, dErrors.New(dErrors.CodeInvalidState, "policy is not open for enrollment")
	}

	e, err := models.NewEnrollment(userID, policyID, requestcontext.Now(ctx))
	if err != nil {
		return models.View{}, err
	}

	if err := s.enrollments.CreateIfAbsent(ctx, e, s.blockingStatuses()); err != nil {
		if errors.Is(err, enrollstore.ErrAlreadyEnrolled) {
			s.incrementDuplicate()
			return models.View{}, dErrors.New(dErrors.CodeConflict, "an enrollment for this policy already exists")
		}
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create enrollment")
	}
	s.incrementRequested()

	return s.viewOf(ctx, e.ID)
}

// ListMine returns the user's own enrollments, any status, newest-first.
func (s *Service) ListMine(ctx context.Context, userID id.UserID) ([]models.View, error) {
	views, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	return views, nil
}

// ListAll returns every enrollment, optionally filtered by status,
// newest-first. Authorization is enforced at the transport layer.
func (s *Service) ListAll(ctx context.Context, status *models.Status) ([]models.View, error) {
	var (
		views []models.View
		err   error
	)
	if status != nil {
		views, err = s.enrollments.ListByStatus(ctx, *status)
	} else {
		views, err = s.enrollments.ListAll(ctx)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	return views, nil
}

// Approve transitions a Pending enrollment to Approved.
func (s *Service) Approve(ctx context.Context, enrollmentID id.EnrollmentID, remarks string) (models.View, error) {
	return s.resolve(ctx, enrollmentID, models.StatusApproved, remarks)
}

// Reject transitions a Pending enrollment to Rejected.
func (s *Service) Reject(ctx context.Context, enrollmentID id.EnrollmentID, remarks string) (models.View, error) {
	return s.resolve(ctx, enrollmentID, models.StatusRejected, remarks)
}

// resolve performs the conditional transition. The store update only
// matches a Pending row; when it matches nothing a re-read tells a missing
// enrollment (NotFound) from an already-resolved one (InvalidState). Of two
// racing admins exactly one wins.
func (s *Service) resolve(ctx context.Context, enrollmentID id.EnrollmentID, to models.Status, remarks string) (models.View, error) {
	if utf8.RuneCountInString(remarks) > 500 {
		return models.View{}, dErrors.New(dErrors.CodeValidation, "remarks must be at most 500 characters")
	}

	err := s.enrollments.Resolve(ctx, enrollmentID, to, requestcontext.Now(ctx), remarks)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.View{}, dErrors.New(dErrors.CodeNotFound, "enrollment not found")
		case errors.Is(err, enrollstore.ErrNotPending):
			return s.resolveConflict(ctx, enrollmentID)
		default:
			return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve enrollment")
		}
	}

	switch to {
	case models.StatusApproved:
		s.incrementApproved()
	case models.StatusRejected:
		s.incrementRejected()
	}
	return s.viewOf(ctx, enrollmentID)
}

// resolveConflict classifies a failed transition: the row is either gone
// (NotFound) or already resolved (InvalidState naming the current status).
func (s *Service) resolveConflict(ctx context.Context, enrollmentID id.EnrollmentID) (models.View, error) {
	e, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.View{}, dErrors.New(dErrors.CodeNotFound, "enrollment not found")
		}
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
	}
	return models.View{}, dErrors.Newf(dErrors.CodeInvalidState,
		"enrollment is already %s", strings.ToLower(e.Status.String()))
}

func (s *Service) viewOf(ctx context.Context, enrollmentID id.EnrollmentID) (models.View, error) {
	v, err := s.enrollments.FindViewByID(ctx, enrollmentID)
	if err != nil {
		return models.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
	}
	return *v, nil
}

func (s *Service) incrementRequested() {
	if s.metrics != nil {
		s.metrics.IncrementRequested()
	}
}

func (s *Service) incrementApproved() {
	if s.metrics != nil {
		s.metrics.IncrementApproved()
	}
}

func (s *Service) incrementRejected() {
	if s.metrics != nil {
		s.metrics.IncrementRejected()
	}
}

func (s *Service) incrementDuplicate() {
	if s.metrics != nil {
		s.metrics.IncrementDuplicate()
	}
}
