//go:build integration

package enrollment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	authmodels "policygate/internal/auth/models"
	userstore "policygate/internal/auth/store/user"
	"policygate/internal/enrollment/models"
	"policygate/internal/enrollment/store/enrollment"
	policymodels "policygate/internal/policy/models"
	policystore "policygate/internal/policy/store/policy"
	id "policygate/pkg/domain"
	"policygate/pkg/platform/sentinel"
	"policygate/pkg/testutil/containers"
)

var blockingDefault = []models.Status{models.StatusPending, models.StatusApproved, models.StatusRejected}

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *enrollment.PostgresStore
	users    *userstore.PostgresStore
	policies *policystore.PostgresStore

	userID   id.UserID
	policyID id.PolicyID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = enrollment.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)
	s.policies = policystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "policy_enrollments", "policies", "users"))

	now := time.Now().UTC()
	u := &authmodels.User{
		ID:           id.NewUserID(),
		Name:         "Enroll User",
		Email:        "enroll+" + uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         id.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.users.CreateIfAvailable(ctx, u))
	s.userID = u.ID

	p := policymodels.Policy{
		ID:        id.NewPolicyID(),
		Code:      "ENR-" + uuid.NewString()[:8],
		Name:      "Enrollment Policy",
		Amount:    499.99,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.policies.CreateIfCodeAvailable(ctx, p))
	s.policyID = p.ID
}

func (s *PostgresStoreSuite) newEnrollment() models.Enrollment {
	e, err := models.NewEnrollment(s.userID, s.policyID, time.Now().UTC())
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) TestCreateAndFindView() {
	ctx := context.Background()
	e := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, e, blockingDefault))

	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)

	view, err := s.store.FindViewByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Enroll User", view.UserName)
	s.Equal(499.99, view.PolicyAmount)
	s.NotEmpty(view.PolicyCode)
}

func (s *PostgresStoreSuite) TestDuplicateBlocked() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, s.newEnrollment(), blockingDefault))

	err := s.store.CreateIfAbsent(ctx, s.newEnrollment(), blockingDefault)
	s.ErrorIs(err, enrollment.ErrAlreadyEnrolled)
}

func (s *PostgresStoreSuite) TestReapplyAfterRejection() {
	ctx := context.Background()
	first := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, first, blockingDefault))
	s.Require().NoError(s.store.Resolve(ctx, first.ID, models.StatusRejected, time.Now().UTC(), "incomplete"))

	// Rejected in the blocking set keeps the user out.
	err := s.store.CreateIfAbsent(ctx, s.newEnrollment(), blockingDefault)
	s.ErrorIs(err, enrollment.ErrAlreadyEnrolled)

	// Without it the fresh request goes through.
	reapply := []models.Status{models.StatusPending, models.StatusApproved}
	s.NoError(s.store.CreateIfAbsent(ctx, s.newEnrollment(), reapply))
}

// TestConcurrentCreate verifies the conditional insert and the partial
// unique index together admit exactly one of many racing duplicate requests.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	ctx := context.Background()
	const goroutines = 50

	candidates := make([]models.Enrollment, goroutines)
	for i := range candidates {
		candidates[i] = s.newEnrollment()
	}

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(e models.Enrollment) {
			defer wg.Done()

			err := s.store.CreateIfAbsent(ctx, e, blockingDefault)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, enrollment.ErrAlreadyEnrolled) {
				conflictCount.Add(1)
			}
		}(candidates[i])
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one request should be admitted")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should see the conflict")
}

func (s *PostgresStoreSuite) TestResolve() {
	ctx := context.Background()
	e := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, e, blockingDefault))

	s.Require().NoError(s.store.Resolve(ctx, e.ID, models.StatusApproved, time.Now().UTC(), "verified"))

	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
	s.NotNil(got.ApprovedAt)
	s.Nil(got.RejectedAt)
	s.Equal("verified", got.AdminRemarks)

	// The terminal state refuses any further transition.
	err = s.store.Resolve(ctx, e.ID, models.StatusRejected, time.Now().UTC(), "")
	s.ErrorIs(err, enrollment.ErrNotPending)
}

func (s *PostgresStoreSuite) TestResolve_Missing() {
	err := s.store.Resolve(context.Background(), id.NewEnrollmentID(), models.StatusApproved, time.Now().UTC(), "")
	s.ErrorIs(err, enrollment.ErrNotPending)
}

// TestConcurrentResolve verifies the conditional update elects exactly one
// winner of two racing admins.
func (s *PostgresStoreSuite) TestConcurrentResolve() {
	ctx := context.Background()
	e := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, e, blockingDefault))

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for _, to := range []models.Status{models.StatusApproved, models.StatusRejected} {
		wg.Add(1)
		go func(target models.Status) {
			defer wg.Done()

			err := s.store.Resolve(ctx, e.ID, target, time.Now().UTC(), "")
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, enrollment.ErrNotPending) {
				conflictCount.Add(1)
			}
		}(to)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(1), conflictCount.Load())

	got, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.True(got.Status.Terminal())
}

func (s *PostgresStoreSuite) TestListings() {
	ctx := context.Background()

	first := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, first, nil))
	s.Require().NoError(s.store.Resolve(ctx, first.ID, models.StatusRejected, time.Now().UTC(), ""))

	second := s.newEnrollment()
	second.RequestedAt = time.Now().UTC().Add(time.Second)
	s.Require().NoError(s.store.CreateIfAbsent(ctx, second, nil))

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.ID, all[0].ID, "newest first")

	mine, err := s.store.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Len(mine, 2)

	pending, err := s.store.ListByStatus(ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)
}

// TestViewSurvivesPolicyDeletion verifies the listing join keeps enrollment
// history visible after the policy is soft-deleted.
func (s *PostgresStoreSuite) TestViewSurvivesPolicyDeletion() {
	ctx := context.Background()
	e := s.newEnrollment()
	s.Require().NoError(s.store.CreateIfAbsent(ctx, e, blockingDefault))

	p, err := s.policies.FindByID(ctx, s.policyID)
	s.Require().NoError(err)
	p.MarkDeleted(time.Now().UTC())
	s.Require().NoError(s.policies.Update(ctx, *p))

	view, err := s.store.FindViewByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(p.Code, view.PolicyCode)
	s.Equal(p.Amount, view.PolicyAmount)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewEnrollmentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
