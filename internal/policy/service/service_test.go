package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policygate/internal/policy/models"
	policystore "policygate/internal/policy/store/policy"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
)

func newTestService(t *testing.T) (*Service, *policystore.InMemory) {
	t.Helper()
	store := policystore.NewInMemory()
	return New(store), store
}

func validCreate() CreateRequest {
	return CreateRequest{
		Code:        "GOLD",
		Name:        "Gold Plan",
		Description: "Comprehensive cover",
		Amount:      499.99,
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, "GOLD", p.Code)
	assert.True(t, p.Active, "active defaults to true")
	assert.False(t, p.ID.IsZero())
}

func TestCreate_ExplicitInactive(t *testing.T) {
	svc, _ := newTestService(t)

	inactive := false
	req := validCreate()
	req.Active = &inactive

	p, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, p.Active)
}

func TestCreate_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	req := validCreate()
	req.Amount = -1

	_, err := svc.Create(context.Background(), req)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	req := validCreate()
	req.Code = "gold"
	_, err = svc.Create(ctx, req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Contains(t, err.Error(), "code already exists")
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Code, got.Code)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), id.NewPolicyID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSearchByAmount_InvertedBounds(t *testing.T) {
	svc, _ := newTestService(t)

	min, max := 500.0, 100.0
	_, err := svc.SearchByAmount(context.Background(), &min, &max)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSearchByAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	cheap := validCreate()
	cheap.Code = "BASIC"
	cheap.Amount = 50
	_, err = svc.Create(ctx, cheap)
	require.NoError(t, err)

	min := 100.0
	got, err := svc.SearchByAmount(ctx, &min, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GOLD", got[0].Code)
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateRequest{
		Name:        "Gold Plan v2",
		Description: "Refreshed",
		Amount:      750,
		Active:      false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gold Plan v2", updated.Name)
	assert.Equal(t, 750.0, updated.Amount)
	assert.False(t, updated.Active)
	assert.Equal(t, "GOLD", updated.Code)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), id.NewPolicyID(), UpdateRequest{
		Name: "Gold Plan v2", Amount: 100, Active: true,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	listed, err := svc.ListByStatus(ctx, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	err = svc.Delete(ctx, created.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "second delete finds nothing")
}

func TestDelete_FreesCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	replacement, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, replacement.ID)
}

// failingStore errors on every call so internal mapping can be exercised.
type failingStore struct {
	policystore.InMemory
	err error
}

func (f *failingStore) List(context.Context) ([]models.Policy, error) { return nil, f.err }

func TestList_StoreFailure(t *testing.T) {
	svc := New(&failingStore{err: errors.New("connection refused")})

	_, err := svc.List(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
