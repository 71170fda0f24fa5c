package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policygate/internal/auth/models"
	userstore "policygate/internal/auth/store/user"
	"policygate/internal/user/service"
	id "policygate/pkg/domain"
	"policygate/pkg/testutil"
)

type summaryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

func newEnv(t *testing.T) (chi.Router, *userstore.InMemory, id.UserID) {
	t.Helper()

	store := userstore.NewInMemory()
	u, err := models.NewUser(id.NewUserID(), "Alice Example", "alice@example.com", "hash",
		id.RoleUser, "", "", true, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.CreateIfAvailable(context.Background(), u))

	h := New(service.New(store), slog.Default())

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r, store, u.ID
}

func TestHandleGet_Self(t *testing.T) {
	r, _, userID := newEnv(t)

	req := testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/users/"+userID.String()), userID)
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	got := testutil.UnmarshalData[summaryResponse](t, rr)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestHandleGet_OtherForbidden(t *testing.T) {
	r, _, userID := newEnv(t)

	req := testutil.AsUser(testutil.NewRequest(t, http.MethodGet, "/users/"+userID.String()), id.NewUserID())
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
}

func TestHandleGet_AdminMayReadAnyone(t *testing.T) {
	r, _, userID := newEnv(t)

	req := testutil.AsAdmin(testutil.NewRequest(t, http.MethodGet, "/users/"+userID.String()), id.NewUserID())
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestHandleGet_NoIdentity(t *testing.T) {
	r, _, userID := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/"+userID.String()))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestHandleList(t *testing.T) {
	r, _, _ := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	got := testutil.UnmarshalData[[]summaryResponse](t, rr)
	assert.Len(t, got, 1)
}

func TestHandleGetByEmail(t *testing.T) {
	r, _, userID := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/by-email?email=ALICE@example.com"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	got := testutil.UnmarshalData[summaryResponse](t, rr)
	assert.Equal(t, userID.String(), got.ID)
}

func TestHandleGetByEmail_Missing(t *testing.T) {
	r, _, _ := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/by-email"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestHandleGetByEmail_Unknown(t *testing.T) {
	r, _, _ := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/by-email?email=nobody@example.com"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestHandleGetByPhone(t *testing.T) {
	r, store, _ := newEnv(t)

	u, err := models.NewUser(id.NewUserID(), "Bob Example", "bob@example.com", "hash",
		id.RoleUser, "+91", "9876543210", true, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.CreateIfAvailable(context.Background(), u))

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet,
		"/users/by-phone?country_code=%2B91&phone_number=9876543210"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	got := testutil.UnmarshalData[summaryResponse](t, rr)
	assert.Equal(t, "bob@example.com", got.Email)
}

func TestHandleGetByPhone_Missing(t *testing.T) {
	r, _, _ := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/by-phone?country_code=%2B91"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestHandleUpdate(t *testing.T) {
	r, _, userID := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPut, "/users/"+userID.String(), map[string]any{
		"name":  "Alice Renamed",
		"email": "renamed@example.com",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	env := testutil.UnmarshalEnvelope(t, rr)
	assert.Equal(t, "User updated successfully", env.Message)

	got := testutil.UnmarshalData[summaryResponse](t, rr)
	assert.Equal(t, "renamed@example.com", got.Email)
}

func TestHandleUpdate_Validation(t *testing.T) {
	r, _, userID := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPut, "/users/"+userID.String(), map[string]any{
		"name":  "Al",
		"email": "renamed@example.com",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestHandleDeactivate(t *testing.T) {
	r, store, userID := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/users/"+userID.String()))
	testutil.AssertStatus(t, rr, http.StatusOK)

	u, err := store.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestHandleDeactivate_NotFound(t *testing.T) {
	r, _, _ := newEnv(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodDelete, "/users/"+id.NewUserID().String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
