package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policygate/internal/auth/password"
	"policygate/internal/auth/service"
	userstore "policygate/internal/auth/store/user"
	"policygate/pkg/requestcontext"
	"policygate/pkg/testutil"
)

type fixedTokens struct{}

func (fixedTokens) GenerateAccessToken(requestcontext.UserIdentity, time.Time) (string, error) {
	return "handler-test-token", nil
}

func newRouter(t *testing.T) chi.Router {
	t.Helper()

	svc := service.New(userstore.NewInMemory(), password.NewHasher("handler-secret"), fixedTokens{})
	h := New(svc, slog.Default())

	r := chi.NewRouter()
	h.Register(r)
	return r
}

func registerBody() map[string]any {
	return map[string]any{
		"name":     "Alice Example",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	}
}

func TestHandleRegister(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", registerBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	env := testutil.UnmarshalEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)

	type summary struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	got := testutil.UnmarshalData[summary](t, rr)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "user", got.Role)
}

func TestHandleRegister_MalformedBody(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/auth/register", "{not json"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestHandleRegister_ValidationViolations(t *testing.T) {
	r := newRouter(t)

	body := registerBody()
	body["name"] = "Al"
	body["email"] = "not-an-email"

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", body))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")

	type violations struct {
		Violations []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"violations"`
	}
	got := testutil.UnmarshalData[violations](t, rr)
	require.Len(t, got.Violations, 2)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", registerBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", registerBody()))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func TestHandleLogin(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", registerBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	env := testutil.UnmarshalEnvelope(t, rr)
	assert.Equal(t, "Login successful", env.Message)

	type loginData struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	got := testutil.UnmarshalData[loginData](t, rr)
	assert.Equal(t, "handler-test-token", got.Token)
	assert.Equal(t, "alice@example.com", got.User.Email)
}

func TestHandleLogin_ByPhone(t *testing.T) {
	r := newRouter(t)

	body := registerBody()
	body["country_code"] = "+1"
	body["phone_number"] = "5551234"
	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"type":         "phone",
		"country_code": "+1",
		"phone_number": "5551234",
		"password":     "s3cret-pass",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", registerBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	env := testutil.UnmarshalEnvelope(t, rr)
	assert.Equal(t, "invalid email or password", env.Message)
}

func TestHandleLogin_UnknownType(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]any{
		"type":     "fax",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}
