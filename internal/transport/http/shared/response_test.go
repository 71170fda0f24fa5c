package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "policygate/pkg/domain-errors"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWriteData(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteData(rr, http.StatusOK, map[string]string{"k": "v"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(200), body["status_code"])
	assert.Equal(t, "Request processed successfully", body["message"])
	assert.Equal(t, map[string]any{"k": "v"}, body["data"])
	assert.Nil(t, body["error"], "success responses carry a null error")
	assert.Contains(t, rr.Body.String(), `"error":null`)
}

func TestWriteMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteMessage(rr, http.StatusCreated, "Thing created", nil)

	assert.Equal(t, http.StatusCreated, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "Thing created", body["message"])
	assert.Nil(t, body["data"])
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeBadRequest, http.StatusBadRequest},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeForbidden, http.StatusForbidden},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeConflict, http.StatusConflict},
		{dErrors.CodeInvalidState, http.StatusConflict},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, dErrors.New(tc.code, "something happened"))

			assert.Equal(t, tc.status, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, string(tc.code), body["error"])
		})
	}
}

func TestWriteError_MasksInternalCause(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, dErrors.New(dErrors.CodeInternal, "pq: connection refused on 10.0.0.3"))

	body := decode(t, rr)
	assert.Equal(t, "An internal error occurred", body["message"])
	assert.NotContains(t, rr.Body.String(), "10.0.0.3")
}

func TestWriteError_UnknownErrorIsInternal(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "An internal error occurred", body["message"])
}

func TestWriteError_ValidationCarriesViolations(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, dErrors.NewValidation(
		dErrors.FieldViolation{Field: "name", Message: "must be between 3 and 100 characters"},
		dErrors.FieldViolation{Field: "amount", Message: "must be greater than 0 and at most 100000"},
	))

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body struct {
		Data struct {
			Violations []dErrors.FieldViolation `json:"violations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Violations, 2)
	assert.Equal(t, "name", body.Data.Violations[0].Field)
}
