// Package shared centralizes the JSON response envelope and domain-error
// translation so every module handler answers in the same shape.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "policygate/pkg/domain-errors"
)

// Envelope is the uniform response body for every operation. Error is a
// pointer so success responses carry an explicit null.
type Envelope struct {
	Success    bool    `json:"success"`
	StatusCode int     `json:"status_code"`
	Message    string  `json:"message"`
	Data       any     `json:"data"`
	Error      *string `json:"error"`
	RequestID  string  `json:"request_id,omitempty"`
}

const defaultSuccessMessage = "Request processed successfully"

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    defaultSuccessMessage,
		Data:       data,
	})
}

// WriteMessage writes a success envelope with a custom message.
func WriteMessage(w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(w, Envelope{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// WriteError translates a domain error into the envelope. Internal failures
// never leak their cause; every other kind carries its service message.
// Validation errors additionally enumerate per-field violations in data.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := httpStatus(code)

	message := err.Error()
	if code == dErrors.CodeInternal {
		message = "An internal error occurred"
	}

	errCode := string(code)
	env := Envelope{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Error:      &errCode,
	}
	if violations := dErrors.ViolationsOf(err); len(violations) > 0 {
		env.Data = map[string]any{"violations": violations}
	}
	writeEnvelope(w, env)
}

func httpStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
