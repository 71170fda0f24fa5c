package testutil

import (
	"net/http"
	"time"

	id "policygate/pkg/domain"
	"policygate/pkg/requestcontext"
)

// WithIdentity attaches an authenticated identity to the request context,
// simulating what the auth middleware does after validating a token.
func WithIdentity(req *http.Request, ident requestcontext.UserIdentity) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), ident))
}

// AsUser attaches a plain-user identity with the given id.
func AsUser(req *http.Request, userID id.UserID) *http.Request {
	return WithIdentity(req, requestcontext.UserIdentity{
		UserID: userID,
		Email:  "user@example.com",
		Name:   "Test User",
		Role:   id.RoleUser,
	})
}

// AsAdmin attaches an admin identity with the given id.
func AsAdmin(req *http.Request, userID id.UserID) *http.Request {
	return WithIdentity(req, requestcontext.UserIdentity{
		UserID: userID,
		Email:  "admin@example.com",
		Name:   "Test Admin",
		Role:   id.RoleAdmin,
	})
}

// WithRequestID attaches a correlation id to the request context.
func WithRequestID(req *http.Request, rid string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), rid))
}

// WithTime pins the request clock so handlers observe a deterministic now.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
