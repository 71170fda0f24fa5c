package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policygate/internal/auth/models"
	"policygate/internal/transport/http/shared"
	"policygate/internal/user/service"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/requestcontext"
)

// Service defines the user administration operations the handler needs.
type Service interface {
	List(ctx context.Context) ([]models.Summary, error)
	Get(ctx context.Context, userID id.UserID) (models.Summary, error)
	GetByEmail(ctx context.Context, email string) (models.Summary, error)
	GetByPhone(ctx context.Context, countryCode, phoneNumber string) (models.Summary, error)
	Update(ctx context.Context, userID id.UserID, req service.UpdateRequest) (models.Summary, error)
	Deactivate(ctx context.Context, userID id.UserID) error
}

// Handler exposes the user administration endpoints.
type Handler struct {
	users  Service
	logger *slog.Logger
}

// New creates a new user Handler.
func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// Register registers the single self-readable route on the authenticated
// group. The self-or-admin check lives in the handler because it depends on
// the path parameter.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/{userID}", h.handleGet)
}

// RegisterAdmin registers the administration routes. The caller is expected
// to guard the router with the admin role requirement.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Get("/users/by-email", h.handleGetByEmail)
	r.Get("/users/by-phone", h.handleGetByPhone)
	r.Put("/users/{userID}", h.handleUpdate)
	r.Delete("/users/{userID}", h.handleDeactivate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.users.List(ctx)
	if err != nil {
		h.logFailure(ctx, "list users failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, users)
}

// handleGet serves one user. Users may read only themselves; admins may
// read anyone.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if userID != ident.UserID && !ident.Role.Privileged() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another user"))
		return
	}

	u, err := h.users.Get(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "get user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, u)
}

func (h *Handler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.users.GetByEmail(ctx, r.URL.Query().Get("email"))
	if err != nil {
		h.logFailure(ctx, "get user by email failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, u)
}

func (h *Handler) handleGetByPhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	u, err := h.users.GetByPhone(ctx, q.Get("country_code"), q.Get("phone_number"))
	if err != nil {
		h.logFailure(ctx, "get user by phone failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, u)
}

type updateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, err := h.users.Update(ctx, userID, service.UpdateRequest{
		Name:        req.Name,
		Email:       req.Email,
		CountryCode: req.CountryCode,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.logFailure(ctx, "update user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, "User updated successfully", u)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.users.Deactivate(ctx, userID); err != nil {
		h.logFailure(ctx, "deactivate user failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, "User deactivated successfully", nil)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
