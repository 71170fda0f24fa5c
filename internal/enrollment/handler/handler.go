package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policygate/internal/enrollment/models"
	"policygate/internal/transport/http/shared"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/requestcontext"
)

// Service defines the enrollment operations the handler needs.
type Service interface {
	Request(ctx context.Context, userID id.UserID, policyID id.PolicyID) (models.View, error)
	ListMine(ctx context.Context, userID id.UserID) ([]models.View, error)
	ListAll(ctx context.Context, status *models.Status) ([]models.View, error)
	Approve(ctx context.Context, enrollmentID id.EnrollmentID, remarks string) (models.View, error)
	Reject(ctx context.Context, enrollmentID id.EnrollmentID, remarks string) (models.View, error)
}

// Handler exposes the enrollment workflow endpoints.
type Handler struct {
	enrollments Service
	logger      *slog.Logger
}

// New creates a new enrollment Handler.
func New(enrollments Service, logger *slog.Logger) *Handler {
	return &Handler{enrollments: enrollments, logger: logger}
}

// Register registers the user-facing routes on an authenticated group. The
// user listing allows self or admin; the check is in the handler because it
// depends on the path parameter.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollments/policy/{policyID}/enroll", h.handleRequest)
	r.Get("/enrollments/user/{userID}", h.handleListByUser)
}

// RegisterAdmin registers the review routes. The caller is expected to
// guard the router with the admin role requirement.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/enrollments/admin", h.handleListAll)
	r.Post("/enrollments/admin/{enrollmentID}/approve", h.handleApprove)
	r.Post("/enrollments/admin/{enrollmentID}/reject", h.handleReject)
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ident, ok := requestcontext.Identity(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.enrollments.Request(ctx, ident.UserID, policyID)
	if err != nil {
		h.logFailure(ctx, "enrollment request failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusCreated, "Enrollment request submitted", view)
}

// handleListByUser serves a user's enrollment history. Users may read only
// their own; admins may read anyone's.
func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
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
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot view another user's enrollments"))
		return
	}

	views, err := h.enrollments.ListMine(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "list enrollments failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, views)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		status = &st
	}

	views, err := h.enrollments.ListAll(ctx, status)
	if err != nil {
		h.logFailure(ctx, "list enrollments failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, views)
}

// resolveRequest carries the optional admin remarks. An empty body is
// treated the same as an empty remarks field.
type resolveRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, "Enrollment approved", h.enrollments.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, "Enrollment rejected", h.enrollments.Reject)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, message string,
	resolve func(ctx context.Context, enrollmentID id.EnrollmentID, remarks string) (models.View, error),
) {
	ctx := r.Context()

	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := resolve(ctx, enrollmentID, req.Remarks)
	if err != nil {
		h.logFailure(ctx, "enrollment resolution failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, message, view)
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
