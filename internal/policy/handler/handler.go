package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"policygate/internal/policy/models"
	"policygate/internal/policy/service"
	"policygate/internal/transport/http/shared"
	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/requestcontext"
)

// Service defines the policy operations the handler needs.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (models.Policy, error)
	Get(ctx context.Context, policyID id.PolicyID) (models.Policy, error)
	List(ctx context.Context) ([]models.Policy, error)
	ListByStatus(ctx context.Context, active bool) ([]models.Policy, error)
	SearchByAmount(ctx context.Context, min, max *float64) ([]models.Policy, error)
	Update(ctx context.Context, policyID id.PolicyID, req service.UpdateRequest) (models.Policy, error)
	UpdateStatus(ctx context.Context, policyID id.PolicyID, active bool) (models.Policy, error)
	Delete(ctx context.Context, policyID id.PolicyID) error
}

// Handler exposes the policy CRUD endpoints. Reads are registered on the
// authenticated group, mutations on the admin group.
type Handler struct {
	policies Service
	logger   *slog.Logger
}

// New creates a new policy Handler.
func New(policies Service, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, logger: logger}
}

// Register registers the read routes, available to any authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Get("/policies", h.handleList)
	r.Get("/policies/{policyID}", h.handleGet)
}

// RegisterAdmin registers the mutation routes. The caller is expected to
// guard the router with the admin role requirement.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/policies", h.handleCreate)
	r.Put("/policies/{policyID}", h.handleUpdate)
	r.Patch("/policies/{policyID}/status", h.handleUpdateStatus)
	r.Delete("/policies/{policyID}", h.handleDelete)
}

type policyResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(p models.Policy) policyResponse {
	return policyResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Amount:      p.Amount,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toResponses(policies []models.Policy) []policyResponse {
	out := make([]policyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, toResponse(p))
	}
	return out
}

type createRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Active      *bool   `json:"active"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.policies.Create(ctx, service.CreateRequest{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		Active:      req.Active,
	})
	if err != nil {
		h.logFailure(ctx, "create policy failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteMessage(w, http.StatusCreated, "Policy created successfully", toResponse(p))
}

// handleList dispatches on query parameters: status filters by the active
// flag, min_amount/max_amount switch to the amount search. Plain GET lists
// everything.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if q.Has("min_amount") || q.Has("max_amount") {
		min, err := parseAmount(q.Get("min_amount"), "min_amount")
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		max, err := parseAmount(q.Get("max_amount"), "max_amount")
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		policies, err := h.policies.SearchByAmount(ctx, min, max)
		if err != nil {
			h.logFailure(ctx, "search policies failed", err)
			shared.WriteError(w, err)
			return
		}
		shared.WriteData(w, http.StatusOK, toResponses(policies))
		return
	}

	if status := q.Get("status"); status != "" {
		active, err := parseStatus(status)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		policies, err := h.policies.ListByStatus(ctx, active)
		if err != nil {
			h.logFailure(ctx, "list policies failed", err)
			shared.WriteError(w, err)
			return
		}
		shared.WriteData(w, http.StatusOK, toResponses(policies))
		return
	}

	policies, err := h.policies.List(ctx)
	if err != nil {
		h.logFailure(ctx, "list policies failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, toResponses(policies))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.policies.Get(ctx, policyID)
	if err != nil {
		h.logFailure(ctx, "get policy failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteData(w, http.StatusOK, toResponse(p))
}

type updateRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Active      bool    `json:"active"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.policies.Update(ctx, policyID, service.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		Active:      req.Active,
	})
	if err != nil {
		h.logFailure(ctx, "update policy failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, "Policy updated successfully", toResponse(p))
}

type updateStatusRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.policies.UpdateStatus(ctx, policyID, req.Active)
	if err != nil {
		h.logFailure(ctx, "update policy status failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, "Policy status updated successfully", toResponse(p))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.policies.Delete(ctx, policyID); err != nil {
		h.logFailure(ctx, "delete policy failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteMessage(w, http.StatusOK, "Policy deleted successfully", nil)
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

func parseAmount(raw, field string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a number", field)
	}
	return &v, nil
}

func parseStatus(raw string) (bool, error) {
	switch raw {
	case "active":
		return true, nil
	case "inactive":
		return false, nil
	default:
		return false, dErrors.New(dErrors.CodeValidation, "status must be active or inactive")
	}
}
