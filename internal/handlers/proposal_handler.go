package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/ledger"
	"github.com/thehive/timebank/internal/middleware"
	"github.com/thehive/timebank/internal/models"
	"github.com/thehive/timebank/internal/services"
)

// LifecycleService is the transition surface the handler drives.
type LifecycleService interface {
	CreateProposal(ctx context.Context, postID, requesterID uuid.UUID, rate decimal.Decimal, message, location string) (*models.Proposal, error)
	UpdateStatus(ctx context.Context, proposalID, actorID uuid.UUID, newStatus string) (*models.Proposal, error)
	Approve(ctx context.Context, proposalID, actorID uuid.UUID) (*models.Proposal, error)
	DeclineJob(ctx context.Context, proposalID, actorID uuid.UUID, reason string) (*models.Proposal, error)
}

// ProposalReader is the read-only repository surface for GETs.
type ProposalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByParticipant(ctx context.Context, accountID uuid.UUID) ([]*models.Proposal, error)
}

// JobReader resolves jobs for responses.
type JobReader interface {
	GetByProposalID(ctx context.Context, proposalID uuid.UUID) (*models.Job, error)
	ListByParticipant(ctx context.Context, accountID uuid.UUID) ([]*models.Job, error)
}

// ProposalHandler serves /api/v1/proposals endpoints.
type ProposalHandler struct {
	Lifecycle LifecycleService
	Proposals ProposalReader
	Jobs      JobReader
	Logger    *slog.Logger
}

type createProposalRequest struct {
	PostID   string          `json:"post_id"`
	Rate     decimal.Decimal `json:"rate"`
	Message  string          `json:"message"`
	Location string          `json:"proposed_location"`
}

// CreateProposal handles POST /api/v1/proposals.
func (h *ProposalHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		http.Error(w, `{"error":"invalid post_id"}`, http.StatusBadRequest)
		return
	}

	p, err := h.Lifecycle.CreateProposal(r.Context(), postID, acc.ID, req.Rate, req.Message, req.Location)
	if err != nil {
		h.respondError(w, "create proposal", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProposal handles GET /api/v1/proposals/{id}. Participants only.
func (h *ProposalHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	acc, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	p, err := h.Proposals.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"proposal not found"}`, http.StatusNotFound)
		return
	}
	if !p.IsParticipant(acc.ID) {
		http.Error(w, `{"error":"not a participant"}`, http.StatusForbidden)
		return
	}

	resp := struct {
		*models.Proposal
		Job *models.Job `json:"job,omitempty"`
	}{Proposal: p}
	if job, err := h.Jobs.GetByProposalID(r.Context(), id); err == nil {
		resp.Job = job
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListProposals handles GET /api/v1/proposals: the caller's proposals on either side.
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Proposals.ListByParticipant(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list proposals", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListJobs handles GET /api/v1/jobs: the caller's job history on either side.
func (h *ProposalHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Jobs.ListByParticipant(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list jobs", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/v1/proposals/{id}/status: accept, decline or
// cancel. Completion cannot be requested here; it flows from approvals.
func (h *ProposalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	acc, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	p, err := h.Lifecycle.UpdateStatus(r.Context(), id, acc.ID, req.Status)
	if err != nil {
		h.respondError(w, "update status", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Approve handles POST /api/v1/proposals/{id}/approve.
func (h *ProposalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	acc, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	p, err := h.Lifecycle.Approve(r.Context(), id, acc.ID)
	if err != nil {
		h.respondError(w, "approve", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type declineJobRequest struct {
	CancellationReason string `json:"cancellation_reason"`
}

// DeclineJob handles POST /api/v1/proposals/{id}/decline-job.
func (h *ProposalHandler) DeclineJob(w http.ResponseWriter, r *http.Request) {
	acc, id, ok := h.authAndID(w, r)
	if !ok {
		return
	}
	var req declineJobRequest
	if r.Body != nil {
		// Reason is optional; unknown values normalize to "other".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	p, err := h.Lifecycle.DeclineJob(r.Context(), id, acc.ID, req.CancellationReason)
	if err != nil {
		h.respondError(w, "decline job", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- helpers ---

func (h *ProposalHandler) authAndID(w http.ResponseWriter, r *http.Request) (*models.Account, uuid.UUID, bool) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	id, ok := extractProposalID(r)
	if !ok {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return acc, id, true
}

func (h *ProposalHandler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient balance"})
	case errors.Is(err, ledger.ErrBalanceCeiling):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "credit would exceed balance ceiling"})
	case errors.Is(err, services.ErrNotParticipant):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrApprovalOrder),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConcurrentModification),
		errors.Is(err, services.ErrNoWaitingJob),
		errors.Is(err, services.ErrDuplicateProposal):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidRate):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.Logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// extractProposalID parses the proposal UUID from the URL path.
// Supports /api/v1/proposals/{id} and /api/v1/proposals/{id}/<action>.
func extractProposalID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/proposals/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
