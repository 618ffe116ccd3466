package account

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thehive/timebank/internal/middleware"
	"github.com/thehive/timebank/internal/models"
	"github.com/thehive/timebank/internal/notify"
)

// LedgerReader exposes the balance and entry history.
type LedgerReader interface {
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]*models.TimeEntry, error)
}

// NotificationReader lists and updates the caller's inbox.
type NotificationReader interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*notify.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

// Handler serves the authenticated account's own data.
type Handler struct {
	Ledger        LedgerReader
	Notifications NotificationReader
	Logger        *slog.Logger
}

type meResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Avatar      string          `json:"avatar,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
}

// GetMe handles GET /api/v1/account/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balance, err := h.Ledger.Balance(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("read balance", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:          acc.ID.String(),
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		Avatar:      acc.Avatar,
		Balance:     balance,
	})
}

// ListLedger handles GET /api/v1/account/ledger.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	entries, err := h.Ledger.ListEntries(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list ledger", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListNotifications handles GET /api/v1/account/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Notifications.ListByRecipient(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list notifications", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead handles PATCH /api/v1/account/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid notification id"}`, http.StatusBadRequest)
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), id, acc.ID); err != nil {
		h.Logger.Error("mark notification read", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
