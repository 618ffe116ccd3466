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

	"github.com/thehive/timebank/internal/middleware"
	"github.com/thehive/timebank/internal/models"
	"github.com/thehive/timebank/internal/notify"
	"github.com/thehive/timebank/internal/services"
)

// NotificationWriter drops an inbox row for the reviewed user. Reviews do
// not move money, so this writes directly instead of going through the
// queue.
type NotificationWriter interface {
	Create(ctx context.Context, n *notify.Notification) error
}

// ReviewHandler serves review creation and per-user review listings.
type ReviewHandler struct {
	Reviews       *services.Reviews
	Notifications NotificationWriter
	Logger        *slog.Logger
}

type createReviewRequest struct {
	Friendliness   int    `json:"friendliness"`
	TimeManagement int    `json:"time_management"`
	Reliability    int    `json:"reliability"`
	Communication  int    `json:"communication"`
	WorkQuality    int    `json:"work_quality"`
	Comment        string `json:"comment"`
}

// CreateReview handles POST /api/v1/proposals/{id}/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	proposalID, ok := extractProposalID(r)
	if !ok {
		http.Error(w, `{"error":"invalid proposal id"}`, http.StatusBadRequest)
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	rev, err := h.Reviews.Create(r.Context(), proposalID, acc.ID, services.Ratings{
		Friendliness:   req.Friendliness,
		TimeManagement: req.TimeManagement,
		Reliability:    req.Reliability,
		Communication:  req.Communication,
		WorkQuality:    req.WorkQuality,
		Comment:        req.Comment,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.Notifications != nil {
		n := &notify.Notification{
			ID:          uuid.New(),
			RecipientID: rev.ReviewedUserID,
			ProposalID:  rev.ProposalID,
			Kind:        notify.KindReviewReceived,
		}
		if err := h.Notifications.Create(r.Context(), n); err != nil {
			h.Logger.Error("notify reviewed user", "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, rev)
}

// ListUserReviews handles GET /api/v1/users/{id}/reviews: reviews received
// by the user plus category averages.
func (h *ReviewHandler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := extractUserID(r)
	if !ok {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}
	list, avg, err := h.Reviews.ForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("list reviews", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Reviews  []*models.Review       `json:"reviews"`
		Averages *models.ReviewAverages `json:"averages"`
	}{Reviews: list, Averages: avg})
}

func (h *ReviewHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrWrongReviewDirection):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrReviewNotAvailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyReviewed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidRating):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		h.Logger.Error("create review", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// extractUserID parses the user UUID from /api/v1/users/{id}/reviews.
func extractUserID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
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
