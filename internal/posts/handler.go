package posts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thehive/timebank/internal/middleware"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type createPostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PostType    string `json:"post_type"`
	Location    string `json:"location"`
	Duration    string `json:"duration"`
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	p, err := h.svc.Create(r.Context(), acc.ID, req.Title, req.Description, req.PostType, req.Location, req.Duration)
	if err != nil {
		if errors.Is(err, ErrInvalidPostType) {
			http.Error(w, `{"error":"post_type must be offer or need"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("create post", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error("list posts", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
