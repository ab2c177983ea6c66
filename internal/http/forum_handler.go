package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/go-chi/chi/v5"
)

type ForumHandler struct {
	timeout time.Duration
}

func NewForumHandler(timeout time.Duration) *ForumHandler {
	return &ForumHandler{timeout: timeout}
}

func threadID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "thread_id"), 10, 64)
	return id, err == nil && id > 0
}

// GET /api/v1/forum/threads
func (h *ForumHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	threads, err := stateFrom(r.Context()).Services.Forum.ListThreads(ctx)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, threads)
}

// GET /api/v1/forum/threads/{thread_id}
func (h *ForumHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := threadID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_thread_id", "thread_id must be a positive integer")
		return
	}

	thread, err := stateFrom(r.Context()).Services.Forum.GetThread(ctx, id)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, thread)
}

// POST /api/v1/forum/threads
func (h *ForumHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req backend.ThreadInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "title and content are required")
		return
	}

	thread, err := stateFrom(r.Context()).Services.Forum.CreateThread(ctx, req)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, thread)
}

// GET /api/v1/forum/threads/{thread_id}/posts
func (h *ForumHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := threadID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_thread_id", "thread_id must be a positive integer")
		return
	}

	posts, err := stateFrom(r.Context()).Services.Forum.ListPosts(ctx, id)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// POST /api/v1/forum/threads/{thread_id}/posts
func (h *ForumHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := threadID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_thread_id", "thread_id must be a positive integer")
		return
	}

	var req backend.PostInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "content is required")
		return
	}

	post, err := stateFrom(r.Context()).Services.Forum.CreatePost(ctx, id, req)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}
