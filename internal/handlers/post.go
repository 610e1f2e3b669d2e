package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/varunSalat/Blog-backed/internal/services"
	"github.com/varunSalat/Blog-backed/types"
)

const defaultPage = 1

type voteFunc func(ctx context.Context, id int) (types.Post, error)

// PostHandler provides HTTP handlers for blog posts.
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler constructs a handler with the provided service.
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRouter registers post routes on the given router.
func PostRouter(r chi.Router, postService *services.PostService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(postService)

	r.Get("/blog", handler.ListPosts)
	r.Post("/blog", handler.SearchPosts)
	r.Get("/mostBlog", handler.MostViewed)
	r.Get("/blog/{post}", handler.GetPost)
	r.Post("/like/{postID}", handler.LikePost)
	r.Post("/dislike/{postID}", handler.DislikePost)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Delete("/blog/{post}", handler.DeletePost)
		r.Post("/create", handler.CreatePost)
		r.Post("/edit", handler.EditPost)
	})
}

// ListPosts serves GET /blog?page=&s=&cat=.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := defaultPage
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = parsed
	}

	h.list(w, r, services.ListQuery{
		Page:     page,
		Search:   strings.TrimSpace(query.Get("s")),
		Category: strings.TrimSpace(query.Get("cat")),
	})
}

// SearchPosts serves POST /blog with a JSON {page, s, cat} body.
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page := defaultPage
	if req.Page != nil {
		page = *req.Page
	}
	h.list(w, r, services.ListQuery{
		Page:     page,
		Search:   strings.TrimSpace(req.Search),
		Category: strings.TrimSpace(req.Category),
	})
}

func (h *PostHandler) list(w http.ResponseWriter, r *http.Request, q services.ListQuery) {
	page, err := h.postService.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) MostViewed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.MostViewed(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list most viewed posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	detail, err := h.postService.GetByURL(r.Context(), chi.URLParam(r, "post"))
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.postService.Create(r.Context(), identity.UserID, services.PostInput{
		Title:        req.Title,
		URL:          req.URL,
		Summary:      req.Summary,
		Category:     req.Category,
		Img:          req.Img,
		Body:         req.Body,
		IsMostViewed: req.MostViewed || req.IsMostViewed,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// EditPost replaces the post addressed by the url field of the body.
func (h *PostHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	var req EditPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.postService.Update(r.Context(), services.PostUpdate{
		Title:        req.Title,
		URL:          req.URL,
		Summary:      req.Summary,
		Category:     req.Category,
		Img:          req.Img,
		Body:         req.Body,
		IsMostViewed: req.IsMostViewed,
		Likes:        req.Likes,
		Dislikes:     req.Dislikes,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeletePost shares the /blog/{post} pattern with GetPost; here the
// segment is the numeric id.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.postService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.postService.Like)
}

func (h *PostHandler) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.postService.Dislike)
}

func (h *PostHandler) vote(w http.ResponseWriter, r *http.Request, apply voteFunc) {
	id, err := parseID(r, "postID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := apply(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to record vote")
		return
	}

	writeJSON(w, http.StatusOK, VoteResponse{ID: post.ID, Likes: post.Likes, Dislikes: post.Dislikes})
}

// ListRequest is the POST /blog payload. A missing page means the first.
type ListRequest struct {
	Page     *int   `json:"page"`
	Search   string `json:"s"`
	Category string `json:"cat"`
}

// CreatePostRequest accepts both mostViewed and isMostViewed for the
// curated flag.
type CreatePostRequest struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Summary      string `json:"summary"`
	Category     string `json:"cat"`
	Img          string `json:"img"`
	Body         string `json:"blog"`
	MostViewed   bool   `json:"mostViewed"`
	IsMostViewed bool   `json:"isMostViewed"`
}

// EditPostRequest carries every editable field. isMostViewed, like and
// dislike keep their stored values when omitted. author is accepted and
// ignored.
type EditPostRequest struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Summary      string `json:"summary"`
	Category     string `json:"cat"`
	Img          string `json:"img"`
	Body         string `json:"blog"`
	IsMostViewed *bool  `json:"isMostViewed"`
	Likes        *int   `json:"like"`
	Dislikes     *int   `json:"dislike"`
	Author       any    `json:"author,omitempty"`
}

type VoteResponse struct {
	ID       int `json:"id"`
	Likes    int `json:"like"`
	Dislikes int `json:"dislike"`
}
