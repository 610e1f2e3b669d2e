package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/varunSalat/Blog-backed/internal/services"
)

const (
	formFieldImage = "img"
	// multipart framing allowance on top of the image itself
	multipartOverhead = 1 << 20
)

// ImageHandler uploads and serves post and avatar images.
type ImageHandler struct {
	imageService *services.ImageService
}

func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// ImageRouter registers image routes on the given router.
func ImageRouter(r chi.Router, imageService *services.ImageService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewImageHandler(imageService)

	r.With(authMiddleware).Post("/upload", handler.Upload)
	r.Get("/img/*", handler.Serve)
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.imageService.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, _, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "img file is required")
		return
	}
	data, err := readFileLimited(file, maxSize)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := h.imageService.Upload(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, err, "failed to store image")
		return
	}

	writeJSON(w, http.StatusCreated, img)
}

func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.imageService.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, r, err, "failed to load image")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	// keys are content hashes
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
