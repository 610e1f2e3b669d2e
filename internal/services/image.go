package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/varunSalat/Blog-backed/internal/storage"
)

const (
	imageKeyPrefix = "images/"
	// DefaultMaxImageSize applies when no positive limit is configured.
	DefaultMaxImageSize = 5 << 20
)

var imageKeyPattern = regexp.MustCompile(`^images/[0-9a-f]{64}\.(jpg|png|gif|webp)$`)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ObjectStore is the subset of object storage the image service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Image describes a stored image.
type Image struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ImageService stores avatar and cover images. Objects are keyed by the
// SHA-256 of their content, so uploading the same file twice is idempotent.
type ImageService struct {
	store         ObjectStore
	publicBaseURL string
	maxSize       int64
}

func NewImageService(store ObjectStore, publicBaseURL string, maxSize int64) *ImageService {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	return &ImageService{
		store:         store,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		maxSize:       maxSize,
	}
}

// MaxSize is the largest accepted upload in bytes.
func (s *ImageService) MaxSize() int64 {
	return s.maxSize
}

func (s *ImageService) Upload(ctx context.Context, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, invalid("img", "is empty")
	}
	if int64(len(data)) > s.maxSize {
		return Image{}, invalid("img", fmt.Sprintf("must not exceed %d bytes", s.maxSize))
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return Image{}, invalid("img", "must be a jpeg, png, gif or webp image")
	}

	hash := sha256.Sum256(data)
	key := imageKeyPrefix + hex.EncodeToString(hash[:]) + "." + ext

	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Image{}, fmt.Errorf("store image: %w", err)
	}

	return Image{
		Key:         key,
		URL:         s.publicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Open returns a reader for a stored image and its content type.
func (s *ImageService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !imageKeyPattern.MatchString(key) {
		return nil, "", ErrNotFound
	}

	r, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return r, contentTypeForKey(key), nil
}

func (s *ImageService) publicURL(key string) string {
	if s.publicBaseURL == "" {
		return "/api/img/" + key
	}
	return s.publicBaseURL + "/" + key
}

func contentTypeForKey(key string) string {
	ext := strings.TrimPrefix(path.Ext(key), ".")
	for contentType, e := range imageExtensions {
		if e == ext {
			return contentType
		}
	}
	return "application/octet-stream"
}
