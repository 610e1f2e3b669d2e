package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/varunSalat/Blog-backed/internal/cache"
	"github.com/varunSalat/Blog-backed/types"
)

const (
	// PageSize is the fixed number of posts per listing page.
	PageSize = 10
	// MostViewedLimit caps the curated listing.
	MostViewedLimit = 10
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, filter types.PostFilter, offset, limit int) ([]types.Post, int, error)
	MostViewed(ctx context.Context, limit int) ([]types.Post, error)
	GetByURL(ctx context.Context, url string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	UpdateByURL(ctx context.Context, edit types.PostEdit) (types.Post, error)
	Delete(ctx context.Context, id int) error
	IncrementLikes(ctx context.Context, id int) (types.Post, error)
	IncrementDislikes(ctx context.Context, id int) (types.Post, error)
}

// PostCache caches the most-viewed listing. MostViewed reports the cache
// generation it read; SetMostViewed with an outdated generation must not
// become visible to later reads.
type PostCache interface {
	MostViewed(ctx context.Context) ([]types.Post, int64, error)
	SetMostViewed(ctx context.Context, gen int64, posts []types.Post) error
	Invalidate(ctx context.Context) error
}

// EventPublisher receives post lifecycle events.
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, event types.PostEvent) error
}

// ListQuery selects one page of posts. Page is 1-indexed.
type ListQuery struct {
	Page     int
	Search   string
	Category string
}

// PostInput holds the author-editable fields of a post.
type PostInput struct {
	Title        string
	URL          string
	Summary      string
	Category     string
	Img          string
	Body         string
	IsMostViewed bool
}

// PostUpdate replaces the text fields of the post addressed by URL. The
// flag and vote counters are only overwritten when set.
type PostUpdate struct {
	Title        string
	URL          string
	Summary      string
	Category     string
	Img          string
	Body         string
	IsMostViewed *bool
	Likes        *int
	Dislikes     *int
}

// PostDetail is a post together with its author's public profile.
type PostDetail struct {
	Post types.Post `json:"blog"`
	Name string     `json:"name"`
	Img  string     `json:"img"`
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo   PostRepository
	users  UserRepository
	cache  PostCache
	events EventPublisher
	logger *slog.Logger
}

// NewPostService wires the post use-cases. postCache and events may be nil.
func NewPostService(repo PostRepository, users UserRepository, postCache PostCache, events EventPublisher, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		repo:   repo,
		users:  users,
		cache:  postCache,
		events: events,
		logger: logger,
	}
}

func (s *PostService) List(ctx context.Context, q ListQuery) (types.PostPage, error) {
	if q.Page < 1 {
		return types.PostPage{}, invalid("page", "must be at least 1")
	}
	if q.Page > math.MaxInt/PageSize {
		return types.PostPage{}, invalid("page", "is too large")
	}

	filter := types.PostFilter{Search: q.Search, Category: q.Category}
	items, total, err := s.repo.List(ctx, filter, (q.Page-1)*PageSize, PageSize)
	if err != nil {
		return types.PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	return types.PostPage{Items: items, TotalCount: total}, nil
}

func (s *PostService) MostViewed(ctx context.Context) ([]types.Post, error) {
	var gen int64
	cacheable := s.cache != nil
	if cacheable {
		posts, g, err := s.cache.MostViewed(ctx)
		switch {
		case err == nil:
			return posts, nil
		case errors.Is(err, cache.ErrMiss):
			gen = g
		default:
			cacheable = false
			s.logger.WarnContext(ctx, "most viewed cache read failed", "error", err)
		}
	}

	posts, err := s.repo.MostViewed(ctx, MostViewedLimit)
	if err != nil {
		return nil, fmt.Errorf("list most viewed: %w", err)
	}

	if cacheable {
		if err := s.cache.SetMostViewed(ctx, gen, posts); err != nil {
			s.logger.WarnContext(ctx, "most viewed cache write failed", "error", err)
		}
	}
	return posts, nil
}

// GetByURL returns the post and its author's profile. A dangling author
// reference is reported as ErrNotFound.
func (s *PostService) GetByURL(ctx context.Context, url string) (PostDetail, error) {
	post, err := s.repo.GetByURL(ctx, url)
	if err != nil {
		return PostDetail{}, err
	}

	author, err := s.users.GetByID(ctx, post.AuthorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PostDetail{}, fmt.Errorf("author of post %q: %w", url, ErrNotFound)
		}
		return PostDetail{}, err
	}

	return PostDetail{Post: post, Name: author.Name, Img: author.Img}, nil
}

func (s *PostService) Create(ctx context.Context, authorID int, in PostInput) (types.Post, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return types.Post{}, err
	}

	post, err := s.repo.Create(ctx, types.Post{
		Title:        in.Title,
		URL:          in.URL,
		Summary:      in.Summary,
		Category:     in.Category,
		Img:          in.Img,
		Body:         in.Body,
		IsMostViewed: in.IsMostViewed,
		AuthorID:     authorID,
	})
	if err != nil {
		return types.Post{}, fromStoreError(err)
	}

	s.changed(ctx, types.PostEventCreated, post)
	return post, nil
}

func (s *PostService) Update(ctx context.Context, in PostUpdate) (types.Post, error) {
	content := PostInput{
		Title:    in.Title,
		URL:      in.URL,
		Summary:  in.Summary,
		Category: in.Category,
		Img:      in.Img,
		Body:     in.Body,
	}.normalized()
	if err := content.validate(); err != nil {
		return types.Post{}, err
	}
	if in.Likes != nil && *in.Likes < 0 {
		return types.Post{}, invalid("like", "must not be negative")
	}
	if in.Dislikes != nil && *in.Dislikes < 0 {
		return types.Post{}, invalid("dislike", "must not be negative")
	}

	post, err := s.repo.UpdateByURL(ctx, types.PostEdit{
		URL:          content.URL,
		Title:        content.Title,
		Summary:      content.Summary,
		Category:     content.Category,
		Img:          content.Img,
		Body:         content.Body,
		IsMostViewed: in.IsMostViewed,
		Likes:        in.Likes,
		Dislikes:     in.Dislikes,
	})
	if err != nil {
		return types.Post{}, fromStoreError(err)
	}

	s.changed(ctx, types.PostEventUpdated, post)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, types.PostEventDeleted, types.Post{ID: id})
	return nil
}

// Like adds one like and returns the post with its new counters.
func (s *PostService) Like(ctx context.Context, id int) (types.Post, error) {
	post, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	s.changed(ctx, types.PostEventLiked, post)
	return post, nil
}

// Dislike adds one dislike and returns the post with its new counters.
func (s *PostService) Dislike(ctx context.Context, id int) (types.Post, error) {
	post, err := s.repo.IncrementDislikes(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	s.changed(ctx, types.PostEventDisliked, post)
	return post, nil
}

// changed drops cached listings and announces the change. Neither step
// fails the request.
func (s *PostService) changed(ctx context.Context, eventType string, post types.Post) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "post cache invalidation failed", "error", err, "post_id", post.ID)
		}
	}
	if s.events != nil {
		err := s.events.PublishPostEvent(ctx, types.PostEvent{
			Type:     eventType,
			PostID:   post.ID,
			URL:      post.URL,
			Title:    post.Title,
			AuthorID: post.AuthorID,
			Likes:    post.Likes,
			Dislikes: post.Dislikes,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "post event publish failed", "error", err, "type", eventType, "post_id", post.ID)
		}
	}
}

func (in PostInput) normalized() PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Summary = strings.TrimSpace(in.Summary)
	in.Category = strings.TrimSpace(in.Category)
	in.Img = strings.TrimSpace(in.Img)
	return in
}

func (in PostInput) validate() error {
	switch {
	case in.Title == "":
		return invalid("title", "is required")
	case in.URL == "":
		return invalid("url", "is required")
	case strings.ContainsAny(in.URL, "/?# \t\n"):
		return invalid("url", "must not contain slashes, spaces, '?' or '#'")
	case strings.TrimSpace(in.Body) == "":
		return invalid("blog", "is required")
	}
	return nil
}
