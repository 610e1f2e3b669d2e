package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/varunSalat/Blog-backed/internal/cache"
	"github.com/varunSalat/Blog-backed/internal/storage"
	"github.com/varunSalat/Blog-backed/internal/store"
	"github.com/varunSalat/Blog-backed/types"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeUserRepo struct {
	mu    sync.Mutex
	users []types.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return types.User{}, &store.DuplicateError{Field: "username"}
		}
	}
	user.ID = len(r.users) + 1
	user.CreatedAt = baseTime
	user.UpdatedAt = baseTime
	r.users = append(r.users, user)
	return user, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	posts  []types.Post
	nextID int
}

func (r *fakePostRepo) List(_ context.Context, filter types.PostFilter, offset, limit int) ([]types.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []types.Post
	for _, p := range r.posts {
		if filter.Search != "" && !containsFold(p.Title, filter.Search) {
			continue
		}
		if filter.Category != "" && !containsFold(p.Category, filter.Category) {
			continue
		}
		matched = append(matched, p)
	}
	sortNewestFirst(matched)

	total := len(matched)
	if offset >= total {
		return []types.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]types.Post(nil), matched[offset:end]...), total, nil
}

func (r *fakePostRepo) MostViewed(_ context.Context, limit int) ([]types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []types.Post
	for _, p := range r.posts {
		if p.IsMostViewed {
			matched = append(matched, p)
		}
	}
	sortNewestFirst(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakePostRepo) GetByURL(_ context.Context, url string) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.URL == url {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (r *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.Title == post.Title {
			return types.Post{}, &store.DuplicateError{Field: "title"}
		}
		if p.URL == post.URL {
			return types.Post{}, &store.DuplicateError{Field: "url"}
		}
	}
	r.nextID++
	post.ID = r.nextID
	post.CreatedAt = baseTime.Add(time.Duration(r.nextID) * time.Minute)
	post.UpdatedAt = post.CreatedAt
	r.posts = append(r.posts, post)
	return post, nil
}

func (r *fakePostRepo) UpdateByURL(_ context.Context, edit types.PostEdit) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		p := &r.posts[i]
		if p.URL != edit.URL {
			continue
		}
		for _, other := range r.posts {
			if other.ID != p.ID && other.Title == edit.Title {
				return types.Post{}, &store.DuplicateError{Field: "title"}
			}
		}
		p.Title = edit.Title
		p.Summary = edit.Summary
		p.Category = edit.Category
		p.Img = edit.Img
		p.Body = edit.Body
		if edit.IsMostViewed != nil {
			p.IsMostViewed = *edit.IsMostViewed
		}
		if edit.Likes != nil {
			p.Likes = *edit.Likes
		}
		if edit.Dislikes != nil {
			p.Dislikes = *edit.Dislikes
		}
		p.UpdatedAt = p.UpdatedAt.Add(time.Second)
		return *p, nil
	}
	return types.Post{}, store.ErrNotFound
}

func (r *fakePostRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.posts {
		if p.ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakePostRepo) IncrementLikes(_ context.Context, id int) (types.Post, error) {
	return r.increment(id, func(p *types.Post) { p.Likes++ })
}

func (r *fakePostRepo) IncrementDislikes(_ context.Context, id int) (types.Post, error) {
	return r.increment(id, func(p *types.Post) { p.Dislikes++ })
}

func (r *fakePostRepo) increment(id int, bump func(*types.Post)) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == id {
			bump(&r.posts[i])
			return r.posts[i], nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortNewestFirst(posts []types.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

type fakeCache struct {
	posts       []types.Post
	cached      bool
	gen         int64
	reads       int
	invalidated int
}

func (c *fakeCache) MostViewed(context.Context) ([]types.Post, int64, error) {
	c.reads++
	if !c.cached {
		return nil, c.gen, cache.ErrMiss
	}
	return c.posts, c.gen, nil
}

func (c *fakeCache) SetMostViewed(_ context.Context, gen int64, posts []types.Post) error {
	if gen != c.gen {
		return nil
	}
	c.posts = posts
	c.cached = true
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.gen++
	c.cached = false
	c.posts = nil
	return nil
}

type fakeEvents struct {
	events []types.PostEvent
}

func (e *fakeEvents) PublishPostEvent(_ context.Context, event types.PostEvent) error {
	e.events = append(e.events, event)
	return nil
}

type fakeObjectStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func ptr[T any](v T) *T {
	return &v
}
