package handlers

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/varunSalat/Blog-backed/internal/storage"
	"github.com/varunSalat/Blog-backed/internal/store"
	"github.com/varunSalat/Blog-backed/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memUsers struct {
	mu    sync.Mutex
	users []types.User
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return types.User{}, &store.DuplicateError{Field: "username"}
		}
	}
	user.ID = len(m.users) + 1
	user.CreatedAt = epoch
	user.UpdatedAt = epoch
	m.users = append(m.users, user)
	return user, nil
}

type memPosts struct {
	mu     sync.Mutex
	posts  []types.Post
	nextID int
}

func (m *memPosts) List(_ context.Context, filter types.PostFilter, offset, limit int) ([]types.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []types.Post
	for _, p := range m.posts {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(filter.Category)) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if offset >= total {
		return []types.Post{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memPosts) MostViewed(_ context.Context, limit int) ([]types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []types.Post{}
	for i := len(m.posts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.posts[i].IsMostViewed {
			out = append(out, m.posts[i])
		}
	}
	return out, nil
}

func (m *memPosts) GetByURL(_ context.Context, url string) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.URL == url {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (m *memPosts) Create(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Title == post.Title {
			return types.Post{}, &store.DuplicateError{Field: "title"}
		}
		if p.URL == post.URL {
			return types.Post{}, &store.DuplicateError{Field: "url"}
		}
	}
	m.nextID++
	post.ID = m.nextID
	post.CreatedAt = epoch.Add(time.Duration(post.ID) * time.Minute)
	post.UpdatedAt = post.CreatedAt
	m.posts = append(m.posts, post)
	return post, nil
}

func (m *memPosts) UpdateByURL(_ context.Context, edit types.PostEdit) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		p := &m.posts[i]
		if p.URL != edit.URL {
			continue
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
		return *p, nil
	}
	return types.Post{}, store.ErrNotFound
}

func (m *memPosts) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memPosts) IncrementLikes(_ context.Context, id int) (types.Post, error) {
	return m.bump(id, func(p *types.Post) { p.Likes++ })
}

func (m *memPosts) IncrementDislikes(_ context.Context, id int) (types.Post, error) {
	return m.bump(id, func(p *types.Post) { p.Dislikes++ })
}

func (m *memPosts) bump(id int, apply func(*types.Post)) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			apply(&m.posts[i])
			return m.posts[i], nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
