package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varunSalat/Blog-backed/internal/services"
	"github.com/varunSalat/Blog-backed/types"
)

const testAccessText = "let-me-in"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testAPI struct {
	router   http.Handler
	sessions *services.SessionVerifier
	users    *memUsers
	posts    *memPosts
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	users := &memUsers{}
	posts := &memPosts{}
	sessions := services.NewSessionVerifier("handler-secret", time.Hour)
	credentials := services.NewCredentialService(users, sessions, testAccessText)
	userService := services.NewUserService(users)
	postService := services.NewPostService(posts, users, nil, nil, nil)
	imageService := services.NewImageService(&memObjects{}, "", 1024)

	cookie := CookieConfig{Name: "auth", Secure: true, TTL: time.Hour}
	auth := RequireSession(sessions, cookie.Name)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, credentials, userService, cookie, auth)
		PostRouter(r, postService, auth)
		ImageRouter(r, imageService, auth)
	})

	return &testAPI{router: router, sessions: sessions, users: users, posts: posts}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) registerAndLogin(t *testing.T, username string) *http.Cookie {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/reg", map[string]string{
		"username": username,
		"password": "pw123",
		"name":     "Alice",
		"img":      "alice.png",
		"text":     testAccessText,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/login", map[string]string{"username": username, "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth" {
			return c
		}
	}
	t.Fatal("login did not set the auth cookie")
	return nil
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/reg", map[string]string{
		"username": "alice", "password": "pw", "name": "Alice", "img": "a.png", "text": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, api.users.users)

	rec = api.do(t, http.MethodPost, "/api/reg", map[string]string{
		"username": "al", "password": "pw", "name": "Alice", "img": "a.png", "text": testAccessText,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/reg", map[string]string{
		"username": "alice", "password": "pw", "name": "Alice", "img": "a.png", "text": testAccessText,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")

	rec = api.do(t, http.MethodPost, "/api/reg", map[string]string{
		"username": "alice", "password": "pw", "name": "Alice", "img": "a.png", "text": testAccessText,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", decodeBody[ErrorResponse](t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/reg", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	assert.True(t, cookie.Secure)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)

	identity, err := api.sessions.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)

	rec := api.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = api.do(t, http.MethodPost, "/api/login", map[string]string{"username": "bob", "password": "pw123"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice", "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[services.LoginResult](t, rec)
	assert.Equal(t, "Alice", result.Name)
	assert.Equal(t, "alice.png", result.Img)
	assert.NotEmpty(t, result.Token)
}

func TestLogoutExpiresCookie(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	rec := api.do(t, http.MethodGet, "/api/me", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody[types.User](t, rec).Username)

	rec = api.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")
	post := map[string]any{"title": "T", "url": "t-1", "blog": "body"}

	rec := api.do(t, http.MethodPost, "/api/create", post)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/create", post, withBearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, err := services.NewSessionVerifier("other-secret", time.Hour).Issue(1, "alice")
	require.NoError(t, err)
	rec = api.do(t, http.MethodPost, "/api/create", post, withBearer(foreign))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/blog/1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/edit", post)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/create", post, withBearer(cookie.Value))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAliceFlow(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/create", map[string]any{
		"title":      "T",
		"url":        "t-1",
		"summary":    "s",
		"cat":        "tech",
		"img":        "cover.png",
		"blog":       "body",
		"mostViewed": true,
	}, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Post](t, rec)
	assert.Equal(t, 1, created.AuthorID)
	assert.True(t, created.IsMostViewed)

	rec = api.do(t, http.MethodGet, "/api/blog/t-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[services.PostDetail](t, rec)
	assert.Equal(t, "T", detail.Post.Title)
	assert.Equal(t, "body", detail.Post.Body)
	assert.Zero(t, detail.Post.Likes)
	assert.Zero(t, detail.Post.Dislikes)
	assert.Equal(t, "Alice", detail.Name)
	assert.Equal(t, "alice.png", detail.Img)

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/like/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, VoteResponse{ID: created.ID, Likes: 1}, decodeBody[VoteResponse](t, rec))

	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/dislike/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, VoteResponse{ID: created.ID, Likes: 1, Dislikes: 1}, decodeBody[VoteResponse](t, rec))

	rec = api.do(t, http.MethodGet, "/api/mostBlog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Post](t, rec), 1)

	rec = api.do(t, http.MethodPost, "/api/edit", map[string]any{
		"title":        "T2",
		"url":          "t-1",
		"blog":         "edited",
		"isMostViewed": false,
		"like":         7,
		"dislike":      0,
		"author":       "ignored",
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/blog/t-1", nil)
	detail = decodeBody[services.PostDetail](t, rec)
	assert.Equal(t, "T2", detail.Post.Title)
	assert.Equal(t, 7, detail.Post.Likes)
	assert.False(t, detail.Post.IsMostViewed)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/blog/%d", created.ID), nil, withCookie(cookie))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/api/blog/%d", created.ID), nil, withCookie(cookie))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/blog/t-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditKeepsOmittedCountersAndFlag(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/create", map[string]any{
		"title":      "T",
		"url":        "t-1",
		"blog":       "body",
		"mostViewed": true,
	}, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Post](t, rec)

	for i := 0; i < 3; i++ {
		rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/like/%d", created.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/dislike/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/edit", map[string]any{
		"title": "T2",
		"url":   "t-1",
		"blog":  "fixed typo",
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/blog/t-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[services.PostDetail](t, rec)
	assert.Equal(t, "T2", detail.Post.Title)
	assert.Equal(t, "fixed typo", detail.Post.Body)
	assert.Equal(t, 3, detail.Post.Likes)
	assert.Equal(t, 1, detail.Post.Dislikes)
	assert.True(t, detail.Post.IsMostViewed)

	rec = api.do(t, http.MethodPost, "/api/edit", map[string]any{
		"title":   "T2",
		"url":     "t-1",
		"blog":    "fixed typo",
		"dislike": 0,
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[types.Post](t, rec)
	assert.Equal(t, 3, updated.Likes)
	assert.Zero(t, updated.Dislikes)
	assert.True(t, updated.IsMostViewed)
}

func TestListPosts(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")
	for i := 1; i <= 12; i++ {
		cat := "life"
		if i%3 == 0 {
			cat = "tech"
		}
		rec := api.do(t, http.MethodPost, "/api/create", map[string]any{
			"title": fmt.Sprintf("Post %d", i),
			"url":   fmt.Sprintf("post-%d", i),
			"cat":   cat,
			"blog":  "body",
		}, withCookie(cookie))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/api/blog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[types.PostPage](t, rec)
	assert.Len(t, page.Items, services.PageSize)
	assert.Equal(t, 12, page.TotalCount)
	assert.Equal(t, "post-12", page.Items[0].URL)

	rec = api.do(t, http.MethodGet, "/api/blog?page=2", nil)
	page = decodeBody[types.PostPage](t, rec)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 12, page.TotalCount)

	rec = api.do(t, http.MethodPost, "/api/blog", map[string]any{"page": 1, "cat": "TECH"})
	require.Equal(t, http.StatusOK, rec.Code)
	page = decodeBody[types.PostPage](t, rec)
	assert.Equal(t, 4, page.TotalCount)

	rec = api.do(t, http.MethodPost, "/api/blog", map[string]any{"s": "post 1"})
	require.Equal(t, http.StatusOK, rec.Code)
	page = decodeBody[types.PostPage](t, rec)
	assert.Equal(t, 4, page.TotalCount)

	for _, path := range []string{"/api/blog?page=0", "/api/blog?page=-2", "/api/blog?page=abc", "/api/blog?page=9223372036854775807"} {
		rec = api.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	rec = api.do(t, http.MethodPost, "/api/blog", map[string]any{"page": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/like/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/like/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/dislike/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/create", map[string]any{"title": "T", "url": "a/b", "blog": "x"}, withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/create", map[string]any{"title": "T", "url": "t-1", "blog": "x"}, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/create", map[string]any{"title": "T", "url": "t-2", "blog": "x"}, withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title already exists", decodeBody[ErrorResponse](t, rec).Error)

	rec = api.do(t, http.MethodPost, "/api/edit", map[string]any{"title": "X", "url": "missing", "blog": "x"}, withCookie(cookie))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/edit", map[string]any{"title": "T", "url": "t-1", "blog": "x", "like": -1}, withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, "cover.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestImageUploadAndServe(t *testing.T) {
	api := newTestAPI(t)
	cookie := api.registerAndLogin(t, "alice")

	upload := func(field string, data []byte, opts ...func(*http.Request)) *httptest.ResponseRecorder {
		body, contentType := multipartImage(t, field, data)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		for _, opt := range opts {
			opt(req)
		}
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("img", pngBytes)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = upload("img", pngBytes, withCookie(cookie))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	img := decodeBody[services.Image](t, rec)
	assert.Equal(t, "image/png", img.ContentType)

	rec = api.do(t, http.MethodGet, img.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	rec = upload("img", []byte("plain text, not an image"), withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("img", bytes.Repeat([]byte{0x89}, 2048), withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("other", pngBytes, withCookie(cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/img/images/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
