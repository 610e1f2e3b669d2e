package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varunSalat/Blog-backed/internal/services"
)

const defaultCookieName = "auth"

// CookieConfig controls the session cookie written on login.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandler provides registration, login and session endpoints.
type AuthHandler struct {
	credentials *services.CredentialService
	users       *services.UserService
	cookie      CookieConfig
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(credentials *services.CredentialService, users *services.UserService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = defaultCookieName
	}
	return &AuthHandler{
		credentials: credentials,
		users:       users,
		cookie:      cookie,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	credentials *services.CredentialService,
	users *services.UserService,
	cookie CookieConfig,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAuthHandler(credentials, users, cookie)

	r.Post("/reg", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireSession verifies the session token from the named cookie, or from
// an Authorization bearer header, and injects the identity into context.
func RequireSession(sessions *services.SessionVerifier, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := sessionToken(r, cookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			identity, err := sessions.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Register creates a new user account behind the access text.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.credentials.Register(r.Context(), services.RegisterInput{
		Username:   req.Username,
		Password:   req.Password,
		Name:       req.Name,
		Img:        req.Img,
		AccessText: req.Text,
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials, sets the session cookie and returns the
// caller's profile alongside the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.credentials.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "failed to authenticate")
		return
	}

	http.SetCookie(w, h.sessionCookie(result.Token))
	writeJSON(w, http.StatusOK, result)
}

// Logout expires the session cookie. Tokens themselves stay valid until
// they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	cookie := h.sessionCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(w, r, err, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) sessionCookie(token string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Browsers drop SameSite=None cookies that are not Secure.
	if h.cookie.Secure {
		cookie.SameSite = http.SameSiteNoneMode
	}
	if h.cookie.TTL > 0 {
		cookie.MaxAge = int(h.cookie.TTL / time.Second)
	}
	return cookie
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Img      string `json:"img"`
	Text     string `json:"text"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func sessionToken(r *http.Request, cookieName string) (string, error) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
