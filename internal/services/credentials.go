package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/varunSalat/Blog-backed/types"
	"golang.org/x/crypto/bcrypt"
)

const minUsernameLength = 4

// RegisterInput is the validated payload of a registration request.
type RegisterInput struct {
	Username   string
	Password   string
	Name       string
	Img        string
	AccessText string
}

// LoginResult carries the session token and the minimal profile the front
// end renders after login.
type LoginResult struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Img   string `json:"img"`
}

// CredentialService registers users behind the shared access text and
// exchanges username/password pairs for session tokens.
type CredentialService struct {
	users      UserRepository
	sessions   *SessionVerifier
	accessText []byte
	cost       int
}

func NewCredentialService(users UserRepository, sessions *SessionVerifier, accessText string) *CredentialService {
	return &CredentialService{
		users:      users,
		sessions:   sessions,
		accessText: []byte(accessText),
		cost:       bcrypt.DefaultCost,
	}
}

func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	if len(s.accessText) == 0 || subtle.ConstantTimeCompare([]byte(in.AccessText), s.accessText) != 1 {
		return types.User{}, ErrAccessDenied
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Img = strings.TrimSpace(in.Img)
	switch {
	case in.Username == "":
		return types.User{}, invalid("username", "is required")
	case len([]rune(in.Username)) < minUsernameLength:
		return types.User{}, invalid("username", fmt.Sprintf("must be at least %d characters", minUsernameLength))
	case in.Password == "":
		return types.User{}, invalid("password", "is required")
	case in.Name == "":
		return types.User{}, invalid("name", "is required")
	case in.Img == "":
		return types.User{}, invalid("img", "is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, invalid("password", "is too long")
		}
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     in.Username,
		Name:         in.Name,
		Img:          in.Img,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, fromStoreError(err)
	}
	return user, nil
}

func (s *CredentialService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, invalid("", "username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{Token: token, Name: user.Name, Img: user.Img}, nil
}
