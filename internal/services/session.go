package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller recovered from a verified session token.
type Identity struct {
	UserID   int    `json:"id"`
	Username string `json:"username"`
}

type sessionClaims struct {
	Username string `json:"username"`
	UserID   int    `json:"id"`
	jwt.RegisteredClaims
}

// SessionVerifier issues and verifies HS256 session tokens. A zero TTL
// issues tokens without an expiry claim.
type SessionVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionVerifier(secret string, ttl time.Duration) *SessionVerifier {
	return &SessionVerifier{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long issued tokens stay valid; zero means forever.
func (v *SessionVerifier) TTL() time.Duration {
	return v.ttl
}

func (v *SessionVerifier) Issue(userID int, username string) (string, error) {
	now := v.now()
	claims := sessionClaims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.Itoa(userID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if v.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify checks the token signature (and expiry, when present) and returns
// the embedded identity. Every failure matches ErrUnauthorized.
func (v *SessionVerifier) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.UserID < 1 || strings.TrimSpace(claims.Username) == "" {
		return Identity{}, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
