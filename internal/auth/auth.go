// Package auth provides user authentication for AMLGuard.
//
// Authentication model:
// - Analysts sign in with username/password and receive a signed JWT
// - All /api routes except login require a valid bearer token
// - Roles (admin, analyst, reviewer) gate mutating endpoints
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("authentication token required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already taken")
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleAnalyst  = "analyst"
	RoleReviewer = "reviewer"
)

// User represents a dashboard user. PasswordHash is never serialized.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Permissions  []string   `json:"permissions"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Store persists users
type Store interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	Count(ctx context.Context) (int, error)
}

// Claims are the JWT claims minted on login. Subject carries the user ID.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles login and token verification
type Service struct {
	store  Store
	secret []byte
	expiry time.Duration
}

// NewService creates a new auth service
func NewService(store Store, secret string, expiry time.Duration) *Service {
	return &Service{store: store, secret: []byte(secret), expiry: expiry}
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Login verifies credentials and mints a token.
// Unknown usernames and wrong passwords return the same error so callers
// cannot probe for valid accounts.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.mintToken(user)
	if err != nil {
		return "", nil, err
	}

	// Record last login on a copy; the returned user is being serialized
	// by the handler and must not be written concurrently.
	updated := *user
	now := time.Now()
	updated.LastLogin = &now
	go func() {
		_ = s.store.Update(context.Background(), &updated)
	}()

	return token, user, nil
}

func (s *Service) mintToken(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser loads the user behind a set of verified claims.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*User, error) {
	user, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
