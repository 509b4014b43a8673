// Package services – UserService
//
// This file implements account management: registration with bcrypt
// hashing, login issuing a JWT and recording a session row, logout, and the
// admin user CRUD. Passwords never leave this file unhashed; the domain
// model already excludes the hash from JSON.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// TokenIssuer signs an access token for an authenticated user.
// Satisfied by *auth.Manager.
type TokenIssuer interface {
	Sign(userID uint, username, role string) (string, error)
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// UserService implements account registration, authentication, and admin
// user management.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Tokens issues JWTs on login.
	Tokens TokenIssuer
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, tokens TokenIssuer) *UserService {
	return &UserService{DB: db, Tokens: tokens}
}

// Register creates a new account with role "user". The username must be
// non-empty after trimming and the password at least 6 characters; an
// occupied username maps to ErrUsernameTaken.
func (s *UserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, username, string(hash), "user")
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials, issues a token, and records a session row
// for the active-sessions view. A wrong username and a wrong password are
// indistinguishable to the caller. Session bookkeeping is best-effort.
func (s *UserService) Login(ctx context.Context, username, password, userAgent, ip string) (*LoginResult, error) {
	u, err := repo.GetUserByUsername(ctx, s.DB, strings.TrimSpace(username))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Sign(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}

	if _, err := repo.CreateSession(ctx, s.DB, u.ID, userAgent, ip); err != nil {
		log.Warn().Err(err).Uint("user_id", u.ID).Msg("session record failed")
	}

	return &LoginResult{Token: token, User: *u}, nil
}

// Logout expires the caller's live sessions. The JWT itself stays valid
// until expiry; session rows only drive the active-sessions view.
func (s *UserService) Logout(ctx context.Context, userID uint) error {
	return repo.ExpireSessions(ctx, s.DB, userID)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns all users (admin view).
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsers(ctx, s.DB)
}

// Update applies a partial update to a user. An empty field is left
// untouched; a non-empty password is re-hashed; role must be valid when set.
func (s *UserService) Update(ctx context.Context, id uint, username, password, role string) (*domain.User, error) {
	if role != "" && role != "user" && role != "admin" {
		return nil, ErrInvalidCredentials
	}

	hash := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(b)
	}

	u, err := repo.UpdateUser(ctx, s.DB, id, strings.TrimSpace(username), hash, role)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, ErrUserNotFound
		case isDuplicate(err):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Delete removes a user. Their requests, views, sessions, and notifications
// are removed by the cascading foreign keys.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := repo.DeleteUser(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account if no user holds that
// username yet. Called once at startup; an existing account is left as-is.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := repo.GetUserByUsername(ctx, s.DB, username); err == nil {
		return nil
	} else if !isNotFound(err) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := repo.CreateUser(ctx, s.DB, username, string(hash), "admin"); err != nil {
		if isDuplicate(err) {
			// Lost a startup race with a peer instance; fine.
			return nil
		}
		return err
	}
	log.Info().Str("username", username).Msg("bootstrap admin account created")
	return nil
}
