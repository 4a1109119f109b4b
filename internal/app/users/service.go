package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelist/internal/auth"
	"reelist/internal/logging"
	"reelist/internal/models"
	"reelist/internal/store"
)

var (
	// ErrUserExists signals the username is already taken.
	ErrUserExists = errors.New("username already taken")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrPasswordMismatch indicates the confirmation does not match the password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrMissingCredentials indicates an empty username or password.
	ErrMissingCredentials = errors.New("username and password are required")
)

// Tokens issues and validates session tokens.
type Tokens interface {
	Issue(username string) (string, error)
	Parse(token string) (string, error)
}

// Service exposes registration, login and session validation.
type Service interface {
	Register(ctx context.Context, username, password, confirm string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (string, error)
}

type service struct {
	store  store.UserStore
	tokens Tokens
}

// New wires a Service backed by the provided store and token issuer.
func New(st store.UserStore, tokens Tokens) Service {
	return &service{store: st, tokens: tokens}
}

// Register creates the account and returns a session token for it. confirm
// is only checked when supplied.
func (s *service) Register(ctx context.Context, username, password, confirm string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}
	if confirm != "" && confirm != password {
		return "", ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Favorites:    []models.FavoriteMovie{},
	}
	if _, err := s.store.Upsert(ctx, user); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	logging.FromContext(ctx).Info().Str("username", username).Msg("user registered")
	return s.issue(username)
}

// Login verifies the credentials and returns a session token. Records that
// still carry a plaintext password are upgraded to a bcrypt hash.
func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	user, err := s.store.Find(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			auth.BurnCompare(password)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	switch {
	case user.PasswordHash != "":
		if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
			return "", ErrInvalidCredentials
		}
	case user.LegacyPassword != "":
		if !auth.EqualPlaintext(password, user.LegacyPassword) {
			auth.BurnCompare(password)
			return "", ErrInvalidCredentials
		}
		s.upgradeLegacyPassword(ctx, username, password)
	default:
		auth.BurnCompare(password)
		return "", ErrInvalidCredentials
	}

	return s.issue(username)
}

// Authenticate returns the username a session token was issued to.
func (s *service) Authenticate(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.tokens.Parse(token)
}

func (s *service) issue(username string) (string, error) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

func (s *service) upgradeLegacyPassword(ctx context.Context, username, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("username", username).Msg("hash legacy password")
		return
	}

	_, err = store.Update(ctx, s.store, username, func(u *models.User) error {
		if u.PasswordHash == "" {
			u.PasswordHash = hash
		}
		u.LegacyPassword = ""
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("username", username).Msg("upgrade legacy password")
		return
	}
	logging.FromContext(ctx).Info().Str("username", username).Msg("upgraded legacy password")
}
