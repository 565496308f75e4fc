package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tally/internal/core"
	"tally/internal/storage"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// AuthService handles registration, login and opaque bearer tokens. Tokens
// are random, stored server-side with an expiry, and swept periodically.
type AuthService struct {
	repo     *storage.Repository
	tokenTTL time.Duration

	now func() time.Time
}

func NewAuthService(repo *storage.Repository, tokenTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, tokenTTL: tokenTTL, now: time.Now}
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*core.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("username: %w", core.ErrEmptyName)
	}

	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the password and issues a fresh bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *core.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.tokenTTL)
	if err := s.repo.InsertToken(ctx, token, user.ID, expiresAt); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.repo.DeleteToken(ctx, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// CurrentUser resolves a bearer token to its user. Expired or unknown tokens
// yield ErrUnauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	user, err := s.repo.UserByToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return user, nil
}

// SweepExpiredTokens deletes expired tokens until the context is cancelled.
func (s *AuthService) SweepExpiredTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.repo.DeleteExpiredTokens(ctx, s.now())
			if err != nil {
				slog.ErrorContext(ctx, "Failed to sweep expired tokens", "error", err)
				continue
			}
			if deleted > 0 {
				slog.DebugContext(ctx, "Swept expired tokens", "deleted", deleted)
			}
		}
	}
}
