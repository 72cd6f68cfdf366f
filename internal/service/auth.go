package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/models"
	"github.com/FabienDubin/storypillow/internal/password"
	"github.com/FabienDubin/storypillow/internal/repository"
	"github.com/FabienDubin/storypillow/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfDelete         = errors.New("cannot delete own account")
)

type AuthService interface {
	// Login authenticates the credentials and mints a session token.
	// Unknown email and wrong password both return ErrInvalidCredentials.
	Login(ctx context.Context, email, plaintext string) (*models.User, string, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, email, name, plaintext, role string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// UserUpdate carries the optional fields of an admin user edit. A non-empty
// Password rewrites the hash and bumps the password-change marker, which
// invalidates every outstanding session token for that user.
type UserUpdate struct {
	Email    string
	Name     string
	Role     string
	Password string
}

type authService struct {
	repo   repository.UserRepository
	codec  *token.Codec
	logger *zap.Logger
}

func NewAuthService(repo repository.UserRepository, codec *token.Codec, logger *zap.Logger) AuthService {
	return &authService{repo: repo, codec: codec, logger: logger}
}

// NormalizeEmail lowercases and trims, matching how emails are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, email, plaintext string) (*models.User, string, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		s.logger.Error("failed to look up user", zap.Error(err))
		return nil, "", fmt.Errorf("failed to retrieve user: %w", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if !password.Verify(plaintext, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	tokenString, err := s.codec.Create(token.Payload{
		UserID:            user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Role:              user.Role,
		PasswordChangedAt: user.PasswordChangedAt,
	})
	if err != nil {
		s.logger.Error("failed to sign session token", zap.Error(err))
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, tokenString, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

func (s *authService) CreateUser(ctx context.Context, email, name, plaintext, role string) (*models.User, error) {
	email = NormalizeEmail(email)

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              name,
		PasswordHash:      hash,
		Role:              role,
		PasswordChangedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *authService) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if upd.Email != "" {
		user.Email = NormalizeEmail(upd.Email)
	}
	if upd.Name != "" {
		user.Name = upd.Name
	}
	if upd.Role == models.RoleAdmin || upd.Role == models.RoleUser {
		user.Role = upd.Role
	}
	if upd.Password != "" {
		hash, err := password.Hash(upd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
		// Rotating the marker forces re-login on every device holding a
		// token minted before this change.
		user.PasswordChangedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user", zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (s *authService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete user", zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *authService) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}
