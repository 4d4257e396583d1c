package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
)

const MaxUsernameLength = 50

// UserService manages accounts and the online flag.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserService) Create(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be %d characters or less", MaxUsernameLength))
	}

	user := &model.User{Username: username}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, classify(s.logger, "failed to create user", "Failed to create user", err,
			slog.String("username", username),
		)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Get returns apperror.ErrNotFound for unknown users.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("userId", "User ID is required")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "failed to get user", "Failed to get user", err, slog.String("user_id", id))
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify(s.logger, "failed to list users", "Failed to get users", err)
	}
	return users, nil
}

// SetStatus records the user's presence. It is a single statement, not a
// transaction.
func (s *UserService) SetStatus(ctx context.Context, id string, online bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("userId", "User ID and online status are required")
	}

	if err := s.repo.SetOnline(ctx, id, online); err != nil {
		return classify(s.logger, "failed to update user status", "Failed to update user status", err,
			slog.String("user_id", id),
			slog.Bool("online", online),
		)
	}

	s.logger.Info("user status updated",
		slog.String("user_id", id),
		slog.Bool("online", online),
	)
	return nil
}
