package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

// UserInput is the body of a user create or update.
// On update a nil field means "leave unchanged".
type UserInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Bio             *string `json:"bio"`
	ProfileImage    *string `json:"profile_image"`
	ThemePreference *string `json:"theme_preference"`
}

// UserService handles direct user management (as opposed to the OAuth
// path in AuthService, which creates users implicitly).
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// Create registers a user without a linked GitHub account.
// Name and email are required; email must be unique.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	name, err := requireText("name", deref(in.Name), MaxNameLength)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(deref(in.Email))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:            name,
		Email:           &email,
		ThemePreference: model.DefaultTheme,
	}
	if err := s.applyOptionals(user, in); err != nil {
		return nil, err
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.logger.Warn("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", slog.String("id", user.ID))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	skip, limit = clampPage(skip, limit)
	users, err := s.repo.ListUsers(ctx, repository.ListOptions{Limit: limit, Offset: skip})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update changes the caller's own account. Users cannot edit each other.
func (s *UserService) Update(ctx context.Context, actorID, id string, in UserInput) (*model.User, error) {
	if actorID != id {
		return nil, apperror.Forbidden("you can only modify your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if user.Name, err = requireText("name", *in.Name, MaxNameLength); err != nil {
			return nil, err
		}
	}
	if in.Email != nil {
		email, err := validateEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		user.Email = &email
	}
	if err := s.applyOptionals(user, in); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	s.logger.Info("user updated", slog.String("id", id))
	return user, nil
}

// Delete removes the caller's own account together with their projects and
// blogs.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return apperror.Forbidden("you can only delete your own account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("id", id))
	return nil
}

func (s *UserService) applyOptionals(user *model.User, in UserInput) error {
	var err error
	if in.Bio != nil {
		if user.Bio, err = optionalText("bio", in.Bio, 0); err != nil {
			return err
		}
	}
	if in.ProfileImage != nil {
		if user.ProfileImage, err = optionalText("profile_image", in.ProfileImage, 0); err != nil {
			return err
		}
	}
	if in.ThemePreference != nil {
		if user.ThemePreference, err = validateTheme(*in.ThemePreference); err != nil {
			return err
		}
	}
	return nil
}
