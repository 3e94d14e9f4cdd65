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

// BlogInput is the body of a blog create or update. On update nil means
// "leave unchanged".
type BlogInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Summary *string `json:"summary"`
}

// BlogService handles business logic for blog posts. It follows the same
// ownership rules as ProjectService.
type BlogService struct {
	repo   repository.BlogRepository
	logger *slog.Logger
}

func NewBlogService(repo repository.BlogRepository, logger *slog.Logger) *BlogService {
	return &BlogService{repo: repo, logger: logger}
}

func (s *BlogService) Create(ctx context.Context, ownerID string, in BlogInput) (*model.Blog, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}

	title, err := requireText("title", deref(in.Title), MaxTitleLength)
	if err != nil {
		return nil, err
	}
	content := deref(in.Content)
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	summary, err := optionalText("summary", in.Summary, 0)
	if err != nil {
		return nil, err
	}

	blog := &model.Blog{UserID: ownerID, Title: title, Content: content, Summary: summary}
	if err := s.repo.CreateBlog(ctx, blog); err != nil {
		s.logger.Error("failed to create blog",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating blog: %w", err)
	}

	s.logger.Info("blog created", slog.String("id", blog.ID), slog.String("userID", ownerID))
	return blog, nil
}

func (s *BlogService) Get(ctx context.Context, id string) (*model.Blog, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "blog ID is required")
	}
	return s.repo.GetBlogByID(ctx, id)
}

func (s *BlogService) List(ctx context.Context, skip, limit int, userID string) ([]model.Blog, error) {
	skip, limit = clampPage(skip, limit)

	blogs, err := s.repo.ListBlogs(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: skip,
		UserID: strings.TrimSpace(userID),
	})
	if err != nil {
		s.logger.Error("failed to list blogs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	return blogs, nil
}

func (s *BlogService) Update(ctx context.Context, actorID, id string, in BlogInput) (*model.Blog, error) {
	blog, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if blog.Title, err = requireText("title", *in.Title, MaxTitleLength); err != nil {
			return nil, err
		}
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, apperror.ValidationFailed("content", "content is required")
		}
		blog.Content = *in.Content
	}
	if in.Summary != nil {
		if blog.Summary, err = optionalText("summary", in.Summary, 0); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateBlog(ctx, blog); err != nil {
		s.logger.Error("failed to update blog",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating blog: %w", err)
	}
	return blog, nil
}

func (s *BlogService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteBlog(ctx, id); err != nil {
		return err
	}
	s.logger.Info("blog deleted", slog.String("id", id), slog.String("userID", actorID))
	return nil
}

func (s *BlogService) owned(ctx context.Context, actorID, id string) (*model.Blog, error) {
	blog, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if blog.UserID != actorID {
		return nil, apperror.Forbidden("you can only modify your own blogs")
	}
	return blog, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
