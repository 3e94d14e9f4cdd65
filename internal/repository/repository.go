// Package repository declares the storage contracts the services depend on.
// The only implementation lives in repository/sqlite; service tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/devsnap/internal/model"
)

// ListOptions controls pagination for list queries.
// UserID, when set, restricts the result to rows owned by that user.
type ListOptions struct {
	Limit  int
	Offset int
	UserID string
}

// UserRepository stores users.
//
// CreateUser and UpdateUser return an apperror.Conflict when email or
// github_id collides with another row. Lookups return apperror.NotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser also removes the user's projects and blogs.
	DeleteUser(ctx context.Context, id string) error
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, opts ListOptions) ([]model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

type BlogRepository interface {
	CreateBlog(ctx context.Context, blog *model.Blog) error
	GetBlogByID(ctx context.Context, id string) (*model.Blog, error)
	ListBlogs(ctx context.Context, opts ListOptions) ([]model.Blog, error)
	UpdateBlog(ctx context.Context, blog *model.Blog) error
	DeleteBlog(ctx context.Context, id string) error
}

// ProfileRepository loads a user together with everything they own.
type ProfileRepository interface {
	// LoadProfile returns the user plus all projects and blogs in one
	// consistent read. Projects and Blogs are empty (not nil) when the user
	// owns nothing. Returns apperror.NotFound when the user does not exist.
	LoadProfile(ctx context.Context, userID string) (*model.Profile, error)
}
