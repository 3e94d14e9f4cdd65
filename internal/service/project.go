// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain Go values (never *http.Request) and return
// apperror kinds (never status codes), so they can be tested with plain
// function calls and reused outside HTTP.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, NOT a *sqlite.DB. Tests pass
// in-memory fakes; main.go passes the SQLite implementation.
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

// ProjectInput is the body of a project create or update.
//
// On update every field is optional: nil (or an absent JSON key) means
// "leave unchanged". TechStack follows the same rule with a nil slice, while
// an empty JSON array clears the list.
type ProjectInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	TechStack   []string `json:"tech_stack"`
	GitHubLink  *string  `json:"github_link"`
	DemoLink    *string  `json:"demo_link"`
	Summary     *string  `json:"summary"`
}

// ProjectService handles business logic for portfolio projects.
type ProjectService struct {
	repo   repository.ProjectRepository
	logger *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repo repository.ProjectRepository, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new project owned by ownerID.
//
// The owner always comes from the caller's verified token, never from the
// request body, so nobody can publish a project into someone else's profile.
func (s *ProjectService) Create(ctx context.Context, ownerID string, in ProjectInput) (*model.Project, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}

	// === VALIDATION ===
	var title string
	if in.Title != nil {
		title = *in.Title
	}
	title, err := requireText("title", title, MaxTitleLength)
	if err != nil {
		return nil, err
	}

	project := &model.Project{
		UserID:    ownerID,
		Title:     title,
		TechStack: cleanTags(in.TechStack),
	}
	if err := applyProjectOptionals(project, in); err != nil {
		return nil, err
	}

	// === DELEGATE TO REPOSITORY ===
	// The repo handles ID generation, timestamps, and SQL.
	if err := s.repo.CreateProject(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.String("id", project.ID),
		slog.String("userID", ownerID),
	)
	return project, nil
}

// Get retrieves a project by its ID.
// Returns apperror.ErrNotFound if the project doesn't exist.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "project ID is required")
	}
	return s.repo.GetProjectByID(ctx, id)
}

// List returns projects oldest first. userID, when non-empty, narrows the list
// to one owner.
func (s *ProjectService) List(ctx context.Context, skip, limit int, userID string) ([]model.Project, error) {
	skip, limit = clampPage(skip, limit)

	projects, err := s.repo.ListProjects(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: skip,
		UserID: strings.TrimSpace(userID),
	})
	if err != nil {
		s.logger.Error("failed to list projects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Update applies a partial update. Only the owner may change a project.
//
// STRATEGY: "Fetch then update"
// The fetch confirms the project exists and tells us who owns it; the
// changes are applied to that copy and saved whole.
func (s *ProjectService) Update(ctx context.Context, actorID, id string, in ProjectInput) (*model.Project, error) {
	project, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := requireText("title", *in.Title, MaxTitleLength)
		if err != nil {
			return nil, err
		}
		project.Title = title
	}
	if in.TechStack != nil {
		project.TechStack = cleanTags(in.TechStack)
	}
	if err := applyProjectOptionals(project, in); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		s.logger.Error("failed to update project",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating project: %w", err)
	}

	s.logger.Info("project updated", slog.String("id", project.ID))
	return project, nil
}

// Delete removes a project. Only the owner may delete it.
func (s *ProjectService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}

	s.logger.Info("project deleted", slog.String("id", id), slog.String("userID", actorID))
	return nil
}

// owned fetches a project and checks that actorID owns it.
func (s *ProjectService) owned(ctx context.Context, actorID, id string) (*model.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.UserID != actorID {
		s.logger.Warn("project ownership check failed",
			slog.String("id", id),
			slog.String("actor", actorID),
		)
		return nil, apperror.Forbidden("you can only modify your own projects")
	}
	return project, nil
}

// applyProjectOptionals copies the optional text fields that are present in in.
func applyProjectOptionals(p *model.Project, in ProjectInput) error {
	fields := []struct {
		name string
		src  *string
		dst  **string
		max  int
	}{
		{"description", in.Description, &p.Description, 0},
		{"github_link", in.GitHubLink, &p.GitHubLink, MaxLinkLength},
		{"demo_link", in.DemoLink, &p.DemoLink, MaxLinkLength},
		{"summary", in.Summary, &p.Summary, 0},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		v, err := optionalText(f.name, f.src, f.max)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
