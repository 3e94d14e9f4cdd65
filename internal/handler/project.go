package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/service"
)

// ProjectHandler manages CRUD operations for portfolio projects.
//
// WHY A SEPARATE HANDLER?
// Each handler struct "owns" one area of functionality. Projects, blogs and
// users share a shape but keep their own handler so each can change alone.
//
// AUTHENTICATION:
// Reads are public (a portfolio is meant to be seen). Writes are mounted
// behind auth.RequireAuth; the owner is always the token subject.
type ProjectHandler struct {
	service *service.ProjectService
	logger  *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{service: svc, logger: logger}
}

// HandleList returns projects, oldest first.
//
// HTTP: GET /api/projects?skip=0&limit=100&user_id=...
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	projects, err := h.service.List(r.Context(), skip, limit, r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleGetByID returns a single project.
//
// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleCreate saves a new project for the caller.
//
// HTTP: POST /api/projects
// REQUEST BODY: {"title": "devsnap", "tech_stack": ["Go"], "github_link": "..."}
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	project, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// HandleUpdate applies a partial update. Fields missing from the body keep
// their stored values.
//
// HTTP: PUT /api/projects/{id}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	project, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleDelete removes a project.
//
// HTTP: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}
