package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/service"
)

// BlogHandler serves /api/blogs. Same rules as ProjectHandler.
type BlogHandler struct {
	service *service.BlogService
	logger  *slog.Logger
}

func NewBlogHandler(svc *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{service: svc, logger: logger}
}

func (h *BlogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	blogs, err := h.service.List(r.Context(), skip, limit, r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blogs)
}

func (h *BlogHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	blog, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.BlogInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	blog, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, blog)
}

func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.BlogInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	blog, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blog)
}

func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Blog deleted successfully"})
}
