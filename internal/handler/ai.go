package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devsnap/internal/service"
)

// AIHandler serves the text-generation endpoints under /api/ai.
type AIHandler struct {
	service *service.AIService
	logger  *slog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(svc *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		service: svc,
		logger:  logger,
	}
}

// HandleGenerateBio writes a short portfolio bio.
//
// HTTP: POST /api/ai/generate-bio
// REQUEST BODY: {"name": "Ada", "current_role": "Backend Engineer", "skills": ["Go"], "tone_preference": "friendly"}
//
// Without an OpenAI key this still answers 200; the content explains that
// the feature is not configured.
func (h *AIHandler) HandleGenerateBio(w http.ResponseWriter, r *http.Request) {
	var req service.BioRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid bio request body", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.GenerateBio(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGenerateProjectSummary writes a short project description.
//
// HTTP: POST /api/ai/generate-project-summary
// REQUEST BODY: {"title": "devsnap", "description": "...", "tech_stack": ["Go"]}
func (h *AIHandler) HandleGenerateProjectSummary(w http.ResponseWriter, r *http.Request) {
	var req service.SummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid summary request body", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	res, err := h.service.GenerateProjectSummary(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
