package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/generator"
)

// NotConfiguredMessage is returned as the generated content when no API key
// is set. The request still succeeds so the frontend can show it inline.
const NotConfiguredMessage = "AI service not configured. Please add OPENAI_API_KEY to your environment variables."

const (
	bioSystemPrompt     = "You are a professional bio writer specializing in developer portfolios."
	summarySystemPrompt = "You are a technical writer specializing in project descriptions for developer portfolios."
)

// toneDescriptions maps tone_preference values to the instruction given to
// the model. Unknown tones fall back to defaultTone.
var toneDescriptions = map[string]string{
	"professional": "Professional and formal tone, suitable for corporate environments",
	"friendly":     "Warm and approachable tone, making connections with readers",
	"funny":        "Light-hearted and humorous tone, showing personality while staying professional",
	"casual":       "Relaxed and conversational tone, like talking to a colleague",
}

const defaultTone = "Professional and engaging tone"

var promptFuncs = template.FuncMap{"join": strings.Join}

var bioTemplate = template.Must(template.New("bio").Funcs(promptFuncs).Parse(
	`Create a compelling professional bio for a developer portfolio with the following details:

Name: {{.Name}}
Current Role: {{.Role}}
Skills: {{join .Skills ", "}}
Tone: {{.Tone}}

Requirements:
- Write in first person
- Keep it between 2-3 sentences
- Highlight key skills and expertise
- Make it engaging and memorable
- Use the specified tone throughout
- Focus on what makes this developer unique

Generate only the bio text, no additional formatting or explanations.`))

var summaryTemplate = template.Must(template.New("summary").Funcs(promptFuncs).Parse(
	`Create a concise and engaging project summary for a developer portfolio:

Project Title: {{.Title}}
Description: {{.Description}}
Tech Stack: {{join .TechStack ", "}}

Requirements:
- Keep it between 2-3 sentences
- Highlight the main purpose and key features
- Mention the most important technologies used
- Make it appealing to potential employers or clients
- Use professional but accessible language

Generate only the summary text, no additional formatting or explanations.`))

// BioRequest is the body of POST /api/ai/generate-bio.
type BioRequest struct {
	Name           string   `json:"name"`
	CurrentRole    *string  `json:"current_role"`
	Skills         []string `json:"skills"`
	TonePreference string   `json:"tone_preference"`
}

// SummaryRequest is the body of POST /api/ai/generate-project-summary.
type SummaryRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	TechStack   []string `json:"tech_stack"`
}

// AIResponse is what both AI endpoints return.
type AIResponse struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AIService renders prompts and hands them to a Generator.
type AIService struct {
	gen    generator.Generator
	logger *slog.Logger
}

// NewAIService creates an AIService. gen may be nil, which behaves like a
// generator without an API key.
func NewAIService(gen generator.Generator, logger *slog.Logger) *AIService {
	return &AIService{gen: gen, logger: logger}
}

func (s *AIService) GenerateBio(ctx context.Context, req BioRequest) (*AIResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	role := "Developer"
	if req.CurrentRole != nil && strings.TrimSpace(*req.CurrentRole) != "" {
		role = strings.TrimSpace(*req.CurrentRole)
	}
	tone := req.TonePreference
	if tone == "" {
		tone = "professional"
	}

	prompt, err := render(bioTemplate, struct {
		Name, Role, Tone string
		Skills           []string
	}{name, role, toneDescription(tone), cleanTags(req.Skills)})
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, "bio", bioSystemPrompt, prompt, "Bio generated successfully")
}

func (s *AIService) GenerateProjectSummary(ctx context.Context, req SummaryRequest) (*AIResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	description := "No description provided"
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		description = strings.TrimSpace(*req.Description)
	}

	prompt, err := render(summaryTemplate, struct {
		Title, Description string
		TechStack          []string
	}{title, description, cleanTags(req.TechStack)})
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, "project summary", summarySystemPrompt, prompt, "Project summary generated successfully")
}

// generate calls the model. A missing API key is not an error: the caller
// gets NotConfiguredMessage as content, still with success=true and the
// usual message.
func (s *AIService) generate(ctx context.Context, kind, system, prompt, okMessage string) (*AIResponse, error) {
	content := NotConfiguredMessage

	if s.gen != nil {
		res, err := s.gen.Generate(ctx, generator.Request{System: system, Prompt: prompt})
		switch {
		case errors.Is(err, generator.ErrNotConfigured):
		case err != nil:
			s.logger.Error("text generation failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w (%v)", apperror.Upstream("Error generating "+kind, false), err)
		default:
			content = strings.TrimSpace(res.Text)
		}
	}

	return &AIResponse{
		Content: content,
		Success: true,
		Message: okMessage,
	}, nil
}

func toneDescription(tone string) string {
	if d, ok := toneDescriptions[strings.ToLower(strings.TrimSpace(tone))]; ok {
		return d
	}
	return defaultTone
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
