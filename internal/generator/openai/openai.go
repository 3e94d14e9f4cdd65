// Package openai implements generator.Generator with the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sakif/devsnap/internal/config"
	"github.com/sakif/devsnap/internal/generator"
)

// Generator sends one chat completion per request.
type Generator struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	configured  bool
	logger      *slog.Logger
}

// New builds a Generator from cfg. With an empty API key it still returns a
// Generator, but every call fails with generator.ErrNotConfigured.
//
// httpClient may be nil; tests pass the client of an httptest server.
func New(cfg config.OpenAI, httpClient *http.Client, logger *slog.Logger) *Generator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// A failed generation is reported to the caller straight away.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Generator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		configured:  cfg.APIKey != "",
		logger:      logger,
	}
}

// Configured reports whether an API key was supplied.
func (g *Generator) Configured() bool {
	return g.configured
}

// Generate implements generator.Generator.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	if !g.configured {
		return nil, generator.ErrNotConfigured
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: messages,
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(g.maxTokens)
	}
	params.Temperature = openai.Float(g.temperature)

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			g.logger.Error("openai request rejected",
				slog.Int("status", apiErr.StatusCode),
				slog.Duration("duration", elapsed),
			)
		}
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}

	g.logger.Debug("openai completion",
		slog.String("model", resp.Model),
		slog.Int64("totalTokens", resp.Usage.TotalTokens),
		slog.Duration("duration", elapsed),
	)

	return &generator.Result{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    resp.Model,
		Duration: elapsed,
	}, nil
}

var _ generator.Generator = (*Generator)(nil)
