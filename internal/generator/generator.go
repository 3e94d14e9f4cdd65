// Package generator defines the text-generation boundary used by the AI
// endpoints. The only real implementation talks to OpenAI (generator/openai);
// tests plug in fakes.
package generator

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by a Generator that has no credentials.
// Callers treat it as "feature off" rather than as a failure.
var ErrNotConfigured = errors.New("generator: not configured")

// Request is one prompt to complete.
type Request struct {
	// System sets the assistant persona, e.g. "You are a professional bio writer".
	System string `json:"system"`
	// Prompt is the user message.
	Prompt string `json:"prompt"`
}

// Result is the generated text and some facts about how it was produced.
type Result struct {
	Text     string        `json:"text"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
