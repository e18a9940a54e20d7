// Package llm provides minimal chat-completion clients for the style
// suggestion flow.
package llm

import (
	"context"
	"strings"
)

// ChatMessage represents a generic chat turn in the prompt history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the behaviour required by the suggestion package.
type Client interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64) (string, error)
}

func normalizeModel(model string) string {
	clean := strings.TrimSpace(model)
	clean = strings.TrimPrefix(clean, "models/")
	if clean == "" {
		return "gemini-1.5-pro-latest"
	}
	return clean
}
