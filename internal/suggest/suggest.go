// Package suggest proposes an architectural style for a user's next render
// based on their past generations.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nirmanai/internal/llm"
	"nirmanai/internal/metastore"
	"nirmanai/internal/prompts"
)

// Suggestion is the advisor's structured answer.
type Suggestion struct {
	SuggestedStyle        string   `json:"suggestedStyle"`
	SuggestedEnhancements []string `json:"suggestedEnhancements"`
	Reasoning             string   `json:"reasoning"`
}

// Advisor derives style suggestions from a user's generation history.
type Advisor struct {
	client llm.Client
	store  metastore.Store
}

// NewAdvisor wires the advisor; both dependencies are required.
func NewAdvisor(client llm.Client, store metastore.Store) *Advisor {
	return &Advisor{client: client, store: store}
}

// Suggest asks the model for a style recommendation. The user's recent
// records provide the taste signal; an empty history is allowed and yields a
// cold-start suggestion.
func (a *Advisor) Suggest(ctx context.Context, userID, brief string) (Suggestion, error) {
	if a == nil || a.client == nil {
		return Suggestion{}, fmt.Errorf("suggest: advisor unavailable")
	}

	history, err := a.store.ListGeneratedImages(ctx, userID)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: load history: %w", err)
	}

	systemPrompt := fmt.Sprintf(`You are an architectural design advisor.
- Choose one style from this list: %s.
- Suggest up to three concrete enhancements for the user's next render.
- Base the choice on the user's history and brief; do not invent past projects.
- Always answer as JSON with the fields: suggestedStyle, suggestedEnhancements (list), reasoning.`,
		strings.Join(prompts.ArchitecturalStyles, ", "))

	content, err := a.client.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(history, brief)},
	}, 0.3)
	if err != nil {
		return Suggestion{}, err
	}

	return parseSuggestion(content)
}

func buildUserPrompt(history []metastore.GeneratedImage, brief string) string {
	var b strings.Builder
	if trimmed := strings.TrimSpace(brief); trimmed != "" {
		fmt.Fprintf(&b, "The user describes their next project as: %s\n\n", trimmed)
	}

	if len(history) == 0 {
		b.WriteString("The user has no past generations yet; suggest a broadly appealing starting style.")
		return b.String()
	}

	b.WriteString("The user's recent generations, newest first:\n")
	limit := len(history)
	if limit > 10 {
		limit = 10
	}
	for _, record := range history[:limit] {
		fmt.Fprintf(&b, "- %s", record.Type)
		if style, ok := record.Parameters["architecturalStyle"].(string); ok && style != "" {
			fmt.Fprintf(&b, ", style %s", style)
		}
		if record.Prompt != "" {
			fmt.Fprintf(&b, ": %s", record.Prompt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseSuggestion(content string) (Suggestion, error) {
	var suggestion Suggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err == nil && suggestion.SuggestedStyle != "" {
		return suggestion, nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &suggestion); err == nil {
			return suggestion, nil
		}
	}
	return Suggestion{}, fmt.Errorf("suggest: could not parse model response")
}
