package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"nirmanai/internal/render"
)

const defaultGeminiImageModel = "gemini-2.5-flash-image"

// Gemini renders images through Gemini's inline image outputs. It backs the
// sketch, moodboard and text features, which all reduce to "prompt plus zero
// or more reference images".
type Gemini struct {
	apiKey string
	model  string
}

// NewGemini constructs the adapter. An empty model selects the default image
// model.
func NewGemini(apiKey, model string) *Gemini {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultGeminiImageModel
	}
	return &Gemini{apiKey: apiKey, model: model}
}

// Render sends the prompt and reference images and returns the first inline
// image as a data URI.
func (g *Gemini) Render(ctx context.Context, req render.AdapterRequest) (render.AdapterOutput, error) {
	if g == nil || strings.TrimSpace(g.apiKey) == "" {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: errors.New("not configured")}
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		data, mime, err := imageBytes(ctx, img)
		if err != nil {
			return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: err}
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: g.apiKey})
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: fmt.Errorf("create client: %w", err)}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: errors.New("no candidates returned")}
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if strings.TrimSpace(mime) == "" {
			mime = "image/png"
		}
		encoded := base64.StdEncoding.EncodeToString(part.InlineData.Data)
		return render.AdapterOutput{ImageURL: fmt.Sprintf("data:%s;base64,%s", mime, encoded)}, nil
	}
	return render.AdapterOutput{}, &render.InferenceError{Provider: "gemini", Err: errors.New("response contained no image data")}
}
