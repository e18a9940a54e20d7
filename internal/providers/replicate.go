package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nirmanai/internal/render"
)

const (
	defaultReplicateBaseURL = "https://api.replicate.com/v1"

	// Pinned upscaler version; the model has no stable "latest" alias.
	ClarityUpscalerVersion = "dfad41707589d68ecdccd1dfa600d55a208f9310748e44bfe35b4a6291453d5e"
	clarityUpscalerOwner   = "philz1337x/clarity-upscaler"

	defaultReplicateTextModel = "black-forest-labs/flux-dev"
)

// ReplicateClient talks to the Replicate predictions API. Requests use the
// sync-preferred mode and fall back to polling when the prediction is still
// running after the blocking window.
type ReplicateClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	pollInterval time.Duration
}

// NewReplicateClient constructs a client; an empty baseURL selects the public
// API.
func NewReplicateClient(apiKey, baseURL string) *ReplicateClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultReplicateBaseURL
	}
	return &ReplicateClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		pollInterval: 2 * time.Second,
	}
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Predict creates a prediction and waits for its output URL. The path selects
// the endpoint: "models/{owner}/{name}/predictions" for model-latest calls,
// "predictions" with a "version" field in body for pinned versions.
func (c *ReplicateClient) Predict(ctx context.Context, path string, body map[string]any) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errors.New("replicate api token not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("replicate api error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return c.resolve(ctx, prediction)
}

func (c *ReplicateClient) resolve(ctx context.Context, prediction replicatePrediction) (string, error) {
	switch prediction.Status {
	case "succeeded":
		return firstOutputURL(prediction.Output)
	case "failed", "canceled":
		if prediction.Error != nil {
			return "", fmt.Errorf("prediction %s: %s", prediction.Status, *prediction.Error)
		}
		return "", fmt.Errorf("prediction %s", prediction.Status)
	}
	if prediction.URLs.Get == "" {
		return "", fmt.Errorf("prediction %s with no poll URL", prediction.Status)
	}
	return c.poll(ctx, prediction.URLs.Get)
}

func (c *ReplicateClient) poll(ctx context.Context, pollURL string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			continue // transient network error, keep polling
		}

		var prediction replicatePrediction
		decodeErr := json.NewDecoder(resp.Body).Decode(&prediction)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			continue
		}

		switch prediction.Status {
		case "succeeded":
			return firstOutputURL(prediction.Output)
		case "failed", "canceled":
			if prediction.Error != nil {
				return "", fmt.Errorf("prediction %s: %s", prediction.Status, *prediction.Error)
			}
			return "", fmt.Errorf("prediction %s", prediction.Status)
		}
	}
}

// firstOutputURL handles the two output shapes Replicate models return: a
// plain string or an array of strings.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("prediction succeeded with no output")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], nil
	}

	return "", fmt.Errorf("unrecognized output shape: %s", string(raw))
}

// ReplicateUpscaler enhances image detail through the clarity-upscaler model.
type ReplicateUpscaler struct {
	client  *ReplicateClient
	version string
}

// NewReplicateUpscaler constructs the enhance adapter; an empty version pins
// the known-good upscaler release.
func NewReplicateUpscaler(client *ReplicateClient, version string) *ReplicateUpscaler {
	if strings.TrimSpace(version) == "" {
		version = ClarityUpscalerVersion
	}
	return &ReplicateUpscaler{client: client, version: version}
}

func (u *ReplicateUpscaler) Render(ctx context.Context, req render.AdapterRequest) (render.AdapterOutput, error) {
	if len(req.Images) == 0 {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "replicate", Err: errors.New("no source image")}
	}
	ref, err := imageRef(req.Images[0])
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "replicate", Err: err}
	}

	url, err := u.client.Predict(ctx, "predictions", map[string]any{
		"version": u.version,
		"input": map[string]any{
			"image": ref,
		},
	})
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "replicate", Err: err}
	}
	return render.AdapterOutput{ImageURL: url}, nil
}

// ReplicateTextRenderer generates an image from a text prompt via a Replicate
// diffusion model. It is the alternative text-to-render backend for
// deployments without Gemini access.
type ReplicateTextRenderer struct {
	client *ReplicateClient
	model  string
}

// NewReplicateTextRenderer constructs the adapter; an empty model selects
// flux-dev.
func NewReplicateTextRenderer(client *ReplicateClient, model string) *ReplicateTextRenderer {
	if strings.TrimSpace(model) == "" {
		model = defaultReplicateTextModel
	}
	return &ReplicateTextRenderer{client: client, model: model}
}

func (r *ReplicateTextRenderer) Render(ctx context.Context, req render.AdapterRequest) (render.AdapterOutput, error) {
	input := map[string]any{
		"prompt":        req.Prompt,
		"num_outputs":   1,
		"output_format": "png",
	}
	if req.AspectRatio != "" {
		input["aspect_ratio"] = req.AspectRatio
	}

	url, err := r.client.Predict(ctx, fmt.Sprintf("models/%s/predictions", r.model), map[string]any{
		"input": input,
	})
	if err != nil {
		return render.AdapterOutput{}, &render.InferenceError{Provider: "replicate", Err: err}
	}
	return render.AdapterOutput{ImageURL: url}, nil
}
